package spectrum

import (
	"math"
	"testing"

	"github.com/glycovedic/glycosearch/pkg/types"
)

// TestPreprocessS4 implements spec.md §8 scenario S4.
func TestPreprocessS4(t *testing.T) {
	s := types.Spectrum{
		ScanID:    "scan1",
		MZ:        []float64{500.0},
		Intensity: []float64{400.0},
	}
	ps, err := Preprocess(s, DefaultGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	binIdx := int(math.Floor(500.0 / 1.000508))
	if binIdx != 499 {
		t.Fatalf("test assumption wrong: bin index = %d, want 499", binIdx)
	}
	if math.Abs(ps.Vector[binIdx]-50.0) > 1e-9 {
		t.Errorf("bin %d = %.6f, want 50.0 after region normalization", binIdx, ps.Vector[binIdx])
	}
	windowSize := (DefaultGrid.Bins() + DefaultGrid.Regions - 1) / DefaultGrid.Regions
	regionStart := (binIdx / windowSize) * windowSize
	regionEnd := regionStart + windowSize
	for i := regionStart; i < regionEnd && i < len(ps.Vector); i++ {
		if i == binIdx {
			continue
		}
		if ps.Vector[i] != 0 {
			t.Errorf("bin %d in same region should be 0, got %v", i, ps.Vector[i])
		}
	}
	// spot-check a bin outside the region is untouched (zero).
	if ps.Vector[0] != 0 {
		t.Errorf("bin 0 should remain 0, got %v", ps.Vector[0])
	}
}

func TestPreprocessIntoReusesCallerBuffer(t *testing.T) {
	dst := make([]float64, DefaultGrid.Bins())
	dst[0] = 999 // must be overwritten, not just added to

	s := types.Spectrum{MZ: []float64{500.0}, Intensity: []float64{400.0}}
	ps, err := PreprocessInto(s, DefaultGrid, dst)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if &ps.Vector[0] != &dst[0] {
		t.Fatal("expected PreprocessInto to write into the caller-supplied buffer")
	}
	if ps.Vector[0] != 0 {
		t.Errorf("expected stale buffer contents to be cleared, got %v", ps.Vector[0])
	}
}

func TestPreprocessMismatchedLengths(t *testing.T) {
	s := types.Spectrum{MZ: []float64{1, 2}, Intensity: []float64{1}}
	if _, err := Preprocess(s, DefaultGrid); err == nil {
		t.Error("expected MalformedSpectrumError for mismatched lengths")
	}
}

func TestPreprocessNonFinitePeak(t *testing.T) {
	s := types.Spectrum{MZ: []float64{math.NaN()}, Intensity: []float64{10}}
	if _, err := Preprocess(s, DefaultGrid); err == nil {
		t.Error("expected MalformedSpectrumError for NaN mz")
	}
}

func TestPreprocessDropsPrecursorWindow(t *testing.T) {
	s := types.Spectrum{
		ScanID:           "scan2",
		PrecursorMZ:      1000.0,
		PrecursorMZIsSet: true,
		MZ:               []float64{990.0, 1000.0, 1010.0, 1200.0},
		Intensity:        []float64{5, 5, 5, 100},
	}
	ps, err := Preprocess(s, DefaultGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sum := 0.0
	for _, v := range ps.Vector {
		sum += v
	}
	if sum == 0 {
		t.Error("expected the 1200 m/z peak to survive and contribute signal")
	}
	for _, mz := range []float64{990.0, 1000.0, 1010.0} {
		if bin := DefaultGrid.BinOf(mz); ps.Vector[bin] != 0 {
			t.Errorf("peak at %.1f m/z lies within 15 Da of the precursor and should be dropped, bin %d = %v", mz, bin, ps.Vector[bin])
		}
	}
}

func TestPreprocessAllPeaksFilteredReturnsZeroVector(t *testing.T) {
	s := types.Spectrum{MZ: []float64{-5, 5000}, Intensity: []float64{10, 10}}
	ps, err := Preprocess(s, DefaultGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range ps.Vector {
		if v != 0 {
			t.Fatalf("expected all-zero vector, bin %d = %v", i, v)
		}
	}
}

func TestPreprocessIdempotentReshape(t *testing.T) {
	// Testable property 5: reshaping a preprocessed vector back into
	// (mz, intensity) pairs and preprocessing again yields the same
	// vector.
	//
	// Each nonzero bin becomes one peak at the bin's left edge with its
	// value squared, so the second full Preprocess (bin, sqrt,
	// region-normalize) gets the same value back from sqrt in the same
	// bin, and each region's maximum is already 50, leaving the scaling
	// at 1.
	s := types.Spectrum{
		MZ:        []float64{500.0, 600.0, 1700.0},
		Intensity: []float64{16, 4, 900},
	}
	ps, err := Preprocess(s, DefaultGrid)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var mz, intensity []float64
	for i, val := range ps.Vector {
		if val == 0 {
			continue
		}
		mz = append(mz, float64(i)*DefaultGrid.BinWidth)
		intensity = append(intensity, val*val) // undo sqrt to re-seed as a raw peak
	}
	reshaped := types.Spectrum{MZ: mz, Intensity: intensity}
	ps2, err := Preprocess(reshaped, DefaultGrid)
	if err != nil {
		t.Fatalf("unexpected error on reshape: %v", err)
	}
	for i := range ps.Vector {
		if math.Abs(ps.Vector[i]-ps2.Vector[i]) > 1e-6 {
			t.Errorf("bin %d: original %.6f, round-trip %.6f", i, ps.Vector[i], ps2.Vector[i])
		}
	}
}
