// Package spectrum bins, reshapes, and region-normalizes observed
// MS/MS spectra into the fixed-length vector both scorers operate on.
package spectrum

import (
	"fmt"
	"math"

	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// Grid is the shared bin geometry used by both the preprocessor and
// the theoretical-spectrum builder (spec.md §9: they must use an
// identical bin width or the correlation in C8 is meaningless).
type Grid struct {
	BinWidth float64
	MaxMZ    float64
	Regions  int
}

// DefaultGrid matches spec.md §4.5 and §6's defaults.
var DefaultGrid = Grid{BinWidth: 1.000508, MaxMZ: 2000.0, Regions: 10}

// Bins returns the number of bins in the grid, B = ceil(MaxMZ/BinWidth).
func (g Grid) Bins() int {
	return int(math.Ceil(g.MaxMZ / g.BinWidth))
}

// BinOf returns the bin index for m/z x, clipped to [0, Bins()-1].
func (g Grid) BinOf(x float64) int {
	b := int(math.Floor(x / g.BinWidth))
	bins := g.Bins()
	if b < 0 {
		return 0
	}
	if b >= bins {
		return bins - 1
	}
	return b
}

// precursorExclusionDa is the half-width of the window around the
// precursor m/z dropped before binning (spec.md §4.5 step 2).
const precursorExclusionDa = 15.0

// Preprocess validates and bins an observed spectrum per spec.md §4.5,
// returning the fixed-length vector v. A spectrum whose fragment
// arrays disagree in length, or that contains a NaN/infinite peak,
// fails with MalformedSpectrumError (spec.md §3 invariant 4, §7). A
// spectrum whose every peak is filtered out returns the all-zero
// vector; the caller decides whether to skip scoring.
func Preprocess(s types.Spectrum, g Grid) (types.ProcessedSpectrum, *serr.SearchError) {
	return PreprocessInto(s, g, make([]float64, g.Bins()))
}

// PreprocessInto is Preprocess with a caller-supplied destination
// buffer, so a worker pool can reuse one []float64 per spectrum
// instead of allocating one per call (see internal/memory.VectorPool,
// wired in by internal/search). dst must have length g.Bins() and is
// overwritten in place; its prior contents are ignored.
func PreprocessInto(s types.Spectrum, g Grid, dst []float64) (types.ProcessedSpectrum, *serr.SearchError) {
	if len(s.MZ) != len(s.Intensity) {
		return types.ProcessedSpectrum{}, serr.New(serr.ErrMalformedSpectrum, serr.SeverityWarning,
			fmt.Sprintf("scan %s: mz/intensity length mismatch (%d vs %d)", s.ScanID, len(s.MZ), len(s.Intensity))).
			WithMetadata("scan_id", s.ScanID)
	}
	for i := range s.MZ {
		if !isFinite(s.MZ[i]) || !isFinite(s.Intensity[i]) {
			return types.ProcessedSpectrum{}, serr.New(serr.ErrMalformedSpectrum, serr.SeverityWarning,
				fmt.Sprintf("scan %s: non-finite peak at index %d", s.ScanID, i)).
				WithMetadata("scan_id", s.ScanID)
		}
	}

	v := dst
	for i := range v {
		v[i] = 0
	}

	for i := range s.MZ {
		mz, intensity := s.MZ[i], s.Intensity[i]
		if intensity <= 0 || mz < 0 || mz > g.MaxMZ {
			continue
		}
		if s.PrecursorMZIsSet && math.Abs(mz-s.PrecursorMZ) <= precursorExclusionDa {
			continue
		}
		v[g.BinOf(mz)] += intensity
	}

	for i := range v {
		v[i] = math.Sqrt(v[i])
	}

	normalizeRegions(v, g.Regions)

	return types.ProcessedSpectrum{
		ScanID:          s.ScanID,
		PrecursorMZ:     s.PrecursorMZ,
		PrecursorCharge: s.PrecursorCharge,
		Vector:          v,
	}, nil
}

// normalizeRegions partitions v into `regions` equal windows and
// scales each so its max becomes 50.0; an all-zero window is left
// untouched (spec.md §4.5 step 5).
func normalizeRegions(v []float64, regions int) {
	if regions <= 0 || len(v) == 0 {
		return
	}
	windowSize := (len(v) + regions - 1) / regions
	for start := 0; start < len(v); start += windowSize {
		end := start + windowSize
		if end > len(v) {
			end = len(v)
		}
		max := 0.0
		for i := start; i < end; i++ {
			if v[i] > max {
				max = v[i]
			}
		}
		if max <= 0 {
			continue
		}
		scale := 50.0 / max
		for i := start; i < end; i++ {
			v[i] *= scale
		}
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
