package theoretical

import (
	"math"
	"testing"

	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/internal/spectrum"
	"github.com/glycovedic/glycosearch/pkg/types"
)

func TestBuildBYIonMasses(t *testing.T) {
	pep := types.Peptide{Sequence: "ACDE", Mass: massmodel.PeptideMass("ACDE"), Sequons: []int{1}}
	gly := types.Glycan{Composition: "H5N2", Mass: 1000.0}
	c := types.Candidate{Peptide: &pep, Glycan: &gly, NeutralMass: pep.Mass + gly.Mass}

	ts := Build(c, spectrum.DefaultGrid, 2)

	wantB1 := massmodel.ResidueMass['A'] + massmodel.ProtonMass
	found := false
	for _, p := range ts.Peaks {
		if p.Label == "b1^1" {
			found = true
			if math.Abs(p.MZ-wantB1) > 1e-6 {
				t.Errorf("b1^1 = %.6f, want %.6f", p.MZ, wantB1)
			}
		}
	}
	if !found {
		t.Fatal("b1^1 not found")
	}
}

func TestBuildY0StubIncludesGlycanMass(t *testing.T) {
	pep := types.Peptide{Sequence: "ACDE", Mass: massmodel.PeptideMass("ACDE"), Sequons: []int{1}}
	gly := types.Glycan{Composition: "H5N2", Mass: 1000.0}
	c := types.Candidate{Peptide: &pep, Glycan: &gly}

	ts := Build(c, spectrum.DefaultGrid, 1)

	var yMZ, stubMZ float64
	for _, p := range ts.Peaks {
		if p.Label == "y1^1" {
			yMZ = p.MZ
		}
		if p.Label == "y1^1+glycan" {
			stubMZ = p.MZ
		}
	}
	if math.Abs((stubMZ-yMZ)-gly.Mass) > 1e-6 {
		t.Errorf("y1 stub offset from y1 = %.6f, want glycan mass %.6f", stubMZ-yMZ, gly.Mass)
	}

	for _, p := range ts.Peaks {
		if p.Kind == types.IonB && p.Label == "b1^1+glycan" {
			t.Error("b-ions must never carry a glycan stub (spec §4.6/§9)")
		}
	}
}

func TestBuildOxoniumRequiresSialicAcid(t *testing.T) {
	pep := types.Peptide{Sequence: "ACDEFGHIKL", Mass: 1, Sequons: []int{1}}
	noSialic := types.Glycan{Composition: "H5N2", H: 5, N: 2}
	withSialic := types.Glycan{Composition: "H5N4A1", H: 5, N: 4, A: 1}

	tsNoSialic := Build(types.Candidate{Peptide: &pep, Glycan: &noSialic}, spectrum.DefaultGrid, 1)
	tsSialic := Build(types.Candidate{Peptide: &pep, Glycan: &withSialic}, spectrum.DefaultGrid, 1)

	hasOxonium := func(ts types.TheoreticalSpectrum, mz float64) bool {
		for _, p := range ts.Peaks {
			if p.Kind == types.IonOxonium && math.Abs(p.MZ-mz) < 1e-6 {
				return true
			}
		}
		return false
	}

	if hasOxonium(tsNoSialic, 292.1027) {
		t.Error("NeuAc oxonium should not appear without sialic acid")
	}
	if !hasOxonium(tsSialic, 292.1027) {
		t.Error("NeuAc oxonium should appear when A > 0")
	}
}

func TestVectorizeTakesMaxPerBin(t *testing.T) {
	grid := spectrum.DefaultGrid
	peaks := []types.TheoreticalPeak{
		{MZ: 500.0001, Intensity: 0.3},
		{MZ: 500.0002, Intensity: 0.9},
	}
	v := vectorize(peaks, grid)
	bin := grid.BinOf(500.0001)
	if v[bin] != 0.9 {
		t.Errorf("expected max intensity 0.9 in shared bin, got %v", v[bin])
	}
}

func TestVectorizeDropsOutOfRangePeaks(t *testing.T) {
	grid := spectrum.DefaultGrid
	v := vectorize([]types.TheoreticalPeak{{MZ: grid.MaxMZ + 500, Intensity: 1.0}}, grid)
	for i, val := range v {
		if val != 0 {
			t.Fatalf("bin %d should be 0 for out-of-range peak, got %v", i, val)
		}
	}
}
