// Package theoretical predicts the fragment-ion peaks of a candidate
// (peptide, glycan) pair and vectorizes them onto the same bin grid
// the spectrum preprocessor uses, so the two scorers in internal/scoring
// can compare like with like.
package theoretical

import (
	"fmt"

	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/internal/spectrum"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// Relative intensities assigned to each ion family (spec.md §4.6).
const (
	intensityBY      = 1.0
	intensityY0Stub  = 0.5
	intensityOxonium = 0.8
)

// oxoniumIon is a diagnostic glycan fragment whose presence in the
// theoretical spectrum depends on the candidate's glycan composition.
type oxoniumIon struct {
	mz        float64
	label     string
	requires  func(g *types.Glycan) bool
}

// oxoniumIons are the fixed, singly-charged diagnostic masses of
// spec.md §4.6, each emitted only when its requires predicate holds for
// the candidate's glycan: 204.0867 (HexNAc oxonium) and 147.0652 need
// N > 0, 366.1396 needs H > 0 and N > 0, 163.0601 needs H > 0, 292.1027
// and 512.1972 need A > 0, and 657.2350 needs A > 0 and N > 0.
var oxoniumIons = []oxoniumIon{
	{204.0867, "oxonium-204.0867", func(g *types.Glycan) bool { return g.N > 0 }},
	{366.1396, "oxonium-366.1396", func(g *types.Glycan) bool { return g.H > 0 && g.N > 0 }},
	{163.0601, "oxonium-163.0601", func(g *types.Glycan) bool { return g.H > 0 }},
	{147.0652, "oxonium-147.0652", func(g *types.Glycan) bool { return g.N > 0 }},
	{292.1027, "oxonium-292.1027", func(g *types.Glycan) bool { return g.A > 0 }},
	{512.1972, "oxonium-512.1972", func(g *types.Glycan) bool { return g.A > 0 }},
	{657.2350, "oxonium-657.2350", func(g *types.Glycan) bool { return g.A > 0 && g.N > 0 }},
}

// Build predicts the fragment-ion peak set for candidate and
// vectorizes it onto grid. Backbone b/y ions are generated at charges
// 1..maxCharge; each y-ion additionally gets a glycan-stub (Y0) peak
// carrying the full glycan mass, per spec.md §4.6/§9 (b-ions never
// carry the stub — this asymmetry is deliberate and preserved as-is).
func Build(c types.Candidate, grid spectrum.Grid, maxCharge int) types.TheoreticalSpectrum {
	seq := c.Peptide.Sequence
	g := c.Glycan
	L := len(seq)

	var peaks []types.TheoreticalPeak

	prefix := make([]float64, L+1)
	for i := 0; i < L; i++ {
		prefix[i+1] = prefix[i] + massmodel.ResidueMass[seq[i]]
	}
	totalResidueMass := prefix[L]

	for charge := 1; charge <= maxCharge; charge++ {
		cz := float64(charge)
		for i := 1; i < L; i++ {
			bMZ := (prefix[i] + massmodel.ProtonMass*cz) / cz
			peaks = append(peaks, types.TheoreticalPeak{
				MZ: bMZ, Intensity: intensityBY,
				Label: fmt.Sprintf("b%d^%d", i, charge), Kind: types.IonB, Charge: charge,
			})

			suffixMass := totalResidueMass - prefix[L-i]
			yMZ := (massmodel.WaterMass + suffixMass + massmodel.ProtonMass*cz) / cz
			peaks = append(peaks, types.TheoreticalPeak{
				MZ: yMZ, Intensity: intensityBY,
				Label: fmt.Sprintf("y%d^%d", i, charge), Kind: types.IonY, Charge: charge,
			})

			stubMZ := yMZ + g.Mass/cz
			peaks = append(peaks, types.TheoreticalPeak{
				MZ: stubMZ, Intensity: intensityY0Stub,
				Label: fmt.Sprintf("y%d^%d+glycan", i, charge), Kind: types.IonY0, Charge: charge,
			})
		}
	}

	for _, ox := range oxoniumIons {
		if !ox.requires(g) {
			continue
		}
		peaks = append(peaks, types.TheoreticalPeak{
			MZ: ox.mz, Intensity: intensityOxonium, Label: ox.label, Kind: types.IonOxonium, Charge: 1,
		})
	}

	return types.TheoreticalSpectrum{Peaks: peaks, Vector: vectorize(peaks, grid)}
}

// vectorize takes the maximum relative intensity within each bin,
// dropping peaks outside [0, MaxMZ] (spec.md §4.6).
func vectorize(peaks []types.TheoreticalPeak, grid spectrum.Grid) []float64 {
	v := make([]float64, grid.Bins())
	for _, p := range peaks {
		if p.MZ < 0 || p.MZ > grid.MaxMZ {
			continue
		}
		bin := grid.BinOf(p.MZ)
		if p.Intensity > v[bin] {
			v[bin] = p.Intensity
		}
	}
	return v
}
