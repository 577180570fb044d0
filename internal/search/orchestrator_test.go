package search

import (
	"context"
	"testing"
	"time"

	"github.com/glycovedic/glycosearch/internal/candidateindex"
	"github.com/glycovedic/glycosearch/internal/config"
	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/glycan"
	"github.com/glycovedic/glycosearch/internal/massmodel"
	"github.com/glycovedic/glycosearch/internal/peptide"
	"github.com/glycovedic/glycosearch/internal/reporting"
	"github.com/glycovedic/glycosearch/internal/spectrum"
	"github.com/glycovedic/glycosearch/internal/theoretical"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// findSequonCandidate returns the one candidate with a sequon-bearing
// peptide built from peptides and g, for deriving the test spectrum's
// true precursor mass.
func findSequonCandidate(t *testing.T, peptides []types.Peptide, g types.Glycan) types.Candidate {
	t.Helper()
	for i := range peptides {
		if len(peptides[i].Sequons) > 0 {
			return types.Candidate{Peptide: &peptides[i], Glycan: &g, NeutralMass: peptides[i].Mass + g.Mass}
		}
	}
	t.Fatal("no sequon-bearing peptide found")
	return types.Candidate{}
}

func TestOrchestratorRunFindsTruePSM(t *testing.T) {
	protein := types.Protein{ID: "P1", Sequence: "MKNGTDEK"}
	peptides, derr := peptide.Digest(protein, peptide.Options{
		Enzyme: peptide.Trypsin, MissedCleavages: 0, MinLength: 1, MaxLength: 40,
	})
	if derr != nil {
		t.Fatalf("digest failed: %v", derr)
	}
	g, gerr := glycan.Parse("H5N2")
	if gerr != nil {
		t.Fatalf("glycan parse failed: %v", gerr)
	}

	idx := candidateindex.Build(peptides, []types.Glycan{g})
	if idx.Len() != 1 {
		t.Fatalf("expected exactly 1 candidate, got %d", idx.Len())
	}

	cfg := config.Default()
	grid := spectrum.Grid{BinWidth: cfg.BinWidth, MaxMZ: cfg.MaxMZ, Regions: cfg.Regions}

	truth := idx.Query(massmodel.MZFromNeutralMass(findSequonCandidate(t, peptides, g).NeutralMass, 2), 2, cfg.TolerancePPM)
	if len(truth) != 1 {
		t.Fatalf("expected the true candidate to be found, got %d matches", len(truth))
	}
	candidate := truth[0].Candidate

	ts := theoretical.Build(*candidate, grid, cfg.MaxCharge)
	mzs := make([]float64, 0, len(ts.Peaks))
	intensities := make([]float64, 0, len(ts.Peaks))
	for _, p := range ts.Peaks {
		mzs = append(mzs, p.MZ)
		intensities = append(intensities, 100.0)
	}

	spec := types.Spectrum{
		ScanID:           "scan-1",
		MSLevel:          2,
		PrecursorMZ:      massmodel.MZFromNeutralMass(candidate.NeutralMass, 2),
		PrecursorMZIsSet: true,
		PrecursorCharge:  2,
		MZ:               mzs,
		Intensity:        intensities,
	}

	orch := New(cfg)
	agg := serr.NewErrorAggregator(nil)
	out, err := orch.Run(context.Background(), []types.Spectrum{spec}, idx, nil, agg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(agg.Errors()) != 0 {
		t.Fatalf("unexpected aggregated errors: %v", agg.Errors())
	}
	if out.Summary.SpectraProcessed != 1 {
		t.Errorf("SpectraProcessed = %d, want 1", out.Summary.SpectraProcessed)
	}
	if len(out.PSMs) != 1 {
		t.Fatalf("expected exactly 1 PSM, got %d", len(out.PSMs))
	}
	psm := out.PSMs[0]
	if psm.Candidate.Peptide.Sequence != candidate.Peptide.Sequence {
		t.Errorf("PSM matched peptide %q, want %q", psm.Candidate.Peptide.Sequence, candidate.Peptide.Sequence)
	}
	if psm.IsDecoy {
		t.Error("PSM from the target index must not be flagged as decoy")
	}
	if psm.XCorr <= 0 {
		t.Errorf("expected a positive XCorr for a spectrum built from the candidate's own theoretical peaks, got %v", psm.XCorr)
	}
}

func TestOrchestratorSkipsNonMS2AndNoCharge(t *testing.T) {
	idx, _ := buildTestIndexSimple(t)
	cfg := config.Default()
	orch := New(cfg)
	agg := serr.NewErrorAggregator(nil)

	spectra := []types.Spectrum{
		{ScanID: "ms1", MSLevel: 1, PrecursorCharge: 2},
		{ScanID: "nocharge", MSLevel: 2, PrecursorCharge: 0},
	}
	out, err := orch.Run(context.Background(), spectra, idx, nil, agg)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.Summary.SpectraSkipped[types.SkipNotMS2] != 1 {
		t.Errorf("expected 1 spectrum skipped for not-MS2, got %d", out.Summary.SpectraSkipped[types.SkipNotMS2])
	}
	if out.Summary.SpectraSkipped[types.SkipNoCharge] != 1 {
		t.Errorf("expected 1 spectrum skipped for no-charge, got %d", out.Summary.SpectraSkipped[types.SkipNoCharge])
	}
	if len(out.PSMs) != 0 {
		t.Errorf("expected no PSMs, got %d", len(out.PSMs))
	}
}

func buildTestIndexSimple(t *testing.T) (*candidateindex.Index, types.Glycan) {
	t.Helper()
	protein := types.Protein{ID: "P1", Sequence: "MKNGTDEK"}
	peptides, err := peptide.Digest(protein, peptide.Options{
		Enzyme: peptide.Trypsin, MissedCleavages: 0, MinLength: 1, MaxLength: 40,
	})
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	g, gerr := glycan.Parse("H5N2")
	if gerr != nil {
		t.Fatalf("glycan parse failed: %v", gerr)
	}
	return candidateindex.Build(peptides, []types.Glycan{g}), g
}

func TestOrchestratorEmptyIndexIsFatal(t *testing.T) {
	empty := candidateindex.Build(nil, nil)
	orch := New(config.Default())
	agg := serr.NewErrorAggregator(nil)
	_, err := orch.Run(context.Background(), nil, empty, nil, agg)
	if err == nil {
		t.Fatal("expected EmptyIndexError for an empty target index")
	}
}

func TestOrchestratorPublishesProgressAndDoneEvents(t *testing.T) {
	idx, g := buildTestIndexSimple(t)
	cfg := config.Default()

	hub := reporting.NewHub()
	orch := New(cfg, WithReporting(hub, "run-xyz"))
	agg := serr.NewErrorAggregator(nil)

	grid := spectrum.Grid{BinWidth: cfg.BinWidth, MaxMZ: cfg.MaxMZ, Regions: cfg.Regions}
	peptides, _ := peptide.Digest(types.Protein{ID: "P1", Sequence: "MKNGTDEK"}, peptide.Options{
		Enzyme: peptide.Trypsin, MissedCleavages: 0, MinLength: 1, MaxLength: 40,
	})
	candidate := findSequonCandidate(t, peptides, g)
	ts := theoretical.Build(candidate, grid, cfg.MaxCharge)
	mzs := make([]float64, 0, len(ts.Peaks))
	intensities := make([]float64, 0, len(ts.Peaks))
	for _, p := range ts.Peaks {
		mzs = append(mzs, p.MZ)
		intensities = append(intensities, 100.0)
	}
	spec := types.Spectrum{
		ScanID: "scan-1", MSLevel: 2,
		PrecursorMZ: massmodel.MZFromNeutralMass(candidate.NeutralMass, 2), PrecursorMZIsSet: true, PrecursorCharge: 2,
		MZ: mzs, Intensity: intensities,
	}

	// Not asserting on delivery here (that is hub_test.go's job); this
	// just confirms Run with a reporting hub attached completes cleanly
	// and never blocks waiting on a websocket client that never connects.
	done := make(chan struct{})
	go func() {
		_, err := orch.Run(context.Background(), []types.Spectrum{spec}, idx, nil, agg)
		if err != nil {
			t.Errorf("Run failed: %v", err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not complete; reporting publish may be blocking")
	}
}
