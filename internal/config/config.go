// Package config collects the recognized search parameters (spec.md
// §6) into one validated struct, following the teacher's convention
// of grouping related constants with doc comments naming the domain
// reasoning behind each default.
package config

import (
	"runtime"

	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/peptide"
	"github.com/glycovedic/glycosearch/pkg/types"
)

// SearchConfig collects every recognized parameter for a search run.
// Zero-value construction is deliberately unsafe — callers MUST start
// from Default() and override only the fields they need, then call
// Validate before the run starts.
type SearchConfig struct {
	// Digestion
	Enzyme          peptide.Enzyme
	MissedCleavages int
	MinPeptideLen   int
	MaxPeptideLen   int

	// Candidate matching
	TolerancePPM float64
	SpTopK       int

	// Fragmentation / scoring
	MaxCharge int
	BinWidth  float64
	MaxMZ     float64
	Regions   int

	// FDR
	FDRThreshold float64
	DecoyFactor  float64

	// Concurrency. Workers <= 0 means "auto": runtime.GOMAXPROCS(0).
	Workers int
}

// Default returns the parameter table of spec.md §6 with Workers set
// to auto (resolved by ResolvedWorkers, not stored eagerly, so the
// config stays comparable and serializable without sampling the host
// at construction time).
func Default() SearchConfig {
	return SearchConfig{
		Enzyme:          peptide.Trypsin,
		MissedCleavages: types.DefaultMissedCleavages,
		MinPeptideLen:   types.DefaultMinPeptideLen,
		MaxPeptideLen:   types.DefaultMaxPeptideLen,
		TolerancePPM:    types.DefaultTolerancePPM,
		SpTopK:          types.DefaultSpTopK,
		MaxCharge:       types.DefaultMaxCharge,
		BinWidth:        types.DefaultBinWidth,
		MaxMZ:           types.DefaultMaxMZ,
		Regions:         types.DefaultRegions,
		FDRThreshold:    types.DefaultFDRThreshold,
		DecoyFactor:     types.DefaultDecoyFactor,
		Workers:         0,
	}
}

// ResolvedWorkers returns Workers if positive, otherwise
// runtime.GOMAXPROCS(0) (spec.md §6: "workers: auto").
func (c SearchConfig) ResolvedWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Validate rejects a configuration that would make the rest of the
// pipeline silently misbehave, per spec.md §7's "fatal at startup"
// policy for configuration errors: an unrecognized enzyme name, a
// non-positive bin width or max m/z, or an inverted peptide-length
// range.
func (c SearchConfig) Validate() *serr.SearchError {
	if _, err := peptide.RuleFor(c.Enzyme); err != nil {
		return err
	}
	if c.BinWidth <= 0 {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal, "bin_width must be positive").
			WithMetadata("bin_width", c.BinWidth)
	}
	if c.MaxMZ <= 0 {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal, "max_mz must be positive").
			WithMetadata("max_mz", c.MaxMZ)
	}
	if c.MinPeptideLen <= 0 || c.MaxPeptideLen < c.MinPeptideLen {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal,
			"min_peptide_length must be positive and at most max_peptide_length").
			WithMetadata("min_peptide_length", c.MinPeptideLen).
			WithMetadata("max_peptide_length", c.MaxPeptideLen)
	}
	if c.MissedCleavages < 0 {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal, "missed_cleavages must be non-negative")
	}
	if c.MaxCharge < 1 {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal, "max_charge must be at least 1")
	}
	if c.Regions <= 0 {
		return serr.New(serr.ErrInvalidConfig, serr.SeverityFatal, "regions must be positive")
	}
	return nil
}
