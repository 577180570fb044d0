// Package types - Shared constants for the glycopeptide search engine.
package types

// Default search parameters. Components read these through
// internal/config.SearchConfig, whose Default() copies them in.
const (
	DefaultMissedCleavages = 2
	DefaultMinPeptideLen   = 6
	DefaultMaxPeptideLen   = 40
	DefaultTolerancePPM    = 10.0
	DefaultSpTopK          = 500
	DefaultMaxCharge       = 2
	DefaultBinWidth        = 1.000508
	DefaultMaxMZ           = 2000.0
	DefaultRegions         = 10
	DefaultFDRThreshold    = 0.01
	DefaultDecoyFactor     = 2
)
