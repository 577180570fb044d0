// Package types - Core data structures for the glycopeptide search engine.
package types

// Protein is an entry from the sequence database. Immutable once parsed.
type Protein struct {
	ID          string
	Description string
	Sequence    string
}

// Peptide is a digestion product of a Protein. Immutable once produced.
type Peptide struct {
	Sequence        string
	ProteinID       string
	Start           int // 1-based, inclusive
	End             int // 1-based, inclusive
	MissedCleavages int
	Mass            float64
	Sequons         []int // 1-based positions of the sequon N
	IsDecoy         bool
}

// GlycanClass partitions glycan compositions into structural families.
type GlycanClass string

const (
	ClassHighMannose      GlycanClass = "High-Mannose"
	ClassFucosylated      GlycanClass = "Fucosylated"
	ClassSialylated       GlycanClass = "Sialylated"
	ClassSialofucosylated GlycanClass = "Sialofucosylated"
	ClassComplexHybrid    GlycanClass = "Complex/Hybrid"
)

// Glycan is a parsed glycan composition.
type Glycan struct {
	Composition string // e.g. "H5N4F1A2"
	H, N, F, A  int
	Mass        float64
	Class       GlycanClass
}

// Candidate is a (peptide, glycan) pair with precomputed neutral mass.
type Candidate struct {
	NeutralMass float64
	Peptide     *Peptide
	Glycan      *Glycan
}

// Spectrum is an observed MS/MS spectrum.
type Spectrum struct {
	ScanID           string
	RetentionTime    float64
	MSLevel          int
	PrecursorMZ      float64
	PrecursorMZIsSet bool
	PrecursorCharge  int
	MZ               []float64
	Intensity        []float64
}

// ProcessedSpectrum is the fixed-length, binned, normalized vector derived
// from a Spectrum by the preprocessor (C5).
type ProcessedSpectrum struct {
	ScanID          string
	PrecursorMZ     float64
	PrecursorCharge int
	Vector          []float64
}

// IonKind labels a theoretical fragment peak.
type IonKind string

const (
	IonB       IonKind = "b"
	IonY       IonKind = "y"
	IonY0      IonKind = "Y0"
	IonOxonium IonKind = "oxonium"
)

// TheoreticalPeak is one predicted fragment ion.
type TheoreticalPeak struct {
	MZ        float64
	Intensity float64 // relative, in (0, 1]
	Label     string  // e.g. "b3^1", "y5^2", "y5^1+glycan", "oxonium-204.0867"
	Kind      IonKind
	Charge    int
}

// TheoreticalSpectrum is a candidate's predicted fragments, both as a
// peak list and vectorized onto the shared bin grid.
type TheoreticalSpectrum struct {
	Peaks  []TheoreticalPeak
	Vector []float64
}

// PSM is a peptide-spectrum match: one candidate scored against one
// spectrum.
type PSM struct {
	ScanID    string
	Candidate *Candidate
	Sp        float64
	SpMatches int
	XCorr     float64
	PPMError  float64
	IsDecoy   bool
	QValue    float64
	QValueSet bool
}

// SkipReason names why a spectrum was not searched.
type SkipReason string

const (
	SkipNone         SkipReason = ""
	SkipNotMS2       SkipReason = "not_ms2"
	SkipNoCharge     SkipReason = "no_charge"
	SkipNoCandidates SkipReason = "no_candidates"
	SkipMalformed    SkipReason = "malformed_spectrum"
	SkipEmptyVector  SkipReason = "empty_preprocessed_vector"
)

// RunSummary aggregates counts and distributions for a completed or
// in-flight search, consumed by the reporting layer.
type RunSummary struct {
	ProteinsParsed   int
	ProteinsRejected int
	PeptidesProduced int
	PeptidesNoSequon int
	GlycansParsed    int
	GlycansRejected  int
	SpectraTotal     int
	SpectraProcessed int
	SpectraSkipped   map[SkipReason]int
	PSMsEmitted      int
	PSMsPassingFDR   int
	TargetScoreMin   float64
	TargetScoreMax   float64
	TargetScoreMean  float64
	DecoyScoreMin    float64
	DecoyScoreMax    float64
	DecoyScoreMean   float64
}

// NewRunSummary returns a RunSummary with its map initialized.
func NewRunSummary() *RunSummary {
	return &RunSummary{
		SpectraSkipped: make(map[SkipReason]int),
	}
}
