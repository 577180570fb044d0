// Package reporting exposes an in-flight or completed search over HTTP
// and WebSocket: a run summary and skip-reason breakdown via gorilla/mux
// routes, and a live PSM/progress feed via a gorilla/websocket hub. None
// of it sits on the per-spectrum scoring path; internal/search feeds it
// from the results-collector goroutine, outside the worker pool.
package reporting

// EventType identifies the kind of payload carried by a Message.
type EventType string

const (
	// EventProgress reports how far an in-flight run has gotten.
	EventProgress EventType = "progress"
	// EventPSM announces one emitted peptide-spectrum match.
	EventPSM EventType = "psm"
	// EventDone marks a run's completion, carrying its final summary.
	EventDone EventType = "done"
)

// Message is the JSON envelope broadcast to clients watching a run.
type Message struct {
	Type      EventType   `json:"type"`
	RunID     string      `json:"run_id"`
	Payload   interface{} `json:"payload"`
	Timestamp int64       `json:"timestamp"`
}

// ProgressPayload is the EventProgress payload.
type ProgressPayload struct {
	SpectraProcessed int `json:"spectra_processed"`
	SpectraTotal     int `json:"spectra_total"`
	PSMsEmitted      int `json:"psms_emitted"`
}

// PSMPayload is the EventPSM payload, a flattened view of types.PSM
// suitable for JSON (avoids serializing the Candidate's internal
// pointer graph).
type PSMPayload struct {
	ScanID      string  `json:"scan_id"`
	PeptideSeq  string  `json:"peptide_sequence"`
	ProteinID   string  `json:"protein_id"`
	GlycanComp  string  `json:"glycan_composition"`
	NeutralMass float64 `json:"neutral_mass"`
	Sp          float64 `json:"sp"`
	XCorr       float64 `json:"xcorr"`
	PPMError    float64 `json:"ppm_error"`
	IsDecoy     bool    `json:"is_decoy"`
}
