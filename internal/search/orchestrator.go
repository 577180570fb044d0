// Package search runs the per-spectrum search pipeline (C11) over a
// worker pool: each worker preprocesses a spectrum once, scores it
// against both the target and decoy candidate indexes, and emits the
// best-scoring PSM from each. Staged the way the teacher's CRISPR
// Designer.Design runs validate -> find -> filter -> score -> rank as
// one pipeline, generalized here to run per-spectrum on a pool of
// workers instead of once per request.
package search

import (
	"context"
	"log"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/glycovedic/glycosearch/internal/candidateindex"
	"github.com/glycovedic/glycosearch/internal/config"
	serr "github.com/glycovedic/glycosearch/internal/errors"
	"github.com/glycovedic/glycosearch/internal/memory"
	"github.com/glycovedic/glycosearch/internal/reporting"
	"github.com/glycovedic/glycosearch/internal/scoring"
	"github.com/glycovedic/glycosearch/internal/spectrum"
	"github.com/glycovedic/glycosearch/internal/theoretical"
	"github.com/glycovedic/glycosearch/pkg/types"
)

var logger = log.New(os.Stderr, "[SEARCH] ", log.LstdFlags)

// Orchestrator runs a configured search over a spectrum stream.
type Orchestrator struct {
	cfg      config.SearchConfig
	reporter *reporting.Hub
	runID    string
}

// Option configures an Orchestrator beyond its required SearchConfig.
type Option func(*Orchestrator)

// WithReporting makes Run publish EventProgress/EventPSM/EventDone
// messages to hub under runID as it collects results, for a
// reporting.Server's WebSocket route to relay to watching clients.
func WithReporting(hub *reporting.Hub, runID string) Option {
	return func(o *Orchestrator) {
		o.reporter = hub
		o.runID = runID
	}
}

// New returns an Orchestrator for cfg. Callers must have already
// validated cfg (config.SearchConfig.Validate).
func New(cfg config.SearchConfig, opts ...Option) *Orchestrator {
	o := &Orchestrator{cfg: cfg}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Output is the result of a completed (or cancelled) run.
type Output struct {
	PSMs    []types.PSM
	Summary *types.RunSummary
}

// Run searches every spectrum in spectra against targetIdx and, if
// non-nil, decoyIdx, on a pool of cfg.ResolvedWorkers() workers.
// Per-input failures (malformed spectra) are recorded on agg and
// counted in the summary rather than aborting the run; an empty
// targetIdx, or a fatal numerical error from the scorer, aborts it.
// ctx cancellation causes in-flight workers to finish their current
// spectrum and stop; the returned Output holds whatever PSMs were
// produced before cancellation.
func (o *Orchestrator) Run(ctx context.Context, spectra []types.Spectrum, targetIdx, decoyIdx *candidateindex.Index, agg *serr.ErrorAggregator) (*Output, *serr.SearchError) {
	if err := targetIdx.ErrEmpty(); err != nil {
		return nil, err
	}

	grid := spectrum.Grid{BinWidth: o.cfg.BinWidth, MaxMZ: o.cfg.MaxMZ, Regions: o.cfg.Regions}
	summary := types.NewRunSummary()
	summary.SpectraTotal = len(spectra)

	jobs := make(chan types.Spectrum, len(spectra))
	for _, s := range spectra {
		jobs <- s
	}
	close(jobs)

	type outcome struct {
		psms []types.PSM
		skip types.SkipReason
		err  *serr.SearchError
	}
	results := make(chan outcome, len(spectra))

	workers := o.cfg.ResolvedWorkers()
	logger.Printf("starting run: %d spectra, %d workers, %d target candidates", len(spectra), workers, targetIdx.Len())

	var wg sync.WaitGroup
	var fatal sync.Once
	var fatalErr *serr.SearchError
	cancelCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scorer := scoring.NewXCorrScorer()
			memo := make(map[*types.Candidate]types.TheoreticalSpectrum)
			vectors := memory.NewVectorPool(grid.Bins())

			for s := range jobs {
				select {
				case <-cancelCtx.Done():
					continue // drain the queue without processing, per spec.md §5
				default:
				}

				psms, skip, err := processSpectrum(s, targetIdx, decoyIdx, o.cfg, grid, scorer, memo, vectors)
				if err != nil && !err.Recoverable {
					fatal.Do(func() {
						fatalErr = err
						cancel()
					})
					continue
				}
				results <- outcome{psms: psms, skip: skip, err: err}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	var psms []types.PSM
	for r := range results {
		if r.err != nil {
			agg.Add(r.err)
		}
		if r.skip != types.SkipNone {
			summary.SpectraSkipped[r.skip]++
			continue
		}
		summary.SpectraProcessed++
		psms = append(psms, r.psms...)
		o.publishProgress(summary, len(psms), r.psms)
	}

	if fatalErr != nil {
		return nil, fatalErr
	}

	summary.PSMsEmitted = len(psms)
	logger.Printf("run complete: %d spectra processed, %d skipped, %d PSMs emitted", summary.SpectraProcessed, len(spectra)-summary.SpectraProcessed, summary.PSMsEmitted)
	o.publishDone(summary)

	return &Output{PSMs: psms, Summary: summary}, nil
}

// processSpectrum implements spec.md §4.11 steps 1-7 for a single
// spectrum: the same preprocessed vector is scored against both
// indexes, one emitted PSM per index at most.
func processSpectrum(s types.Spectrum, targetIdx, decoyIdx *candidateindex.Index, cfg config.SearchConfig, grid spectrum.Grid, scorer *scoring.XCorrScorer, memo map[*types.Candidate]types.TheoreticalSpectrum, vectors *memory.VectorPool) ([]types.PSM, types.SkipReason, *serr.SearchError) {
	if s.MSLevel != 2 {
		return nil, types.SkipNotMS2, nil
	}
	if s.PrecursorCharge < 1 {
		return nil, types.SkipNoCharge, nil
	}

	targetMatches := targetIdx.Query(s.PrecursorMZ, s.PrecursorCharge, cfg.TolerancePPM)
	var decoyMatches []candidateindex.Match
	if decoyIdx != nil {
		decoyMatches = decoyIdx.Query(s.PrecursorMZ, s.PrecursorCharge, cfg.TolerancePPM)
	}
	if len(targetMatches) == 0 && len(decoyMatches) == 0 {
		return nil, types.SkipNoCandidates, nil
	}

	vb := vectors.Get()
	defer vectors.Put(vb)

	processed, perr := spectrum.PreprocessInto(s, grid, vb.Data)
	if perr != nil {
		return nil, types.SkipMalformed, perr
	}
	if vectorIsZero(processed.Vector) {
		return nil, types.SkipEmptyVector, nil
	}

	var psms []types.PSM
	targetBest, err := bestPSM(s.ScanID, processed, targetMatches, grid, cfg, scorer, memo, false)
	if err != nil {
		return nil, types.SkipNone, err
	}
	if targetBest != nil {
		psms = append(psms, *targetBest)
	}

	decoyBest, err := bestPSM(s.ScanID, processed, decoyMatches, grid, cfg, scorer, memo, true)
	if err != nil {
		return nil, types.SkipNone, err
	}
	if decoyBest != nil {
		psms = append(psms, *decoyBest)
	}

	if len(psms) == 0 {
		return nil, types.SkipNoCandidates, nil
	}
	return psms, types.SkipNone, nil
}

// spCandidate pairs a match with its preliminary score for the Sp
// top-k cut.
type spCandidate struct {
	match   candidateindex.Match
	sp      float64
	matches int
}

// bestPSM runs steps 4-6 of spec.md §4.11 for one side (target or
// decoy) of a spectrum's candidate matches: score every match with Sp,
// keep the top SpTopK, score those with XCorr, and return the single
// highest-XCorr PSM.
func bestPSM(scanID string, processed types.ProcessedSpectrum, matches []candidateindex.Match, grid spectrum.Grid, cfg config.SearchConfig, scorer *scoring.XCorrScorer, memo map[*types.Candidate]types.TheoreticalSpectrum, isDecoy bool) (*types.PSM, *serr.SearchError) {
	if len(matches) == 0 {
		return nil, nil
	}

	spScored := make([]spCandidate, len(matches))
	for i, m := range matches {
		theo := theoreticalFor(m.Candidate, grid, cfg.MaxCharge, memo)
		sp, n := scoring.Preliminary(processed.Vector, theo.Vector)
		spScored[i] = spCandidate{match: m, sp: sp, matches: n}
	}
	sort.SliceStable(spScored, func(i, j int) bool { return spScored[i].sp > spScored[j].sp })
	if len(spScored) > cfg.SpTopK {
		spScored = spScored[:cfg.SpTopK]
	}

	var best *types.PSM
	var bestXCorr float64
	for _, sc := range spScored {
		theo := theoreticalFor(sc.match.Candidate, grid, cfg.MaxCharge, memo)
		xc, serrErr := scorer.Score(processed.Vector, theo.Vector)
		if serrErr != nil {
			return nil, serrErr
		}
		if best == nil || xc > bestXCorr {
			bestXCorr = xc
			psm := types.PSM{
				ScanID:    scanID,
				Candidate: sc.match.Candidate,
				Sp:        sc.sp,
				SpMatches: sc.matches,
				XCorr:     xc,
				PPMError:  sc.match.PPMError,
				IsDecoy:   isDecoy,
			}
			best = &psm
		}
	}
	return best, nil
}

// theoreticalFor builds (or returns the cached) theoretical vector for
// c, memoized by candidate identity within one worker, per spec.md
// §4.11's "memoized per candidate within a run ... kept per worker".
func theoreticalFor(c *types.Candidate, grid spectrum.Grid, maxCharge int, memo map[*types.Candidate]types.TheoreticalSpectrum) types.TheoreticalSpectrum {
	if ts, ok := memo[c]; ok {
		return ts
	}
	ts := theoretical.Build(*c, grid, maxCharge)
	memo[c] = ts
	return ts
}

func vectorIsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// publishProgress emits one EventProgress message and one EventPSM
// message per newly emitted PSM, called from the results-collector
// goroutine so a slow or absent websocket client never blocks a worker.
func (o *Orchestrator) publishProgress(summary *types.RunSummary, totalEmitted int, emitted []types.PSM) {
	if o.reporter == nil {
		return
	}
	now := time.Now().UnixMilli()
	o.reporter.Publish(o.runID, &reporting.Message{
		Type:  reporting.EventProgress,
		RunID: o.runID,
		Payload: reporting.ProgressPayload{
			SpectraProcessed: summary.SpectraProcessed,
			SpectraTotal:     summary.SpectraTotal,
			PSMsEmitted:      totalEmitted,
		},
		Timestamp: now,
	})
	for _, psm := range emitted {
		o.reporter.Publish(o.runID, &reporting.Message{
			Type:      reporting.EventPSM,
			RunID:     o.runID,
			Payload:   psmPayload(psm),
			Timestamp: now,
		})
	}
}

// publishDone emits the final EventDone message carrying summary.
func (o *Orchestrator) publishDone(summary *types.RunSummary) {
	if o.reporter == nil {
		return
	}
	o.reporter.Publish(o.runID, &reporting.Message{
		Type:      reporting.EventDone,
		RunID:     o.runID,
		Payload:   summary,
		Timestamp: time.Now().UnixMilli(),
	})
}

func psmPayload(psm types.PSM) reporting.PSMPayload {
	return reporting.PSMPayload{
		ScanID:      psm.ScanID,
		PeptideSeq:  psm.Candidate.Peptide.Sequence,
		ProteinID:   psm.Candidate.Peptide.ProteinID,
		GlycanComp:  psm.Candidate.Glycan.Composition,
		NeutralMass: psm.Candidate.NeutralMass,
		Sp:          psm.Sp,
		XCorr:       psm.XCorr,
		PPMError:    psm.PPMError,
		IsDecoy:     psm.IsDecoy,
	}
}
