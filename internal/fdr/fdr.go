// Package fdr estimates empirical false-discovery rates from a
// combined target/decoy PSM population and assigns monotone q-values
// (spec.md §4.10).
package fdr

import (
	"sort"

	"github.com/glycovedic/glycosearch/pkg/types"
)

// DefaultDecoyFactor is the multiplier applied to the decoy count when
// estimating FDR (spec.md §6), the same value as
// types.DefaultDecoyFactor: 2 for targets and decoys searched as two
// separate, equal-size libraries.
const DefaultDecoyFactor = 2.0

// Estimate assigns a QValue to every PSM in psms (a mixed target/decoy
// population scored by the same metric, typically XCorr) and returns
// them sorted by descending score with QValueSet true on each. decoyFactor
// scales the decoy count in the FDR formula; pass DefaultDecoyFactor
// for separately searched target and decoy libraries, or 1 for an
// unweighted count.
func Estimate(psms []types.PSM, decoyFactor float64) []types.PSM {
	out := make([]types.PSM, len(psms))
	copy(out, psms)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].XCorr > out[j].XCorr
	})

	fdrAt := make([]float64, len(out))
	var targets, decoys int
	for i := range out {
		if out[i].IsDecoy {
			decoys++
		} else {
			targets++
		}
		fdrAt[i] = fdrValue(targets, decoys, decoyFactor)
	}

	// q-value[i] = min(fdr[i..end]), the standard monotone-minimum walk
	// from the worst (lowest-score) end back to the best, so that a
	// q-value never increases as the score improves.
	qval := make([]float64, len(out))
	running := 1.0
	for i := len(out) - 1; i >= 0; i-- {
		if fdrAt[i] < running {
			running = fdrAt[i]
		}
		qval[i] = running
	}

	for i := range out {
		out[i].QValue = qval[i]
		out[i].QValueSet = true
	}
	return out
}

// fdrValue computes decoyFactor*D/(T+D), defined as 0 when there are
// no PSMs yet observed at this rank.
func fdrValue(targets, decoys int, decoyFactor float64) float64 {
	total := targets + decoys
	if total == 0 {
		return 0
	}
	return decoyFactor * float64(decoys) / float64(total)
}

// FilterByQValue returns the PSMs in psms (already Estimate'd) whose
// QValue is at most threshold, preserving order.
func FilterByQValue(psms []types.PSM, threshold float64) []types.PSM {
	var kept []types.PSM
	for _, p := range psms {
		if p.QValueSet && p.QValue <= threshold {
			kept = append(kept, p)
		}
	}
	return kept
}
