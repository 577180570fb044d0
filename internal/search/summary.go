package search

import "github.com/glycovedic/glycosearch/pkg/types"

// FinalizeSummary fills in the score-distribution and FDR-survival
// fields of summary from psms, which must already have gone through
// fdr.Estimate (QValueSet true on every entry) if fdrThreshold-based
// counting is desired. Safe to call with psms that have not been
// FDR-scored; PSMsPassingFDR is then left at 0.
func FinalizeSummary(summary *types.RunSummary, psms []types.PSM, fdrThreshold float64) {
	var targetCount, decoyCount int
	var targetSum, decoySum float64
	summary.TargetScoreMin, summary.DecoyScoreMin = 0, 0

	for _, p := range psms {
		if p.IsDecoy {
			decoyCount++
			decoySum += p.XCorr
			if decoyCount == 1 || p.XCorr < summary.DecoyScoreMin {
				summary.DecoyScoreMin = p.XCorr
			}
			if p.XCorr > summary.DecoyScoreMax {
				summary.DecoyScoreMax = p.XCorr
			}
		} else {
			targetCount++
			targetSum += p.XCorr
			if targetCount == 1 || p.XCorr < summary.TargetScoreMin {
				summary.TargetScoreMin = p.XCorr
			}
			if p.XCorr > summary.TargetScoreMax {
				summary.TargetScoreMax = p.XCorr
			}
		}
		if p.QValueSet && p.QValue <= fdrThreshold {
			summary.PSMsPassingFDR++
		}
	}

	if targetCount > 0 {
		summary.TargetScoreMean = targetSum / float64(targetCount)
	}
	if decoyCount > 0 {
		summary.DecoyScoreMean = decoySum / float64(decoyCount)
	}
}
