// Package scoring implements the two-stage scorer: a cheap
// intensity-weighted preliminary score (Sp) that narrows the
// candidate pool, and an FFT-accelerated cross-correlation (XCorr)
// that ranks the survivors.
package scoring

// Preliminary is the intensity-weighted shared-peak score between an
// observed vector v and a theoretical vector t (spec.md §4.7): for
// every bin where the theoretical spectrum predicts a peak, accumulate
// the observed intensity times the theoretical intensity at that bin,
// and count the bin in matches. Cheap by construction so it can
// run over every candidate in a spectrum's mass window before the far
// more expensive XCorr pass.
func Preliminary(v, t []float64) (sp float64, matches int) {
	n := len(v)
	if len(t) < n {
		n = len(t)
	}
	for i := 0; i < n; i++ {
		if t[i] > 0 {
			sp += v[i] * t[i]
			matches++
		}
	}
	return sp, matches
}
