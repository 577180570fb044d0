package scoring

import (
	"errors"
	"math"
	"math/cmplx"
	"sync"

	algofft "github.com/cwbudde/algo-fft"

	serr "github.com/glycovedic/glycosearch/internal/errors"
)

// LagWindow is the number of bins either side of lag 0 scanned for the
// background estimate (spec.md §4.8, L = 75).
const LagWindow = 75

// xcorrPlan caches the FFT plans and scratch buffers for one
// transform size, mirroring the lagFFTPlan pattern used for audio
// lag-correlation: a fast real plan when available, a safe plan as
// fallback, reused across calls instead of reallocated.
type xcorrPlan struct {
	mu sync.Mutex
	n  int

	fast *algofft.FastPlanReal64
	safe *algofft.PlanRealT[float64, complex128]

	vPad, tPad []float64
	specV      []complex128
	specT      []complex128
	corr       []float64
}

// XCorrScorer computes background-subtracted cross-correlation scores.
// One scorer is owned per worker goroutine so its FFT plan cache never
// needs cross-thread synchronization beyond the scorer's own mutex
// (spec.md §5: "FFT plans are per-worker to avoid contention").
type XCorrScorer struct {
	plans sync.Map // map[int]*xcorrPlan
}

// NewXCorrScorer returns a scorer with an empty plan cache.
func NewXCorrScorer() *XCorrScorer {
	return &XCorrScorer{}
}

// Score computes XCorr = R[0] - mean(R[tau]) over tau in [-L, L] \
// {-1, 0, 1}, where R is the cross-correlation of v and t computed via
// FFT (spec.md §4.8). v and t must be the same length (the shared bin
// grid). Returns NumericalError if the FFT produces a non-finite value.
func (s *XCorrScorer) Score(v, t []float64) (float64, *serr.SearchError) {
	b := len(v)
	n := nextPow2(b + 2*LagWindow)

	plan, err := s.getPlan(n)
	if err != nil {
		return 0, serr.Wrap(serr.ErrNumerical, serr.SeverityFatal, "failed to build FFT plan", err)
	}

	plan.mu.Lock()
	defer plan.mu.Unlock()

	clearFloats(plan.vPad)
	clearFloats(plan.tPad)
	copy(plan.vPad, v)
	copy(plan.tPad, t)

	if err := plan.forward(plan.specV, plan.vPad); err != nil {
		return 0, serr.Wrap(serr.ErrNumerical, serr.SeverityFatal, "forward FFT failed", err)
	}
	if err := plan.forward(plan.specT, plan.tPad); err != nil {
		return 0, serr.Wrap(serr.ErrNumerical, serr.SeverityFatal, "forward FFT failed", err)
	}
	for i := range plan.specV {
		plan.specV[i] *= cmplx.Conj(plan.specT[i])
	}
	if err := plan.inverse(plan.corr, plan.specV); err != nil {
		return 0, serr.Wrap(serr.ErrNumerical, serr.SeverityFatal, "inverse FFT failed", err)
	}

	r := func(tau int) float64 {
		idx := tau
		if idx < 0 {
			idx += plan.n
		}
		return plan.corr[idx]
	}

	var bgSum float64
	var bgCount int
	for tau := -LagWindow; tau <= LagWindow; tau++ {
		if tau >= -1 && tau <= 1 {
			continue
		}
		val := r(tau)
		if !isFinite(val) {
			return 0, serr.New(serr.ErrNumerical, serr.SeverityFatal, "FFT produced a non-finite correlation value")
		}
		bgSum += val
		bgCount++
	}
	background := 0.0
	if bgCount > 0 {
		background = bgSum / float64(bgCount)
	}

	r0 := r(0)
	if !isFinite(r0) {
		return 0, serr.New(serr.ErrNumerical, serr.SeverityFatal, "FFT produced a non-finite correlation value")
	}

	return r0 - background, nil
}

func (s *XCorrScorer) getPlan(n int) (*xcorrPlan, error) {
	if v, ok := s.plans.Load(n); ok {
		return v.(*xcorrPlan), nil
	}

	p := &xcorrPlan{
		n:     n,
		vPad:  make([]float64, n),
		tPad:  make([]float64, n),
		specV: make([]complex128, n/2+1),
		specT: make([]complex128, n/2+1),
		corr:  make([]float64, n),
	}

	fast, err := algofft.NewFastPlanReal64(n)
	if err == nil {
		p.fast = fast
	} else if !errors.Is(err, algofft.ErrNotImplemented) {
		return nil, err
	}

	safe, err := algofft.NewPlanReal64(n)
	if err != nil {
		if p.fast == nil {
			return nil, err
		}
	} else {
		p.safe = safe
	}

	actual, _ := s.plans.LoadOrStore(n, p)
	return actual.(*xcorrPlan), nil
}

func (p *xcorrPlan) forward(dst []complex128, src []float64) error {
	if p.fast != nil {
		p.fast.Forward(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Forward(dst, src)
	}
	return errors.New("scoring: missing FFT forward plan")
}

func (p *xcorrPlan) inverse(dst []float64, src []complex128) error {
	if p.fast != nil {
		p.fast.Inverse(dst, src)
		return nil
	}
	if p.safe != nil {
		return p.safe.Inverse(dst, src)
	}
	return errors.New("scoring: missing FFT inverse plan")
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func clearFloats(s []float64) {
	for i := range s {
		s[i] = 0
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
