package symptomrx

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// binaryProblem is the weighted L2-regularized logistic objective of one
// one-vs-rest model:
//
//	½‖w‖² (+ ½b² when PenalizeBias) + C Σ sᵢ log(1 + exp(−yᵢ(w·xᵢ + b)))
//
// Parameters are laid out as [w₀ … w_{Dim−1}, b].
type binaryProblem struct {
	X            []Vector
	Y            []float64
	S            []float64
	Dim          int
	C            float64
	PenalizeBias bool
}

func (p *binaryProblem) margin(i int, params []float64) float64 {
	return p.X[i].Dot(params[:p.Dim]) + params[p.Dim]
}

func (p *binaryProblem) objective(params []float64) float64 {
	w := params[:p.Dim]
	reg := 0.5 * floats.Dot(w, w)
	if p.PenalizeBias {
		reg += 0.5 * params[p.Dim] * params[p.Dim]
	}
	var loss float64
	for i := range p.X {
		loss += p.S[i] * logLoss(p.Y[i]*p.margin(i, params))
	}
	return reg + p.C*loss
}

func (p *binaryProblem) gradient(grad, params []float64) {
	copy(grad, params)
	if !p.PenalizeBias {
		grad[p.Dim] = 0
	}
	for i := range p.X {
		d := p.C * p.S[i] * p.lossDerivative(i, params)
		p.X[i].AddTo(grad[:p.Dim], d)
		grad[p.Dim] += d
	}
}

// lossDerivative is d/dm of log(1+exp(−y·m)) at sample i.
func (p *binaryProblem) lossDerivative(i int, params []float64) float64 {
	y := p.Y[i]
	return -y * sigmoid(-y*p.margin(i, params))
}

// fitBatch minimizes the full objective with gonum: nonlinear conjugate
// gradient for liblinear, L-BFGS otherwise.
func fitBatch(p *binaryProblem, solver Solver, opts ClassifierOptions) ([]float64, error) {
	problem := optimize.Problem{
		Func: p.objective,
		Grad: p.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: opts.Tol,
		MajorIterations:   opts.MaxIter,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 50,
		},
	}
	var method optimize.Method = &optimize.LBFGS{}
	if solver == SolverLiblinear {
		method = &optimize.CG{}
	}
	res, err := optimize.Minimize(problem, make([]float64, p.Dim+1), settings, method)
	if res == nil {
		return nil, err
	}
	// Line-search stalls near the optimum are reported as errors; the best
	// location found is still usable as long as it is finite.
	if err != nil && !allFinite(res.X) {
		return nil, err
	}
	return res.X, nil
}

// fitSAGA runs SAGA on the per-sample form of the objective,
// (1/n) Σ sᵢ ℓᵢ + λ/2 ‖w‖² with λ = 1/(C·n), which has the same minimizer.
// The L2 term is applied as a proximal step and the intercept is not penalized.
//
// Weights are stored as w = scale·v. Coordinates outside the sampled row are
// updated just in time: between two visits a coordinate only receives the
// constant averaged-gradient term, so its pending updates collapse into one
// multiply by the accumulated step sum. Each step costs O(nnz) instead of O(dim).
func fitSAGA(p *binaryProblem, opts ClassifierOptions, rng *rand.Rand) ([]float64, error) {
	n := len(p.X)
	nf := float64(n)
	lambda := 1 / (p.C * nf)

	var lmax float64
	for i, x := range p.X {
		// Logistic loss is ¼-smooth; the intercept adds a constant unit feature.
		if l := 0.25 * p.S[i] * (x.SquaredNorm() + 1); l > lmax {
			lmax = l
		}
	}
	if lmax == 0 {
		return make([]float64, p.Dim+1), nil
	}
	step := 1 / (3 * lmax)
	shrink := 1 / (1 + step*lambda)

	st := newSAGAState(p.Dim, step/nf)
	prev := make([]float64, p.Dim+1)
	params := make([]float64, p.Dim+1)
	memory := make([]float64, n)
	var bias, sumGradBias float64

	for epoch := 0; epoch < opts.MaxIter; epoch++ {
		copy(prev, params)
		for t := 0; t < n; t++ {
			j := rng.IntN(n)
			x := p.X[j]
			st.catchUp(x)

			y := p.Y[j]
			margin := st.scale*x.Dot(st.v) + bias
			g := -p.S[j] * y * sigmoid(-y*margin)
			delta := g - memory[j]

			st.step(x, delta, step)
			bias -= step * (delta + sumGradBias/nf)
			sumGradBias += delta
			memory[j] = g

			st.scale *= shrink
			if st.scale < sagaMinScale {
				st.flush()
			}
		}
		st.flush()
		copy(params, st.v)
		params[p.Dim] = bias
		if !allFinite(params) {
			return nil, ErrDiverged
		}
		var change, scale float64
		for k := range params {
			change = math.Max(change, math.Abs(params[k]-prev[k]))
			scale = math.Max(scale, math.Abs(params[k]))
		}
		if change == 0 || (scale > 0 && change/scale <= opts.Tol) {
			break
		}
	}
	return params, nil
}

// sagaMinScale triggers a rescale before 1/scale loses precision.
const sagaMinScale = 1e-9

// sagaState holds the lazily updated SAGA weights.
type sagaState struct {
	v     []float64
	scale float64
	// sumGrad is Σᵢ memoryᵢ·xᵢ over the weight coordinates.
	sumGrad []float64
	// cum accumulates rate/scale per step; lastCum records where each coordinate caught up.
	cum     float64
	lastCum []float64
	rate    float64
}

func newSAGAState(dim int, rate float64) *sagaState {
	return &sagaState{
		v:       make([]float64, dim),
		scale:   1,
		sumGrad: make([]float64, dim),
		lastCum: make([]float64, dim),
		rate:    rate,
	}
}

// catchUp applies the averaged-gradient updates x's coordinates missed.
func (s *sagaState) catchUp(x Vector) {
	for _, k := range x.Indices {
		s.v[k] -= s.sumGrad[k] * (s.cum - s.lastCum[k])
		s.lastCum[k] = s.cum
	}
}

// step performs w ← w − rate·sumGrad − stepSize·delta·x at the current scale,
// then folds delta·x into sumGrad. The caller applies the shrink to scale.
func (s *sagaState) step(x Vector, delta, stepSize float64) {
	s.cum += s.rate / s.scale
	for k, idx := range x.Indices {
		s.v[idx] -= s.sumGrad[idx]*(s.cum-s.lastCum[idx]) + stepSize*delta*x.Values[k]/s.scale
		s.lastCum[idx] = s.cum
	}
	x.AddTo(s.sumGrad, delta)
}

// flush brings every coordinate up to date and folds scale into v.
func (s *sagaState) flush() {
	for k := range s.v {
		s.v[k] -= s.sumGrad[k] * (s.cum - s.lastCum[k])
		s.v[k] *= s.scale
		s.lastCum[k] = 0
	}
	s.cum = 0
	s.scale = 1
}
