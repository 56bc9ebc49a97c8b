package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	maxIterations = 2000
	startAlpha    = 0.3
	startBeta     = 0.1
	startGamma    = 0.1
)

// Params are the smoothing weights, each in (0, 1). Beta and Gamma are zero when
// the matching component is disabled.
type Params struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
}

type smoothingState struct {
	level  float64
	trend  float64
	season []float64
}

func (s smoothingState) clone() smoothingState {
	c := s
	if s.season != nil {
		c.season = append([]float64(nil), s.season...)
	}
	return c
}

// holtWinters is a fitted additive exponential smoothing model.
type holtWinters struct {
	cfg    Config
	params Params
	final  smoothingState
	n      int
	sse    float64
}

func initialState(y []float64, cfg Config) smoothingState {
	if cfg.Seasonal != Additive {
		// Level sits one step before y[0] so the first prediction is y[0].
		s := smoothingState{level: y[0]}
		if cfg.Trend == Additive && len(y) > 1 {
			s.trend = y[1] - y[0]
			s.level -= s.trend
		}
		return s
	}

	m := cfg.SeasonalPeriod
	first := floats.Sum(y[:m]) / float64(m)
	s := smoothingState{level: first, season: make([]float64, m)}
	if cfg.Trend == Additive {
		second := floats.Sum(y[m:2*m]) / float64(m)
		s.trend = (second - first) / float64(m)
	}
	for i := range m {
		s.season[i] = y[i] - first
	}
	return s
}

// smooth runs the additive recursions over y from init and returns the final state
// together with the one-step-ahead sum of squared errors.
func smooth(y []float64, cfg Config, p Params, init smoothingState) (smoothingState, float64) {
	s := init.clone()
	var sse float64
	for t, obs := range y {
		var seasonal float64
		idx := 0
		if s.season != nil {
			idx = t % len(s.season)
			seasonal = s.season[idx]
		}

		resid := obs - (s.level + s.trend + seasonal)
		sse += resid * resid

		prevLevel := s.level
		s.level = p.Alpha*(obs-seasonal) + (1-p.Alpha)*(s.level+s.trend)
		if cfg.Trend == Additive {
			s.trend = p.Beta*(s.level-prevLevel) + (1-p.Beta)*s.trend
		}
		if s.season != nil {
			s.season[idx] = p.Gamma*(obs-s.level) + (1-p.Gamma)*seasonal
		}
	}
	return s, sse
}

func logistic(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

func logit(p float64) float64 { return math.Log(p / (1 - p)) }

func (c Config) decode(x []float64) Params {
	p := Params{Alpha: logistic(x[0])}
	i := 1
	if c.Trend == Additive {
		p.Beta = logistic(x[i])
		i++
	}
	if c.Seasonal == Additive {
		p.Gamma = logistic(x[i])
	}
	return p
}

func (c Config) startVector() []float64 {
	x := []float64{logit(startAlpha)}
	if c.Trend == Additive {
		x = append(x, logit(startBeta))
	}
	if c.Seasonal == Additive {
		x = append(x, logit(startGamma))
	}
	return x
}

var errNonFinite = errors.New("non-finite value")

// fitHoltWinters estimates the smoothing weights by minimising the one-step-ahead
// SSE with Nelder-Mead over logit-transformed parameters.
func fitHoltWinters(y []float64, cfg Config) (*holtWinters, error) {
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, unavailable(ReasonNumerical, fmt.Errorf("observation %d: %w", i, errNonFinite))
		}
	}

	init := initialState(y, cfg)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			_, sse := smooth(y, cfg, cfg.decode(x), init)
			if math.IsNaN(sse) {
				return math.Inf(1)
			}
			return sse
		},
	}
	settings := &optimize.Settings{
		MajorIterations: maxIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-10,
			Relative:   1e-10,
			Iterations: 100,
		},
	}

	res, err := optimize.Minimize(problem, cfg.startVector(), settings, &optimize.NelderMead{})
	if err != nil {
		return nil, unavailable(ReasonNonConvergence, err)
	}
	if res == nil || res.Status == optimize.Failure {
		return nil, unavailable(ReasonNonConvergence, errors.New("optimizer failed"))
	}
	if math.IsNaN(res.F) || math.IsInf(res.F, 0) {
		return nil, unavailable(ReasonNumerical, fmt.Errorf("objective: %w", errNonFinite))
	}

	params := cfg.decode(res.X)
	final, sse := smooth(y, cfg, params, init)
	if !final.finite() {
		return nil, unavailable(ReasonNumerical, fmt.Errorf("state: %w", errNonFinite))
	}

	return &holtWinters{
		cfg:    cfg,
		params: params,
		final:  final,
		n:      len(y),
		sse:    sse,
	}, nil
}

func (s smoothingState) finite() bool {
	vals := append([]float64{s.level, s.trend}, s.season...)
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// predict returns the h-step-ahead forecasts following the last observation.
func (m *holtWinters) predict(horizon int) []float64 {
	out := make([]float64, horizon)
	for h := 1; h <= horizon; h++ {
		v := m.final.level + float64(h)*m.final.trend
		if period := len(m.final.season); period > 0 {
			v += m.final.season[(m.n+h-1)%period]
		}
		out[h-1] = v
	}
	return out
}
