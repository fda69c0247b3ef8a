package glicko

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTau sets the volatility change constraint. Smaller values keep
// ratings more stable across periods; 0.3 to 1.2 is the sensible range.
func WithTau(tau float64) Option {
	return func(e *Engine) {
		if tau > 0 {
			e.tau = tau
		}
	}
}

// WithTolerance sets the convergence tolerance of the volatility iteration.
func WithTolerance(tolerance float64) Option {
	return func(e *Engine) {
		if tolerance > 0 {
			e.tolerance = tolerance
		}
	}
}

// WithMaxIterations caps both the bracket search and the regula falsi loop.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxIterations = n
		}
	}
}
