package kron

import "fmt"

// Config controls Kron aperture determination and flux measurement. A Config
// is immutable for the duration of a run.
type Config struct {
	// NSigmaForRadius scales the current radius estimate up to the trial
	// window used to re-measure the first radial moment, once per iteration.
	NSigmaForRadius float64 `yaml:"nsigmaforradius"`
	// NIterForRadius caps the number of solver iterations.
	NIterForRadius int `yaml:"niterforradius"`
	// NRadiusForFlux scales the converged Kron radius up to the aperture
	// actually used for flux integration. Applied once, after solving.
	NRadiusForFlux float64 `yaml:"nradiusforflux"`
	// MaxSincRadius is the semi-minor axis above which plain footprint
	// summation is used; at or below it the sub-pixel integrator runs.
	MaxSincRadius float64 `yaml:"maxsincradius"`
	// MinimumRadius is the smallest acceptable Kron radius; 0 disables the
	// configured floor and defers to the PSF radius.
	MinimumRadius float64 `yaml:"minimumradius"`
	// EnforceMinimumRadius raises too-small radii to the floor.
	EnforceMinimumRadius bool `yaml:"enforceminimumradius"`
	// UseFootprintRadius widens the initial shape using the detection
	// footprint's own size when that implies a larger trial window.
	UseFootprintRadius bool `yaml:"usefootprintradius"`
	// SmoothingSigma is the Gaussian width of optional pre-smoothing applied
	// to the trial window before the moment; <= 0 disables smoothing.
	SmoothingSigma float64 `yaml:"smoothingsigma"`
	// Fixed reuses the source's stored aperture and skips solving.
	Fixed bool `yaml:"fixed"`
}

// DefaultConfig returns the standard control values.
func DefaultConfig() Config {
	return Config{
		NSigmaForRadius:      6.0,
		NIterForRadius:       10,
		NRadiusForFlux:       2.5,
		MaxSincRadius:        10.0,
		MinimumRadius:        0.0,
		EnforceMinimumRadius: true,
		UseFootprintRadius:   false,
		SmoothingSigma:       -1.0,
	}
}

// Validate checks the solver-critical invariants.
func (c Config) Validate() error {
	if c.NSigmaForRadius <= 1 {
		return fmt.Errorf("nSigmaForRadius must be > 1, got %g", c.NSigmaForRadius)
	}
	if c.NIterForRadius < 1 {
		return fmt.Errorf("nIterForRadius must be >= 1, got %d", c.NIterForRadius)
	}
	if c.NRadiusForFlux <= 0 {
		return fmt.Errorf("nRadiusForFlux must be positive, got %g", c.NRadiusForFlux)
	}
	if c.MaxSincRadius < 0 {
		return fmt.Errorf("maxSincRadius must not be negative, got %g", c.MaxSincRadius)
	}
	if c.MinimumRadius < 0 {
		return fmt.Errorf("minimumRadius must not be negative, got %g", c.MinimumRadius)
	}
	return nil
}
