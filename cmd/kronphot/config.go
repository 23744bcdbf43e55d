package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"kronphot/pkg/kron"
)

/* Example run file ...

photometry:
  nsigmaforradius: 6.0
  niterforradius: 10
  nradiusforflux: 2.5
  maxsincradius: 10.0
  enforceminimumradius: true

psf:
  sigmax: 2.0
  sigmay: 2.0

detector:
  gain: 1.5
  readnoise: 5.0

sources:
  - {x: 100.5, y: 200.25, a: 2.5, b: 2.0, theta: 0.3}
  - {x: 340.0, y: 12.75}

overlay: apertures.jpg
*/

// SourceSpec positions one source to measure. A source with a == 0 has its
// shape fitted from the image.
type SourceSpec struct {
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
	A     float64 `yaml:"a"`
	B     float64 `yaml:"b"`
	Theta float64 `yaml:"theta"`
}

// PsfSpec describes the Gaussian PSF model to use; zero sigmas mean no PSF.
type PsfSpec struct {
	SigmaX float64 `yaml:"sigmax"`
	SigmaY float64 `yaml:"sigmay"`
	Theta  float64 `yaml:"theta"`
}

// DetectorSpec provides the variance model for images without one.
type DetectorSpec struct {
	Gain      float64 `yaml:"gain"`
	ReadNoise float64 `yaml:"readnoise"`
}

// RunConfig is the YAML run file.
type RunConfig struct {
	Photometry kron.Config  `yaml:"photometry"`
	Psf        PsfSpec      `yaml:"psf"`
	Detector   DetectorSpec `yaml:"detector"`
	Sources    []SourceSpec `yaml:"sources"`
	Overlay    string       `yaml:"overlay"`
}

// NewRunConfig returns a RunConfig with default photometry controls.
func NewRunConfig() RunConfig {
	return RunConfig{
		Photometry: kron.DefaultConfig(),
		Detector:   DetectorSpec{Gain: 1.0},
	}
}

// LoadRunConfig reads and validates a YAML run file.
func LoadRunConfig(path string) (RunConfig, error) {
	cfg := NewRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config: %w", err)
	}
	if err := cfg.Photometry.Validate(); err != nil {
		return cfg, fmt.Errorf("run config: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return cfg, fmt.Errorf("run config lists no sources")
	}
	return cfg, nil
}
