package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfig(t *testing.T) {
	path := writeRunFile(t, `
photometry:
  nradiusforflux: 3.0
  minimumradius: 1.5
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
`)

	cfg, err := LoadRunConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3.0, cfg.Photometry.NRadiusForFlux)
	assert.Equal(t, 1.5, cfg.Photometry.MinimumRadius)
	assert.Equal(t, 6.0, cfg.Photometry.NSigmaForRadius) // default kept
	assert.Equal(t, 2.0, cfg.Psf.SigmaX)
	assert.Equal(t, 1.5, cfg.Detector.Gain)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, 100.5, cfg.Sources[0].X)
	assert.Equal(t, 0.0, cfg.Sources[1].A) // shape left to the fitter
	assert.Equal(t, "apertures.jpg", cfg.Overlay)
}

func TestLoadRunConfigNoSources(t *testing.T) {
	path := writeRunFile(t, "overlay: out.jpg\n")
	_, err := LoadRunConfig(path)
	assert.ErrorContains(t, err, "no sources")
}

func TestLoadRunConfigInvalidPhotometry(t *testing.T) {
	path := writeRunFile(t, `
photometry:
  nradiusforflux: -1
sources:
  - {x: 10, y: 10}
`)
	_, err := LoadRunConfig(path)
	assert.ErrorContains(t, err, "nRadiusForFlux")
}

func TestLoadRunConfigMissingFile(t *testing.T) {
	_, err := LoadRunConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
