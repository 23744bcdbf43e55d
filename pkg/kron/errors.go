package kron

import "errors"

// Error kinds for Kron photometry. Callers distinguish them with errors.Is;
// everything else wrapping these adds context with fmt.Errorf("...: %w", err).
var (
	// ErrEdge means a requested window does not fit inside the image.
	// Fatal to the current measurement; never retried or substituted.
	ErrEdge = errors.New("window does not fit inside the image")

	// ErrBadKron means the moment integral defining the Kron radius was
	// degenerate (non-positive sums). Recoverable through the fallback radius.
	ErrBadKron = errors.New("bad integral defining Kron radius")

	// ErrBadShape means the source shape is unusable and no PSF is available
	// to substitute for it.
	ErrBadShape = errors.New("bad shape and no PSF")

	// ErrNoFloor means minimum-radius enforcement was requested but neither a
	// configured minimum nor a PSF model exists.
	ErrNoFloor = errors.New("no minimum radius and no PSF provided")

	// ErrBadRadius means the aperture radius is degenerate (non-positive or
	// not finite).
	ErrBadRadius = errors.New("invalid Kron radius")
)
