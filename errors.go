package marks

import (
	"errors"

	"github.com/gogpu/marks/internal/gpu"
)

// Sentinel errors. Returned errors wrap one of these together with a
// message naming the offending channel, uniform or selection, so both
// errors.Is and the message text stay usable.
var (
	// ErrInvalidChannel is returned when a channel configuration or series
	// update is rejected.
	ErrInvalidChannel = errors.New("marks: invalid channel")

	// ErrUnknownUniform is returned by UpdateValues and UpdateUniforms for
	// names that have no updatable uniform.
	ErrUnknownUniform = errors.New("marks: unknown uniform")

	// ErrInvalidUniform is returned when a mark uniform declaration or
	// value is rejected.
	ErrInvalidUniform = errors.New("marks: invalid uniform")

	// ErrInvalidSelection is returned for undefined selections and
	// selection updates of the wrong type.
	ErrInvalidSelection = errors.New("marks: invalid selection")

	// ErrNilRenderer is returned when NewProgram receives a nil renderer
	// or contract.
	ErrNilRenderer = errors.New("marks: renderer is nil")

	// ErrDestroyed is returned by updates on a destroyed program or
	// renderer.
	ErrDestroyed = errors.New("marks: destroyed")

	// ErrMissingResource is returned when a bind group entry has no live
	// handle. It means the shader and its resource list are out of sync,
	// or an extra resource was not supplied.
	ErrMissingResource = gpu.ErrMissingResource
)
