package vctrace

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange is matched by every *IndexError.
	ErrIndexOutOfRange = errors.New("vctrace: index out of range")
	// ErrMissingCollaborator is returned by the pipeline when the encoder or
	// latent generator is absent.
	ErrMissingCollaborator = errors.New("vctrace: missing collaborator")
	// ErrInvalidImage is returned when an image buffer is shorter than its
	// declared geometry.
	ErrInvalidImage = errors.New("vctrace: invalid image buffer")
	// ErrDimensionMismatch is returned when a vector does not have the
	// dimension a consumer requires.
	ErrDimensionMismatch = errors.New("vctrace: dimension mismatch")
	// ErrContractVersion is returned when decoding a document written for a
	// different dimensional contract.
	ErrContractVersion = errors.New("vctrace: unsupported contract version")
	// ErrNotFound is returned when no trace record exists for a request ID.
	ErrNotFound = errors.New("vctrace: trace not found")
)

// IndexError reports an element access outside [0, Dim).
type IndexError struct {
	Index int
	Dim   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("vctrace: index %d out of range for vector of dim %d", e.Index, e.Dim)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}
