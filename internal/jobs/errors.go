package jobs

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidJobType      = errors.New("invalid job type")
	ErrInvalidJobStatus    = errors.New("invalid job status")
	ErrInvalidJobPayload   = errors.New("invalid job payload")
	ErrPayloadTypeMismatch = errors.New("payload type mismatch for job type")
	ErrJobNotFound         = errors.New("job not found")
	ErrNoJob               = errors.New("no job ready")

	// ErrPermanent marks failures that retrying cannot fix.
	ErrPermanent = errors.New("permanent job failure")
)

func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}
