package trainer

import "errors"

var (
	// ErrInvalidConfig reports training options that can never produce a vocabulary.
	ErrInvalidConfig = errors.New("invalid training config")
	// ErrTrainingStalled reports a round that accepted no merge while the
	// vocabulary was still below its target size.
	ErrTrainingStalled = errors.New("training stalled")
)
