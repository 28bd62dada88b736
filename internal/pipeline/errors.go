package pipeline

import (
	"errors"
	"fmt"

	"github.com/kristyvitulova/Publication/dsp/filter/highpass"
	"github.com/kristyvitulova/Publication/internal/batch"
	"github.com/kristyvitulova/Publication/internal/recording"
)

// Kind classifies a failure.
type Kind int

const (
	// KindFileRead covers unreadable or malformed inputs, a missing channel
	// and a sample rate that differs from the configured one.
	KindFileRead Kind = iota + 1
	// KindSignalProcessing covers PSD estimation, filtering and whitening
	// failures.
	KindSignalProcessing
	// KindInvalidFilterParameters covers filter designs that cannot be
	// realized for the data.
	KindInvalidFilterParameters
	// KindStorageWrite covers artifact persistence failures. It is fatal.
	KindStorageWrite
)

func (k Kind) String() string {
	switch k {
	case KindFileRead:
		return "FileRead"
	case KindSignalProcessing:
		return "SignalProcessing"
	case KindInvalidFilterParameters:
		return "InvalidFilterParameters"
	case KindStorageWrite:
		return "StorageWrite"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// FileError is a classified failure of one input file.
type FileError struct {
	Path string
	Kind Kind
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Kind, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Classify maps an error to its Kind by the package sentinel it wraps.
// Unrecognized errors count as signal processing failures.
func Classify(err error) Kind {
	var fe *FileError
	switch {
	case errors.As(err, &fe):
		return fe.Kind
	case errors.Is(err, recording.ErrRead):
		return KindFileRead
	case errors.Is(err, highpass.ErrInvalidFilterParameters):
		return KindInvalidFilterParameters
	case errors.Is(err, batch.ErrStorageWrite):
		return KindStorageWrite
	}
	return KindSignalProcessing
}
