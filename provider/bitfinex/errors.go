package bitfinex

import (
	"errors"
	"fmt"
)

var (
	ErrConnectionNotOpen = errors.New("connection is not open")
	ErrNotImplemented    = errors.New("not implemented")
)

// DecodeError reports a frame that failed json decoding. It is delivered
// through the "error" event and never aborts message processing.
type DecodeError struct {
	Raw []byte
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame: %s", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports an invalid handler registration and is returned
// synchronously to the caller.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required filter: %s", e.Missing)
}
