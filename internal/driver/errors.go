package driver

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFeature is returned for operations or arguments the platform
// does not support
var ErrUnsupportedFeature = errors.New("unsupported feature")

// ChannelError is a transport failure while running Command
type ChannelError struct {
	Command string
	Err     error
}

func (e *ChannelError) Error() string {
	return fmt.Sprintf("command %q: %v", e.Command, e.Err)
}

func (e *ChannelError) Unwrap() error {
	return e.Err
}
