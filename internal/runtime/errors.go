package runtime

import "errors"

var (
	ErrContainerNotFound = errors.New("container not found")
	ErrNotRunning        = errors.New("container not running")
	ErrAlreadyRunning    = errors.New("container already running")
)
