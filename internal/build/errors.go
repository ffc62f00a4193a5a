package build

import "errors"

var (
	ErrBuild            = errors.New("build failed")
	ErrPull             = errors.New("pull failed")
	ErrImageNotFound    = errors.New("image not found")
	ErrInvalidReference = errors.New("invalid image reference")
)
