package handle

import "errors"

var (
	ErrAlreadyBorrowed = errors.New("resource already borrowed")
	ErrUseAfterDrop    = errors.New("use of dropped resource")
)
