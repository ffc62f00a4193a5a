package isolation

import "errors"

var (
	ErrDuplicateNamespace = errors.New("namespace already allocated")
	ErrDuplicateCgroup    = errors.New("control group already allocated")
	ErrPartialIsolation   = errors.New("container isolation failed")
	ErrFilesystemSetup    = errors.New("filesystem setup failed")
	ErrNamespaceNotFound  = errors.New("namespace not found")
	ErrCgroupNotFound     = errors.New("control group not found")
)
