package workflow

import "errors"

var (
	ErrNotFound      = errors.New("workflow: not found")
	ErrStaleAction   = errors.New("workflow: submission is not in the expected state")
	ErrSymbolCount   = errors.New("workflow: poll symbol count out of range")
	ErrUnknownOption = errors.New("workflow: option does not belong to poll")
)
