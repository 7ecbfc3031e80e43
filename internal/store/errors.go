package store

import "errors"

// ErrPersistence wraps every write-side failure of this package.
var ErrPersistence = errors.New("store: persistence failed")
