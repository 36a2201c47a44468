package persist

import "errors"

// Sentinel errors for backend operations.
var (
	ErrKeyNotFound = errors.New("key not found")
	ErrLoadFailed  = errors.New("load failed")
	ErrStoreFailed = errors.New("store failed")
)
