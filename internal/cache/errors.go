package cache

import (
	"errors"
	"fmt"
)

// Error reports a failed cache write. It is never returned for reads, which degrade to a
// miss instead.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsCacheError reports whether err came from the cache rather than from a fetch.
func IsCacheError(err error) bool {
	var cacheErr *Error
	return errors.As(err, &cacheErr)
}

var errStoreNotInitialised = errors.New("cache: database store not initialised")
