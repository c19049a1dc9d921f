package cache

import "errors"

// ErrCacheMiss indicates the requested key was not found in cache.
// Not an error condition in itself: a miss simply falls through to the
// database.
var ErrCacheMiss = errors.New("cache miss")
