package types

import "errors"

// ErrNotFound is returned by repositories and the remote client when an
// entity does not exist.
var ErrNotFound = errors.New("not found")
