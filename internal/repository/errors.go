package repository

import "errors"

// ErrNotFound indicates an entity was not located.
var ErrNotFound = errors.New("repository: not found")

// ErrDuplicate indicates an insert collided with a uniqueness constraint.
// The storage layer is the authority on uniqueness: concurrent writers may
// both pass an application-level duplicate check, and the losing insert
// surfaces here.
var ErrDuplicate = errors.New("repository: duplicate")
