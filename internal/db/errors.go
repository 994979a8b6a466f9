package db

import "errors"

// ErrValidation is returned when a statement fails the read-only guard
// before it reaches the connection.
var ErrValidation = errors.New("statement rejected")

// ErrConnection is returned when the database cannot be reached or refuses
// authentication.
var ErrConnection = errors.New("database connection failed")

// ErrNotFound is returned when a named table does not exist in the
// connected database.
var ErrNotFound = errors.New("table not found")
