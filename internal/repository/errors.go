package repository

import "errors"

// Common repository errors that can be tested for
var (
	ErrDrinkNotFound  = errors.New("drink not found")
	ErrDuplicateTitle = errors.New("a drink with that title already exists")
	ErrInvalidInput   = errors.New("invalid input")
)
