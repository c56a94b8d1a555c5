package questionbank

import "errors"

// ErrInvalidBank indicates bank data that is malformed or violates a
// structural rule (duplicate id, fewer than two options, ...).
var ErrInvalidBank = errors.New("questionbank: invalid question bank")
