package scoring

import "errors"

// ErrInvalidThresholds indicates band or verdict thresholds that cannot
// classify a score consistently.
var ErrInvalidThresholds = errors.New("scoring: invalid thresholds")
