package remediation

import "errors"

// ErrInvalidCatalog indicates malformed catalog data or an entry that does
// not match the question bank.
var ErrInvalidCatalog = errors.New("remediation: invalid catalog")
