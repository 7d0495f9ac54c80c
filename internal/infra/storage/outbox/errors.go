package outbox

import "errors"

var (
	ErrBuildQuery = errors.New("outbox.repository: failed to build query")
	ErrExecQuery  = errors.New("outbox.repository: failed to execute query")
	ErrScanRow    = errors.New("outbox.repository: failed to scan row")
)
