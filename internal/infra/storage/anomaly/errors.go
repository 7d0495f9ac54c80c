package anomaly

import "errors"

var (
	ErrAnomalyNotFound = errors.New("anomaly.repository: anomaly not found")
	ErrAlreadyResolved = errors.New("anomaly.repository: anomaly already resolved")
	ErrBuildQuery      = errors.New("anomaly.repository: failed to build query")
	ErrExecQuery       = errors.New("anomaly.repository: failed to execute query")
	ErrScanRow         = errors.New("anomaly.repository: failed to scan row")
)
