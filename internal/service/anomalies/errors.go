package anomalies

import "errors"

var (
	ErrAnomalyNotFound = errors.New("anomalies: anomaly not found")
	ErrAlreadyResolved = errors.New("anomalies: anomaly already resolved")
	ErrAccessDenied    = errors.New("anomalies: access denied")
	ErrInvalidInput    = errors.New("anomalies: invalid input data")
	ErrInternal        = errors.New("anomalies: internal error")
)
