package payments

import "errors"

var (
	ErrPaymentNotFound = errors.New("payments: payment not found")
	ErrBookingNotFound = errors.New("payments: booking not found")
	ErrAccessDenied    = errors.New("payments: access denied")
	ErrInternal        = errors.New("payments: internal error")
)
