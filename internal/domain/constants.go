package domain

// Default schedule values
const (
	DefaultSlotMinutes        = 60
	DefaultAdvanceBookingDays = 30
	DefaultHoldMinutes        = 15
	DefaultMinNoticeMinutes   = 60
	DefaultCurrency           = "KES"
	DefaultTimezone           = "Africa/Nairobi"
)

// Business validation constants
const (
	MinSlotMinutes              = 5
	MaxSlotMinutes              = 480 // 8 hours
	MaxAdvanceBookingDays       = 365
	MaxNotesLength              = 500
	MaxCancellationReasonLength = 500
	MaxRefundReasonLength       = 500
	MaxResolutionNoteLength     = 1000
)

// Time format constants
const (
	TimeFormat = "15:04"      // HH:MM
	DateFormat = "2006-01-02" // YYYY-MM-DD
)
