package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// ParseCallback разбирает уведомление Daraja о результате STK запроса.
// TransactionDate приходит числом yyyyMMddHHmmss в поясе loc.
func ParseCallback(raw []byte, loc *time.Location) (*domain.PaymentNotification, error) {
	var envelope callbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	cb := envelope.Body.STKCallback
	if cb == nil {
		return nil, fmt.Errorf("%w: missing Body.stkCallback", ErrMalformedCallback)
	}
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: missing CheckoutRequestID", ErrMalformedCallback)
	}
	if cb.ResultCode == nil {
		return nil, fmt.Errorf("%w: missing ResultCode", ErrMalformedCallback)
	}

	notification := &domain.PaymentNotification{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        *cb.ResultCode,
		ResultDesc:        cb.ResultDesc,
		RawPayload:        raw,
	}

	if cb.CallbackMetadata == nil {
		return notification, nil
	}

	for _, item := range cb.CallbackMetadata.Item {
		value := strings.Trim(string(item.Value), `"`)
		if value == "" || value == "null" {
			continue
		}

		switch item.Name {
		case "MpesaReceiptNumber":
			notification.ReceiptNumber = value
		case "Amount":
			amount, err := decimal.NewFromString(value)
			if err != nil {
				return nil, fmt.Errorf("%w: Amount %q: %v", ErrMalformedCallback, value, err)
			}
			notification.Amount = &amount
		case "TransactionDate":
			if loc == nil {
				loc = time.UTC
			}
			ts, err := time.ParseInLocation(timestampLayout, value, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: TransactionDate %q: %v", ErrMalformedCallback, value, err)
			}
			notification.TransactionDate = &ts
		case "PhoneNumber":
			if _, err := strconv.ParseUint(value, 10, 64); err == nil {
				notification.PhoneNumber = value
			}
		}
	}

	return notification, nil
}
