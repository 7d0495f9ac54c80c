package mpesa_callback

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	reconcilePayment "github.com/m04kA/SMC-GarageBooking/internal/usecase/reconcile_payment"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
)

const ackBody = `{"ResultCode":0,"ResultDesc":"Accepted"}`

const successPayload = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1500},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "TransactionDate", "Value": 20261102103015},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

type fakeUseCase struct {
	requests []*reconcilePayment.Request
	err      error
}

func (f *fakeUseCase) Execute(_ context.Context, req *reconcilePayment.Request) (*reconcilePayment.Response, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &reconcilePayment.Response{Outcome: reconcilePayment.OutcomeApplied}, nil
}

func nairobi(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)
	return loc
}

func post(h *Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/mpesa/callback", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

func TestHandle_ReconcilesAndAcks(t *testing.T) {
	uc := &fakeUseCase{}
	h := NewHandler(uc, nairobi(t), logger.NewNop())

	rec := post(h, successPayload)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, ackBody, rec.Body.String())

	require.Len(t, uc.requests, 1)
	notification := uc.requests[0].Notification
	assert.Equal(t, "ws_CO_191220191020363925", notification.CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", notification.ReceiptNumber)
	require.NotNil(t, notification.TransactionDate)
	assert.True(t, notification.TransactionDate.Equal(time.Date(2026, 11, 2, 7, 30, 15, 0, time.UTC)))
	assert.JSONEq(t, successPayload, string(notification.RawPayload))
}

func TestHandle_AlwaysAcks(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		ucErr       error
		wantExecute bool
	}{
		{name: "not json", body: "<xml/>"},
		{name: "empty body", body: ""},
		{name: "missing checkout id", body: `{"Body":{"stkCallback":{"ResultCode":0}}}`},
		{name: "reconciliation error", body: successPayload, ucErr: errors.New("database is down"), wantExecute: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUseCase{err: tt.ucErr}
			h := NewHandler(uc, nairobi(t), logger.NewNop())

			rec := post(h, tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, ackBody, rec.Body.String())
			assert.Equal(t, tt.wantExecute, len(uc.requests) == 1)
		})
	}
}
