package create_booking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/api/middleware"
	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	createBooking "github.com/m04kA/SMC-GarageBooking/internal/usecase/create_booking"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
)

const body = `{"serviceId":1,"date":"2026-11-03","startTime":"10:00","phone":"0712345678"}`

type fakeUseCase struct {
	req  *createBooking.Request
	resp *createBooking.Response
	err  error
}

func (f *fakeUseCase) Execute(_ context.Context, req *createBooking.Request) (*createBooking.Response, error) {
	f.req = req
	return f.resp, f.err
}

func booking() *domain.Booking {
	expires := time.Date(2026, 11, 2, 7, 45, 0, 0, time.UTC)
	return &domain.Booking{
		ID:            10,
		CustomerID:    42,
		ServiceID:     1,
		BookingDate:   time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
		TimeSlot:      domain.TimeSlot{Start: "10:00", End: "11:00"},
		Status:        domain.StatusPendingPayment,
		ServiceName:   "Full service",
		ServicePrice:  decimal.RequireFromString("4999.50"),
		HoldExpiresAt: &expires,
	}
}

func serve(h *Handler, principal *domain.Principal, payload string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(payload))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if principal != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), *principal))
	}
	rec := httptest.NewRecorder()
	h.Handle(rec, req)
	return rec
}

var customer = domain.Principal{UserID: 42, Role: domain.RoleCustomer}

func TestHandle_Created(t *testing.T) {
	uc := &fakeUseCase{resp: &createBooking.Response{Booking: booking()}}
	h := NewHandler(uc, logger.NewNop())

	rec := serve(h, &customer, body, map[string]string{HeaderIdempotencyKey: "key-1"})

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, uc.req)
	assert.Equal(t, "key-1", uc.req.IdempotencyKey)
	assert.Equal(t, customer, uc.req.Principal)
	assert.Equal(t, "2026-11-03", uc.req.Date)
	assert.Equal(t, "10:00", uc.req.StartTime.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	bookingJSON := resp["booking"].(map[string]interface{})
	assert.Equal(t, "pending_payment", bookingJSON["status"])
	assert.Equal(t, "4999.50", bookingJSON["servicePrice"])
	assert.Equal(t, false, resp["replayed"])
}

func TestHandle_GeneratesIdempotencyKey(t *testing.T) {
	uc := &fakeUseCase{resp: &createBooking.Response{Booking: booking()}}
	h := NewHandler(uc, logger.NewNop())

	rec := serve(h, &customer, body, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, uc.req.IdempotencyKey, 36)
}

func TestHandle_ReplayReturnsOK(t *testing.T) {
	uc := &fakeUseCase{resp: &createBooking.Response{Booking: booking(), Replayed: true}}
	h := NewHandler(uc, logger.NewNop())

	rec := serve(h, &customer, body, map[string]string{HeaderIdempotencyKey: "key-1"})

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandle_ErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{createBooking.ErrSlotNotAvailable, http.StatusConflict},
		{createBooking.ErrIdempotencyKeyReused, http.StatusConflict},
		{createBooking.ErrAccessDenied, http.StatusForbidden},
		{createBooking.ErrServiceNotFound, http.StatusNotFound},
		{createBooking.ErrGarageClosed, http.StatusBadRequest},
		{createBooking.ErrInvalidDate, http.StatusBadRequest},
		{createBooking.ErrDateTooFarInFuture, http.StatusBadRequest},
		{createBooking.ErrInvalidTimeSlot, http.StatusBadRequest},
		{createBooking.ErrTooLateToBook, http.StatusBadRequest},
		{createBooking.ErrInvalidInput, http.StatusBadRequest},
		{createBooking.ErrGateway, http.StatusBadGateway},
		{createBooking.ErrInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			uc := &fakeUseCase{err: fmt.Errorf("%w: Execute - step: cause", tt.err)}
			h := NewHandler(uc, logger.NewNop())

			rec := serve(h, &customer, body, nil)

			assert.Equal(t, tt.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandle_BadRequests(t *testing.T) {
	tests := []struct {
		name      string
		principal *domain.Principal
		payload   string
		want      int
	}{
		{name: "no principal", payload: body, want: http.StatusUnauthorized},
		{name: "broken json", principal: &customer, payload: `{"serviceId":`, want: http.StatusBadRequest},
		{name: "unknown field", principal: &customer, payload: `{"serviceId":1,"companyId":3}`, want: http.StatusBadRequest},
		{name: "bad start time", principal: &customer, payload: `{"serviceId":1,"date":"2026-11-03","startTime":"25:99","phone":"0712345678"}`, want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &fakeUseCase{}
			h := NewHandler(uc, logger.NewNop())

			rec := serve(h, tt.principal, tt.payload, nil)

			assert.Equal(t, tt.want, rec.Code)
			assert.Nil(t, uc.req)
		})
	}
}
