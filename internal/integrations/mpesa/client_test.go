package mpesa

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
)

type darajaStub struct {
	tokenCalls int32
	lastBody   stkPushBody
	response   string
	status     int
}

func (s *darajaStub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/v1/generate", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.tokenCalls, 1)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		_, _ = w.Write([]byte(`{"access_token":"tok-1","expires_in":"3599"}`))
	})
	mux.HandleFunc("/mpesa/stkpush/v1/processrequest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&s.lastBody))
		if s.status != 0 {
			w.WriteHeader(s.status)
		}
		_, _ = w.Write([]byte(s.response))
	})
	return mux
}

func newTestClient(url string) *Client {
	client := NewClient(Config{
		BaseURL:        url,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		ShortCode:      "174379",
		Passkey:        "passkey",
		CallbackURL:    "https://garage.example/api/v1/payments/mpesa/callback",
		Timeout:        time.Second,
	}, logger.NewNop())
	client.now = func() time.Time { return time.Date(2026, 11, 2, 7, 30, 0, 0, time.UTC) }
	return client
}

func TestSTKPush_Success(t *testing.T) {
	stub := &darajaStub{response: `{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"0","ResponseDescription":"Success. Request accepted for processing","CustomerMessage":"Success"}`}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.STKPush(context.Background(), &STKPushRequest{
		PhoneNumber:      "254712345678",
		Amount:           decimal.RequireFromString("1499.20"),
		AccountReference: "BOOKING-12345678",
		Description:      "Garage booking payment",
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_1", resp.CheckoutRequestID)
	assert.Equal(t, "m-1", resp.MerchantRequestID)

	body := stub.lastBody
	assert.Equal(t, int64(1500), body.Amount)
	assert.Equal(t, "20261102073000", body.Timestamp)
	assert.Equal(t, Password("174379", "passkey", "20261102073000"), body.Password)
	assert.Equal(t, "CustomerPayBillOnline", body.TransactionType)
	assert.Equal(t, "254712345678", body.PartyA)
	assert.Equal(t, "174379", body.PartyB)
	assert.Len(t, body.AccountReference, maxReferenceLength)

	// токен кешируется
	_, err = client.STKPush(context.Background(), &STKPushRequest{PhoneNumber: "254712345678", Amount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.tokenCalls))
}

func TestSTKPush_Rejected(t *testing.T) {
	stub := &darajaStub{response: `{"MerchantRequestID":"m-1","CheckoutRequestID":"ws_CO_1","ResponseCode":"1","ResponseDescription":"Rejected"}`}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	_, err := newTestClient(server.URL).STKPush(context.Background(), &STKPushRequest{PhoneNumber: "254712345678", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrGateway)
}

func TestSTKPush_HTTPError(t *testing.T) {
	stub := &darajaStub{status: http.StatusBadRequest, response: `{"requestId":"r","errorCode":"400.002.02","errorMessage":"Bad Request - Invalid PhoneNumber"}`}
	server := httptest.NewServer(stub.handler(t))
	defer server.Close()

	_, err := newTestClient(server.URL).STKPush(context.Background(), &STKPushRequest{PhoneNumber: "254712345678", Amount: decimal.NewFromInt(10)})
	require.ErrorIs(t, err, ErrGateway)
	assert.Contains(t, err.Error(), "Invalid PhoneNumber")
}

func TestSTKPush_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).STKPush(context.Background(), &STKPushRequest{PhoneNumber: "254712345678", Amount: decimal.NewFromInt(10)})
	assert.ErrorIs(t, err, ErrAuth)
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{name: "short", input: "BK12", max: 12, want: "BK12"},
		{name: "ascii", input: "Garage booking", max: 6, want: "Garage"},
		{name: "multibyte", input: "Ремонт двигателя", max: 6, want: "Ремонт"},
		{name: "emoji", input: "ok🚗🚗", max: 3, want: "ok🚗"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.max)
			assert.Equal(t, tt.want, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}
