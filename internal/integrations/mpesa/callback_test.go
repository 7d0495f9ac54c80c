package mpesa

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const successCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 0,
      "ResultDesc": "The service request is processed successfully.",
      "CallbackMetadata": {
        "Item": [
          {"Name": "Amount", "Value": 1500.00},
          {"Name": "MpesaReceiptNumber", "Value": "NLJ7RT61SV"},
          {"Name": "Balance"},
          {"Name": "TransactionDate", "Value": 20261102103015},
          {"Name": "PhoneNumber", "Value": 254712345678}
        ]
      }
    }
  }
}`

const cancelledCallback = `{
  "Body": {
    "stkCallback": {
      "MerchantRequestID": "29115-34620561-1",
      "CheckoutRequestID": "ws_CO_191220191020363925",
      "ResultCode": 1032,
      "ResultDesc": "Request cancelled by user"
    }
  }
}`

func TestParseCallback_Success(t *testing.T) {
	nairobi, err := time.LoadLocation("Africa/Nairobi")
	require.NoError(t, err)

	n, err := ParseCallback([]byte(successCallback), nairobi)
	require.NoError(t, err)

	assert.True(t, n.IsSuccess())
	assert.Equal(t, "ws_CO_191220191020363925", n.CheckoutRequestID)
	assert.Equal(t, "NLJ7RT61SV", n.ReceiptNumber)
	require.NotNil(t, n.Amount)
	assert.True(t, n.Amount.Equal(decimal.NewFromInt(1500)))
	require.NotNil(t, n.TransactionDate)
	assert.Equal(t, time.Date(2026, 11, 2, 7, 30, 15, 0, time.UTC), n.TransactionDate.UTC())
	assert.Equal(t, "254712345678", n.PhoneNumber)
	assert.Equal(t, []byte(successCallback), n.RawPayload)
}

func TestParseCallback_Failure(t *testing.T) {
	n, err := ParseCallback([]byte(cancelledCallback), time.UTC)
	require.NoError(t, err)

	assert.False(t, n.IsSuccess())
	assert.Equal(t, 1032, n.ResultCode)
	assert.Empty(t, n.ReceiptNumber)
	assert.Nil(t, n.Amount)
}

func TestParseCallback_Malformed(t *testing.T) {
	cases := []string{
		`not json`,
		`{}`,
		`{"Body":{"stkCallback":{"ResultCode":0}}}`,
		`{"Body":{"stkCallback":{"CheckoutRequestID":"ws_CO_1"}}}`,
	}

	for _, raw := range cases {
		_, err := ParseCallback([]byte(raw), time.UTC)
		assert.ErrorIs(t, err, ErrMalformedCallback, raw)
	}
}
