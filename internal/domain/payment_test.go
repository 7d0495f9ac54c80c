package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "0712345678", want: "254712345678"},
		{input: "+254 712 345 678", want: "254712345678"},
		{input: "254112345678", want: "254112345678"},
		{input: "712345678", want: "254712345678"},
		{input: "0812345678", wantErr: true},
		{input: "07123", wantErr: true},
		{input: "07123abc78", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewPayment_StoresOnlyMaskedPhone(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	p, msisdn, err := NewPayment(10, 20, decimal.NewFromInt(1500), "0712345678", now)

	require.NoError(t, err)
	assert.Equal(t, "254712345678", msisdn)
	assert.Equal(t, "2547******78", p.PhoneMasked)
	assert.Equal(t, HashPhone("254712345678"), p.PhoneHash)
	assert.NotContains(t, p.PhoneMasked, "345")
	assert.Equal(t, PaymentPending, p.Status)
	assert.Equal(t, DefaultCurrency, p.Currency)

	_, _, err = NewPayment(10, 20, decimal.Zero, "0712345678", now)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestPayment_Refund(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	newCompleted := func() *Payment {
		return &Payment{Amount: decimal.RequireFromString("1500.00"), Status: PaymentCompleted}
	}

	p := newCompleted()
	require.NoError(t, p.Refund(decimal.RequireFromString("1500.00"), "customer request", now))
	assert.Equal(t, PaymentRefunded, p.Status)
	assert.True(t, p.RefundAmount.LessThanOrEqual(p.Amount))

	p = newCompleted()
	err := p.Refund(decimal.RequireFromString("1500.01"), "too much", now)
	assert.ErrorIs(t, err, ErrInvalidRefundAmount)
	assert.Equal(t, PaymentCompleted, p.Status)

	p = newCompleted()
	assert.ErrorIs(t, p.Refund(decimal.Zero, "zero", now), ErrInvalidRefundAmount)

	p = &Payment{Amount: decimal.NewFromInt(100), Status: PaymentProcessing}
	assert.ErrorIs(t, p.Refund(decimal.NewFromInt(50), "early", now), ErrPaymentNotRefundable)
}

func TestPaymentNotification_Consistency(t *testing.T) {
	receipt := "QKJ8ABC123"
	completed := &Payment{Status: PaymentCompleted, ReceiptNumber: &receipt}
	failed := &Payment{Status: PaymentFailed}

	success := &PaymentNotification{ResultCode: 0, ReceiptNumber: receipt}
	otherReceipt := &PaymentNotification{ResultCode: 0, ReceiptNumber: "QKJ8ZZZ999"}
	cancelled := &PaymentNotification{ResultCode: 1032, ResultDesc: "Request cancelled by user"}

	assert.True(t, success.IsConsistentWith(completed))
	assert.False(t, cancelled.IsConsistentWith(completed))
	assert.True(t, cancelled.IsConsistentWith(failed))
	assert.False(t, success.IsConsistentWith(failed))

	assert.True(t, otherReceipt.IsDuplicateCharge(completed))
	assert.False(t, success.IsDuplicateCharge(completed))
	assert.False(t, otherReceipt.IsDuplicateCharge(failed))
}

func TestPayment_ApplyNotification(t *testing.T) {
	now := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	txDate := now.Add(-time.Minute)

	p := &Payment{Status: PaymentProcessing}
	p.ApplyNotification(&PaymentNotification{ResultCode: 0, ResultDesc: "ok", ReceiptNumber: "R1", TransactionDate: &txDate}, now)
	assert.Equal(t, PaymentCompleted, p.Status)
	require.NotNil(t, p.ReceiptNumber)
	assert.Equal(t, "R1", *p.ReceiptNumber)
	assert.Equal(t, &txDate, p.TransactionDate)

	p = &Payment{Status: PaymentProcessing}
	p.ApplyNotification(&PaymentNotification{ResultCode: 2001, ResultDesc: "wrong pin"}, now)
	assert.Equal(t, PaymentFailed, p.Status)
	assert.Equal(t, "wrong pin", *p.ResultDesc)
}
