package reconcile_payment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/cache"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/internal/service/lifecycle"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingMetrics struct {
	mu              sync.Mutex
	reconciliations map[string]int
	anomalies       map[string]int
}

func (m *recordingMetrics) IncReconciliation(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconciliations[outcome]++
}

func (m *recordingMetrics) IncAnomaly(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomalies[kind]++
}

const checkoutID = "ws_CO_191220191020363925"

type fixture struct {
	store     *memory.Store
	clock     *fakeClock
	metrics   *recordingMetrics
	machine   *lifecycle.Machine
	uc        *UseCase
	bookingID int64
	paymentID int64
}

// newFixture создает бронирование в pending_payment с удержанием 15 минут
// и платёж в processing, ожидающий уведомления
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	clock := &fakeClock{now: time.Date(2026, 11, 2, 8, 0, 0, 0, time.UTC)}
	log := logger.NewNop()
	machine := lifecycle.NewMachine(store.Bookings(), store.Payments(), store.Outbox(), cache.NopCache{}, store.TxManager(), clock, log)
	metrics := &recordingMetrics{reconciliations: make(map[string]int), anomalies: make(map[string]int)}

	uc := NewUseCase(store.Payments(), store.Bookings(), store.Anomalies(), store.Outbox(), machine, store.TxManager(), metrics, clock, log)

	hold := clock.Now().Add(15 * time.Minute)
	booking := &domain.Booking{
		CustomerID:     42,
		ServiceID:      1,
		BookingDate:    time.Date(2026, 11, 3, 0, 0, 0, 0, time.UTC),
		TimeSlot:       domain.TimeSlot{Start: "10:00", End: "11:00"},
		Status:         domain.StatusPendingPayment,
		ServiceName:    "Full service",
		ServicePrice:   decimal.NewFromInt(1500),
		HoldExpiresAt:  &hold,
		IdempotencyKey: "key-1",
		CreatedAt:      clock.Now(),
		UpdatedAt:      clock.Now(),
	}
	created, err := store.Bookings().Insert(ctx, booking)
	require.NoError(t, err)
	require.True(t, created)

	payment, _, err := domain.NewPayment(booking.ID, booking.CustomerID, booking.ServicePrice, "0712345678", clock.Now())
	require.NoError(t, err)
	require.NoError(t, store.Payments().Create(ctx, payment))
	_, err = store.Payments().MarkProcessing(ctx, payment.ID, "29115-34620561-1", checkoutID, clock.Now())
	require.NoError(t, err)

	return &fixture{
		store:     store,
		clock:     clock,
		metrics:   metrics,
		machine:   machine,
		uc:        uc,
		bookingID: booking.ID,
		paymentID: payment.ID,
	}
}

func success(receipt string) *domain.PaymentNotification {
	amount := decimal.NewFromInt(1500)
	date := time.Date(2026, 11, 2, 8, 5, 0, 0, time.UTC)
	return &domain.PaymentNotification{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		ReceiptNumber:     receipt,
		TransactionDate:   &date,
		Amount:            &amount,
		PhoneNumber:       "254712345678",
		RawPayload:        []byte(`{"Body":{"stkCallback":{"ResultCode":0}}}`),
	}
}

func failure(code int, desc string) *domain.PaymentNotification {
	return &domain.PaymentNotification{
		MerchantRequestID: "29115-34620561-1",
		CheckoutRequestID: checkoutID,
		ResultCode:        code,
		ResultDesc:        desc,
		RawPayload:        []byte(`{"Body":{"stkCallback":{"ResultCode":1032}}}`),
	}
}

func (f *fixture) booking(t *testing.T) *domain.Booking {
	t.Helper()
	b, err := f.store.Bookings().GetByID(context.Background(), f.bookingID)
	require.NoError(t, err)
	return b
}

func (f *fixture) payment(t *testing.T) *domain.Payment {
	t.Helper()
	p, err := f.store.Payments().GetByID(context.Background(), f.paymentID)
	require.NoError(t, err)
	return p
}

func (f *fixture) anomalies(t *testing.T) []*domain.ReconciliationAnomaly {
	t.Helper()
	list, err := f.store.Anomalies().List(context.Background(), domain.AnomalyFilter{})
	require.NoError(t, err)
	return list
}

func (f *fixture) eventsOfType(eventType string) int {
	count := 0
	for _, e := range f.store.Outbox().All(context.Background()) {
		if e.EventType == eventType {
			count++
		}
	}
	return count
}

func TestExecute_DuplicateSuccessIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.uc.Execute(ctx, &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeApplied, first.Outcome)
	assert.Equal(t, domain.StatusConfirmed, *first.BookingStatus)

	payment := f.payment(t)
	assert.Equal(t, domain.PaymentCompleted, payment.Status)
	assert.Equal(t, "NLJ7RT61SV", *payment.ReceiptNumber)
	require.NotNil(t, payment.TransactionDate)
	assert.Equal(t, 0, *payment.ResultCode)

	for i := 0; i < 3; i++ {
		again, err := f.uc.Execute(ctx, &Request{Notification: success("NLJ7RT61SV")})
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, again.Outcome)
		assert.Nil(t, again.Anomaly)
	}

	assert.Equal(t, domain.StatusConfirmed, f.booking(t).Status)
	assert.Equal(t, 1, f.eventsOfType(domain.BookingEventType(domain.StatusConfirmed)))
	assert.Empty(t, f.anomalies(t))
	assert.Equal(t, 1, f.metrics.reconciliations["applied"])
	assert.Equal(t, 3, f.metrics.reconciliations["duplicate"])
}

func TestExecute_LateSuccessAfterExpiryIsAnomaly(t *testing.T) {
	f := newFixture(t)
	f.clock.Advance(16 * time.Minute)

	resp, err := f.uc.Execute(context.Background(), &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnomaly, resp.Outcome)
	assert.Equal(t, domain.StatusFailed, *resp.BookingStatus)
	assert.Equal(t, domain.StatusFailed, f.booking(t).Status)

	// деньги списаны: платёж фиксирует оплату для ручного возврата
	assert.Equal(t, domain.PaymentCompleted, f.payment(t).Status)

	anomalies := f.anomalies(t)
	require.Len(t, anomalies, 1)
	assert.Equal(t, domain.AnomalyPaidForUnheldSlot, anomalies[0].Kind)
	assert.Equal(t, f.paymentID, *anomalies[0].PaymentID)
	assert.Equal(t, f.bookingID, *anomalies[0].BookingID)
	assert.Equal(t, domain.StatusFailed, *anomalies[0].BookingStatus)
	assert.Contains(t, anomalies[0].Description, "NLJ7RT61SV")
	assert.NotEmpty(t, anomalies[0].RawPayload)
	assert.False(t, anomalies[0].Resolved)

	assert.Equal(t, 0, f.eventsOfType(domain.BookingEventType(domain.StatusConfirmed)))
	assert.Equal(t, 1, f.eventsOfType(domain.EventTypeReconciliationAnomaly))
	assert.Equal(t, 1, f.metrics.anomalies[string(domain.AnomalyPaidForUnheldSlot)])

	// повтор того же уведомления не создаёт вторую аномалию
	again, err := f.uc.Execute(context.Background(), &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
	assert.Len(t, f.anomalies(t), 1)
}

func TestExecute_LateSuccessAfterCancellation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.machine.Apply(ctx, f.bookingID, domain.EventCancel, lifecycle.Meta{Reason: ptr.Ptr("changed plans")})
	require.NoError(t, err)
	require.Equal(t, domain.PaymentCancelled, f.payment(t).Status)

	resp, err := f.uc.Execute(ctx, &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnomaly, resp.Outcome)
	assert.Equal(t, domain.StatusCancelled, f.booking(t).Status)
	assert.Equal(t, domain.PaymentCompleted, f.payment(t).Status)
	require.NotNil(t, resp.Anomaly)
	assert.Equal(t, domain.AnomalyPaidForUnheldSlot, resp.Anomaly.Kind)
}

func TestExecute_FailureCodeFailsBooking(t *testing.T) {
	f := newFixture(t)

	resp, err := f.uc.Execute(context.Background(), &Request{Notification: failure(1032, "Request cancelled by user")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeApplied, resp.Outcome)
	assert.Equal(t, domain.StatusFailed, f.booking(t).Status)

	payment := f.payment(t)
	assert.Equal(t, domain.PaymentFailed, payment.Status)
	assert.Equal(t, 1032, *payment.ResultCode)
	assert.Equal(t, "Request cancelled by user", *payment.ResultDesc)
	assert.Nil(t, payment.ReceiptNumber)

	again, err := f.uc.Execute(context.Background(), &Request{Notification: failure(1032, "Request cancelled by user")})
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, again.Outcome)
	assert.Empty(t, f.anomalies(t))
}

func TestExecute_InconsistentDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)

	resp, err := f.uc.Execute(ctx, &Request{Notification: failure(1037, "DS timeout user cannot be reached")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnomaly, resp.Outcome)
	require.NotNil(t, resp.Anomaly)
	assert.Equal(t, domain.AnomalyInconsistentDuplicate, resp.Anomaly.Kind)

	// зафиксированный результат не меняется
	assert.Equal(t, domain.PaymentCompleted, f.payment(t).Status)
	assert.Equal(t, domain.StatusConfirmed, f.booking(t).Status)
}

func TestExecute_DuplicateCharge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.uc.Execute(ctx, &Request{Notification: success("NLJ7RT61SV")})
	require.NoError(t, err)

	resp, err := f.uc.Execute(ctx, &Request{Notification: success("OMK8XYZ123")})
	require.NoError(t, err)

	assert.Equal(t, OutcomeAnomaly, resp.Outcome)
	require.NotNil(t, resp.Anomaly)
	assert.Equal(t, domain.AnomalyDuplicateCharge, resp.Anomaly.Kind)
	assert.Equal(t, "NLJ7RT61SV", *f.payment(t).ReceiptNumber)
}

func TestExecute_OrphanNotification(t *testing.T) {
	f := newFixture(t)

	n := success("NLJ7RT61SV")
	n.CheckoutRequestID = "ws_CO_unknown"

	resp, err := f.uc.Execute(context.Background(), &Request{Notification: n})
	require.NoError(t, err)

	assert.Equal(t, OutcomeOrphan, resp.Outcome)
	require.NotNil(t, resp.Anomaly)
	assert.Equal(t, domain.AnomalyOrphanNotification, resp.Anomaly.Kind)
	assert.Nil(t, resp.Anomaly.PaymentID)
	assert.Equal(t, "ws_CO_unknown", *resp.Anomaly.CheckoutRequestID)

	// бронирование и платёж не затронуты
	assert.Equal(t, domain.StatusPendingPayment, f.booking(t).Status)
	assert.Equal(t, domain.PaymentProcessing, f.payment(t).Status)
	assert.Equal(t, 1, f.metrics.reconciliations["orphan"])
}

func TestExecute_RepeatedOrphanNotificationRecordedOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	n := success("NLJ7RT61SV")
	n.CheckoutRequestID = "ws_CO_unknown"

	first, err := f.uc.Execute(ctx, &Request{Notification: n})
	require.NoError(t, err)
	second, err := f.uc.Execute(ctx, &Request{Notification: n})
	require.NoError(t, err)

	assert.Equal(t, OutcomeOrphan, second.Outcome)
	require.NotNil(t, second.Anomaly)
	assert.Equal(t, first.Anomaly.ID, second.Anomaly.ID)
	assert.Len(t, f.anomalies(t), 1)
	assert.Equal(t, 1, f.eventsOfType(domain.EventTypeReconciliationAnomaly))

	// другой checkout_request_id даёт отдельную аномалию
	other := success("OMK8XYZ123")
	other.CheckoutRequestID = "ws_CO_other"
	_, err = f.uc.Execute(ctx, &Request{Notification: other})
	require.NoError(t, err)
	assert.Len(t, f.anomalies(t), 2)
	assert.Equal(t, 2, f.eventsOfType(domain.EventTypeReconciliationAnomaly))
}

func TestExecute_ConcurrentDeliveriesConfirmOnce(t *testing.T) {
	f := newFixture(t)

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := f.uc.Execute(context.Background(), &Request{Notification: success("NLJ7RT61SV")})
			if assert.NoError(t, err) {
				outcomes <- resp.Outcome
			}
		}()
	}
	wg.Wait()
	close(outcomes)

	counts := make(map[Outcome]int)
	for o := range outcomes {
		counts[o]++
	}
	assert.Equal(t, 1, counts[OutcomeApplied])
	assert.Equal(t, 9, counts[OutcomeDuplicate])
	assert.Equal(t, 1, f.eventsOfType(domain.BookingEventType(domain.StatusConfirmed)))
}

func TestExecute_InvalidNotification(t *testing.T) {
	f := newFixture(t)

	_, err := f.uc.Execute(context.Background(), &Request{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.uc.Execute(context.Background(), &Request{Notification: &domain.PaymentNotification{}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
