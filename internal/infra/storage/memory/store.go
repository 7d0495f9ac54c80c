// Package memory хранилище в памяти процесса: те же контракты, что и у postgres репозиториев.
// Используется в тестах и при локальном запуске (storage.driver = "memory").
//
// Откат транзакций не поддерживается: изменения применяются сразу.
// Атомарность резервирования обеспечивается проверкой и вставкой под одной блокировкой,
// а сериализация записи по бронированию - мьютексом, удерживаемым до конца TxManager.Do.
package memory

import (
	"context"
	"sync"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
)

// Store общее состояние всех репозиториев
type Store struct {
	mu sync.Mutex

	bookings      map[int64]*domain.Booking
	bookingsByKey map[string]int64
	payments      map[int64]*domain.Payment
	anomalies     map[int64]*domain.ReconciliationAnomaly
	outbox        []*domain.OutboxEvent
	nextBookingID int64
	nextPaymentID int64
	nextAnomalyID int64

	rowLocksMu sync.Mutex
	rowLocks   map[string]*sync.Mutex
}

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		bookings:      make(map[int64]*domain.Booking),
		bookingsByKey: make(map[string]int64),
		payments:      make(map[int64]*domain.Payment),
		anomalies:     make(map[int64]*domain.ReconciliationAnomaly),
		rowLocks:      make(map[string]*sync.Mutex),
	}
}

func (s *Store) Bookings() *BookingRepository {
	return &BookingRepository{store: s}
}

func (s *Store) Payments() *PaymentRepository {
	return &PaymentRepository{store: s}
}

func (s *Store) Anomalies() *AnomalyRepository {
	return &AnomalyRepository{store: s}
}

func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}

func (s *Store) TxManager() *TxManager {
	return &TxManager{}
}

type scopeKey struct{}

// txScope блокировки строк, взятые внутри одного TxManager.Do
type txScope struct {
	held map[string]*sync.Mutex
}

func (t *txScope) release() {
	for key, m := range t.held {
		m.Unlock()
		delete(t.held, key)
	}
}

// lockRow берёт блокировку строки до конца текущей транзакции.
// Вне транзакции ничего не делает; повторный захват в той же транзакции не блокирует.
func (s *Store) lockRow(ctx context.Context, key string) {
	scope, ok := ctx.Value(scopeKey{}).(*txScope)
	if !ok {
		return
	}
	if _, held := scope.held[key]; held {
		return
	}

	s.rowLocksMu.Lock()
	m, exists := s.rowLocks[key]
	if !exists {
		m = &sync.Mutex{}
		s.rowLocks[key] = m
	}
	s.rowLocksMu.Unlock()

	m.Lock()
	scope.held[key] = m
}

// TxManager выполняет функцию в области блокировок строк
type TxManager struct{}

// Do выполняет fn; вложенные вызовы переиспользуют внешнюю область
func (m *TxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(scopeKey{}).(*txScope); ok {
		return fn(ctx)
	}

	scope := &txScope{held: make(map[string]*sync.Mutex)}
	defer scope.release()

	return fn(context.WithValue(ctx, scopeKey{}, scope))
}

func (m *TxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}

func (m *TxManager) DoReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.Do(ctx, fn)
}
