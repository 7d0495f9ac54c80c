package anomalies

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m04kA/SMC-GarageBooking/internal/domain"
	"github.com/m04kA/SMC-GarageBooking/internal/infra/storage/memory"
	"github.com/m04kA/SMC-GarageBooking/internal/service/anomalies/models"
	"github.com/m04kA/SMC-GarageBooking/pkg/logger"
	"github.com/m04kA/SMC-GarageBooking/pkg/ptr"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestListAndResolve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	now := time.Date(2026, 11, 1, 9, 0, 0, 0, time.UTC)
	admin := domain.Principal{UserID: 1, Role: domain.RoleAdmin}

	orphan := &domain.ReconciliationAnomaly{
		Kind:        domain.AnomalyOrphanNotification,
		Description: "no payment for checkout ws_CO_1",
		RawPayload:  []byte(`{"Body":{}}`),
		CreatedAt:   now,
	}
	require.NoError(t, store.Anomalies().Create(ctx, orphan))
	require.NoError(t, store.Anomalies().Create(ctx, &domain.ReconciliationAnomaly{
		Kind:        domain.AnomalyPaidForUnheldSlot,
		Description: "late success",
		RawPayload:  []byte("not json"),
		CreatedAt:   now,
	}))

	svc := NewService(store.Anomalies(), fixedClock{now: now}, logger.NewNop())

	list, err := svc.List(ctx, &models.ListRequest{Resolved: ptr.Ptr(false)}, admin)
	require.NoError(t, err)
	require.Len(t, list.Anomalies, 2)
	assert.Equal(t, "paid_for_unheld_slot", list.Anomalies[0].Kind)
	require.NotNil(t, list.Anomalies[0].RawPayloadText)
	assert.Equal(t, "not json", *list.Anomalies[0].RawPayloadText)
	assert.JSONEq(t, `{"Body":{}}`, string(list.Anomalies[1].RawPayload))

	_, err = svc.List(ctx, &models.ListRequest{Kind: ptr.Ptr("bogus")}, admin)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.List(ctx, &models.ListRequest{}, domain.Principal{UserID: 2, Role: domain.RoleCustomer})
	assert.ErrorIs(t, err, ErrAccessDenied)

	resolved, err := svc.Resolve(ctx, orphan.ID, &models.ResolveRequest{Note: "refunded manually"}, admin)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)
	assert.Equal(t, int64(1), *resolved.ResolvedBy)

	_, err = svc.Resolve(ctx, orphan.ID, &models.ResolveRequest{Note: "again"}, admin)
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	_, err = svc.Resolve(ctx, 999, &models.ResolveRequest{Note: "x"}, admin)
	assert.ErrorIs(t, err, ErrAnomalyNotFound)

	_, err = svc.Resolve(ctx, orphan.ID, &models.ResolveRequest{Note: "  "}, admin)
	assert.ErrorIs(t, err, ErrInvalidInput)

	open, err := svc.List(ctx, &models.ListRequest{Resolved: ptr.Ptr(false)}, admin)
	require.NoError(t, err)
	assert.Len(t, open.Anomalies, 1)
}
