package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/lromero/storefront-backend/pkg/errors"
)

func TestServiceGet_enforcesOwnership(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	owner := uuid.New()
	order := seedOrder(t, db, owner, 1, time.Now().UTC())

	loaded, err := svc.Get(ctx, owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.InvoiceNumber, loaded.InvoiceNumber)

	_, err = svc.Get(ctx, uuid.New(), order.ID)
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Get(ctx, owner, uuid.New())
	require.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.Get(ctx, uuid.Nil, order.ID)
	require.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestServiceHistory(t *testing.T) {
	db := setupOrdersTestDB(t)
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	ctx := context.Background()

	customerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	seedOrder(t, db, customerID, 1, base)
	seedOrder(t, db, customerID, 2, base.Add(time.Minute))

	orders, err := svc.History(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.EqualValues(t, 2, orders[0].OrderNumber)

	empty, err := svc.History(ctx, uuid.New())
	require.NoError(t, err)
	require.Empty(t, empty)
}
