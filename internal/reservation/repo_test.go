package reservation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harborwell/stockroom-backend/pkg/db/models"
	"github.com/harborwell/stockroom-backend/pkg/enums"
)

func seedReservation(t *testing.T, repo Repository, mutate func(*models.StockReservation)) *models.StockReservation {
	t.Helper()
	cartLineID := uuid.New()
	expires := time.Now().Add(30 * time.Minute)
	reservation := &models.StockReservation{
		VariantID:   uuid.New(),
		WarehouseID: uuid.New(),
		Quantity:    2,
		CartLineID:  &cartLineID,
		ExpiresAt:   &expires,
	}
	if mutate != nil {
		mutate(reservation)
	}
	require.NoError(t, repo.Create(context.Background(), reservation))
	return reservation
}

func TestRepositoryCreateDefaults(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	reservation := seedReservation(t, repo, nil)

	assert.NotEqual(t, uuid.Nil, reservation.ID)
	assert.Equal(t, enums.ReservationActive, reservation.Status)

	found, err := repo.FindByCartLineID(context.Background(), *reservation.CartLineID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, reservation.ID, found.ID)
}

func TestRepositoryFindReturnsNilWhenMissing(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	found, err := repo.GetByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)

	found, err = repo.FindByOrderLineID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestTransitionFromActiveWinsOnce(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	reservation := seedReservation(t, repo, nil)

	ok, err := repo.TransitionFromActive(context.Background(), reservation.ID, enums.ReservationReleased)
	require.NoError(t, err)
	assert.True(t, ok)

	// second caller loses the race for the same hold
	ok, err = repo.TransitionFromActive(context.Background(), reservation.ID, enums.ReservationExpired)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ReservationReleased, found.Status)
}

func TestRepointToOrderLineClearsExpiry(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	reservation := seedReservation(t, repo, nil)
	orderLineID := uuid.New()
	orderID := uuid.New()

	ok, err := repo.RepointToOrderLine(context.Background(), reservation.ID, orderLineID, orderID)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByID(context.Background(), reservation.ID)
	require.NoError(t, err)
	require.NotNil(t, found.OrderLineID)
	assert.Equal(t, orderLineID, *found.OrderLineID)
	require.NotNil(t, found.OrderID)
	assert.Equal(t, orderID, *found.OrderID)
	assert.Nil(t, found.ExpiresAt)

	// already pointed at an order line, the guard rejects a second repoint
	ok, err = repo.RepointToOrderLine(context.Background(), reservation.ID, uuid.New(), orderID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFindByCartLineIDSkipsTerminalHolds(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	reservation := seedReservation(t, repo, nil)
	cartLineID := *reservation.CartLineID

	_, err := repo.TransitionFromActive(context.Background(), reservation.ID, enums.ReservationReleased)
	require.NoError(t, err)

	found, err := repo.FindByCartLineID(context.Background(), cartLineID)
	require.NoError(t, err)
	assert.Nil(t, found)

	// the cart line is free to hold stock again
	fresh := seedReservation(t, repo, func(r *models.StockReservation) { r.CartLineID = &cartLineID })
	found, err = repo.FindByCartLineID(context.Background(), cartLineID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, fresh.ID, found.ID)
}

func TestListExpiredHonorsCutoffAndLimit(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	past := time.Now().Add(-time.Hour)
	older := time.Now().Add(-2 * time.Hour)

	seedReservation(t, repo, func(r *models.StockReservation) { r.ExpiresAt = &older })
	seedReservation(t, repo, func(r *models.StockReservation) { r.ExpiresAt = &past })
	live := seedReservation(t, repo, nil)
	released := seedReservation(t, repo, func(r *models.StockReservation) { r.ExpiresAt = &past })
	_, err := repo.TransitionFromActive(context.Background(), released.ID, enums.ReservationReleased)
	require.NoError(t, err)

	expired, err := repo.ListExpired(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 2)
	for _, r := range expired {
		assert.NotEqual(t, live.ID, r.ID)
		assert.NotEqual(t, released.ID, r.ID)
	}
	// oldest expiry first so backlogs drain in order
	assert.True(t, expired[0].ExpiresAt.Before(*expired[1].ExpiresAt))

	limited, err := repo.ListExpired(context.Background(), time.Now(), 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestListActiveByOrderID(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	orderID := uuid.New()

	first := seedReservation(t, repo, func(r *models.StockReservation) { r.OrderID = &orderID })
	second := seedReservation(t, repo, func(r *models.StockReservation) { r.OrderID = &orderID })
	seedReservation(t, repo, nil)
	_, err := repo.TransitionFromActive(context.Background(), second.ID, enums.ReservationCommitted)
	require.NoError(t, err)

	active, err := repo.ListActiveByOrderID(context.Background(), orderID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)
}
