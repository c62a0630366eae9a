package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"bibliotech/pkg/errs"
	"bibliotech/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestCreateReservation(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reservations := NewReservationLedger(db, checker, func() time.Time { return now })

	reservation, err := reservations.Create(context.Background(), "user-1", "doc-1")

	assert.NoError(t, err)
	assert.NotEmpty(t, reservation.ReservationUid)
	assert.Equal(t, models.ReservationStatusActive, reservation.Status)
	assert.Equal(t, now, reservation.ReservationDate)
}

func TestCreateReservationOnAvailableDocument(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	docs.docs["doc-1"] = &DocumentInfo{
		DocumentUid: "doc-1",
		Status:      models.DocStatusAvailable,
		IsPhysical:  true,
	}
	reservations := NewReservationLedger(db, checker, nil)

	_, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestCreateReservationOnDigitalOnlyDocument(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addDigitalDocument(docs, "doc-1")
	reservations := NewReservationLedger(db, checker, nil)

	_, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestCreateReservationDuplicate(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")
	reservations := NewReservationLedger(db, checker, nil)

	_, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)

	_, err = reservations.Create(context.Background(), "user-1", "doc-1")
	assert.True(t, errors.Is(err, errs.ErrConflict))
}

func TestCancelReservation(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")
	reservations := NewReservationLedger(db, checker, nil)

	reservation, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)

	cancelled, err := reservations.Cancel(context.Background(), reservation.ReservationUid)
	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, cancelled.Status)

	_, err = reservations.Cancel(context.Background(), reservation.ReservationUid)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}

func TestHonorReservation(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")
	reservations := NewReservationLedger(db, checker, nil)

	reservation, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)

	honored, err := reservations.Honor(context.Background(), reservation.ReservationUid)
	assert.NoError(t, err)
	assert.Equal(t, models.ReservationStatusHonored, honored.Status)

	_, err = reservations.Honor(context.Background(), reservation.ReservationUid)
	assert.True(t, errors.Is(err, errs.ErrInvalidState))
}

func TestCancelReservationNotFound(t *testing.T) {
	db := setupTestDB()
	_, _, checker := newTestCollaborators()
	reservations := NewReservationLedger(db, checker, nil)

	_, err := reservations.Cancel(context.Background(), "missing")
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCancelAllForDocument(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	for _, uid := range []string{"u1", "u2", "u3"} {
		addMember(users, uid)
	}
	addCheckedOutPhysical(docs, "doc-1")
	addCheckedOutPhysical(docs, "doc-2")
	reservations := NewReservationLedger(db, checker, nil)

	_, err := reservations.Create(context.Background(), "u1", "doc-1")
	assert.NoError(t, err)
	_, err = reservations.Create(context.Background(), "u2", "doc-1")
	assert.NoError(t, err)
	other, err := reservations.Create(context.Background(), "u3", "doc-2")
	assert.NoError(t, err)

	honored, err := reservations.Create(context.Background(), "u3", "doc-1")
	assert.NoError(t, err)
	_, err = reservations.Honor(context.Background(), honored.ReservationUid)
	assert.NoError(t, err)

	// Only doc-1's active holds flip, honored and other-document holds stay.
	affected, err := reservations.CancelAllForDocument(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	var check models.Reservation
	db.Where("reservation_uid = ?", other.ReservationUid).First(&check)
	assert.Equal(t, models.ReservationStatusActive, check.Status)
	var honoredCheck models.Reservation
	db.Where("reservation_uid = ?", honored.ReservationUid).First(&honoredCheck)
	assert.Equal(t, models.ReservationStatusHonored, honoredCheck.Status)

	// Idempotent: a second pass finds nothing left to cancel.
	affected, err = reservations.CancelAllForDocument(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, int64(0), affected)
}

func TestListReservationsForUser(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")
	addCheckedOutPhysical(docs, "doc-2")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reservations := NewReservationLedger(db, checker, func() time.Time { return now })

	_, err := reservations.Create(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)

	now = now.Add(time.Hour)
	_, err = reservations.Create(context.Background(), "user-1", "doc-2")
	assert.NoError(t, err)

	// Newest hold first.
	list, err := reservations.ListForUser(context.Background(), "user-1", "")
	assert.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, "doc-2", list[0].DocumentUid)
	assert.Equal(t, "doc-1", list[1].DocumentUid)
}

func TestCountReservationsByStatus(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "u1")
	addMember(users, "u2")
	addCheckedOutPhysical(docs, "doc-1")
	addCheckedOutPhysical(docs, "doc-2")
	reservations := NewReservationLedger(db, checker, nil)

	reservation, err := reservations.Create(context.Background(), "u1", "doc-1")
	assert.NoError(t, err)
	_, err = reservations.Create(context.Background(), "u2", "doc-2")
	assert.NoError(t, err)
	_, err = reservations.Cancel(context.Background(), reservation.ReservationUid)
	assert.NoError(t, err)

	active, err := reservations.CountByStatus(context.Background(), models.ReservationStatusActive)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), active)

	cancelled, err := reservations.CountByStatus(context.Background(), models.ReservationStatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), cancelled)
}

func TestHasActiveReservation(t *testing.T) {
	db := setupTestDB()
	users, docs, checker := newTestCollaborators()
	addMember(users, "user-1")
	addCheckedOutPhysical(docs, "doc-1")
	reservations := NewReservationLedger(db, checker, nil)

	has, err := reservations.HasActive(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)
	assert.False(t, has)

	_, err = reservations.Create(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)

	has, err = reservations.HasActive(context.Background(), "user-1", "doc-1")
	assert.NoError(t, err)
	assert.True(t, has)
}
