package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bibliotech/pkg/errs"
	"bibliotech/pkg/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReservationLedger owns physical-copy holds and their status transitions.
type ReservationLedger struct {
	db      *gorm.DB
	checker *Checker
	now     func() time.Time
}

func NewReservationLedger(db *gorm.DB, checker *Checker, now func() time.Time) *ReservationLedger {
	if now == nil {
		now = time.Now
	}
	return &ReservationLedger{db: db, checker: checker, now: now}
}

func (r *ReservationLedger) Create(ctx context.Context, userUid, documentUid string) (*models.Reservation, error) {
	if err := r.checker.CheckBorrower(ctx, userUid); err != nil {
		return nil, err
	}
	if _, err := r.checker.CheckReservableDocument(ctx, documentUid); err != nil {
		return nil, err
	}

	var existing models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_uid = ? AND document_uid = ? AND status = ?", userUid, documentUid, models.ReservationStatusActive).
		First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: reservation already active for document %s and user %s", errs.ErrConflict, documentUid, userUid)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	reservation := models.Reservation{
		ReservationUid:  uuid.New().String(),
		UserUid:         userUid,
		DocumentUid:     documentUid,
		ReservationDate: r.now().UTC(),
		Status:          models.ReservationStatusActive,
	}
	if err := r.db.WithContext(ctx).Create(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: reservation already active for document %s and user %s", errs.ErrConflict, documentUid, userUid)
		}
		return nil, err
	}
	return &reservation, nil
}

func (r *ReservationLedger) Cancel(ctx context.Context, reservationUid string) (*models.Reservation, error) {
	return r.transition(ctx, reservationUid, models.ReservationStatusCancelled)
}

func (r *ReservationLedger) Honor(ctx context.Context, reservationUid string) (*models.Reservation, error) {
	return r.transition(ctx, reservationUid, models.ReservationStatusHonored)
}

// CancelAllForDocument bulk-cancels every active hold on a document. Called
// when the physical copy becomes available again. Idempotent: a second call
// affects zero rows.
func (r *ReservationLedger) CancelAllForDocument(ctx context.Context, documentUid string) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("document_uid = ? AND status = ?", documentUid, models.ReservationStatusActive).
		Update("status", models.ReservationStatusCancelled)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *ReservationLedger) CountByStatus(ctx context.Context, status string) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Reservation{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *ReservationLedger) ListForUser(ctx context.Context, userUid, status string) ([]models.Reservation, error) {
	query := r.db.WithContext(ctx).Where("user_uid = ?", userUid)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var reservations []models.Reservation
	if err := query.Order("reservation_date DESC").Find(&reservations).Error; err != nil {
		return nil, err
	}
	return reservations, nil
}

func (r *ReservationLedger) HasActive(ctx context.Context, userUid, documentUid string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Reservation{}).
		Where("user_uid = ? AND document_uid = ? AND status = ?", userUid, documentUid, models.ReservationStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *ReservationLedger) transition(ctx context.Context, reservationUid, target string) (*models.Reservation, error) {
	var reservation models.Reservation
	if err := r.db.WithContext(ctx).Where("reservation_uid = ?", reservationUid).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: reservation %s", errs.ErrNotFound, reservationUid)
		}
		return nil, err
	}
	if reservation.Status != models.ReservationStatusActive {
		return nil, fmt.Errorf("%w: reservation %s is already %s", errs.ErrInvalidState, reservationUid, reservation.Status)
	}
	reservation.Status = target
	if err := r.db.WithContext(ctx).Save(&reservation).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}
