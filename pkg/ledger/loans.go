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

// Fixed lending policy for digital documents.
const LoanPeriodDays = 14

type TopDocument struct {
	DocumentUid string `json:"documentUid"`
	ActiveLoans int64  `json:"activeLoans"`
}

// LoanLedger owns digital loan records and their status transitions.
// Expiry is evaluated lazily on access, there is no background sweep.
type LoanLedger struct {
	db      *gorm.DB
	checker *Checker
	now     func() time.Time
}

func NewLoanLedger(db *gorm.DB, checker *Checker, now func() time.Time) *LoanLedger {
	if now == nil {
		now = time.Now
	}
	return &LoanLedger{db: db, checker: checker, now: now}
}

func (l *LoanLedger) Create(ctx context.Context, userUid, documentUid string) (*models.Loan, error) {
	if err := l.checker.CheckBorrower(ctx, userUid); err != nil {
		return nil, err
	}
	if _, err := l.checker.CheckDigitalDocument(ctx, documentUid); err != nil {
		return nil, err
	}

	var existing models.Loan
	err := l.db.WithContext(ctx).
		Where("user_uid = ? AND document_uid = ? AND status = ?", userUid, documentUid, models.LoanStatusActive).
		First(&existing).Error
	if err == nil {
		return nil, fmt.Errorf("%w: document %s already borrowed by user %s", errs.ErrConflict, documentUid, userUid)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	loanDate := l.now().UTC()
	loan := models.Loan{
		LoanUid:     uuid.New().String(),
		UserUid:     userUid,
		DocumentUid: documentUid,
		LoanDate:    loanDate,
		DueDate:     loanDate.AddDate(0, 0, LoanPeriodDays),
		Status:      models.LoanStatusActive,
	}
	if err := l.db.WithContext(ctx).Create(&loan).Error; err != nil {
		// The partial unique index is the backstop for concurrent creates
		// that both passed the pre-check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: document %s already borrowed by user %s", errs.ErrConflict, documentUid, userUid)
		}
		return nil, err
	}
	return &loan, nil
}

func (l *LoanLedger) MarkReturned(ctx context.Context, loanUid string) (*models.Loan, error) {
	loan, err := l.get(ctx, loanUid)
	if err != nil {
		return nil, err
	}
	if loan.Status != models.LoanStatusActive {
		return nil, fmt.Errorf("%w: loan %s is already %s", errs.ErrInvalidState, loanUid, loan.Status)
	}
	loan.Status = models.LoanStatusReturned
	if err := l.db.WithContext(ctx).Save(loan).Error; err != nil {
		return nil, err
	}
	return loan, nil
}

// CheckAccess gates retrieval of the digital asset. A non-active loan is
// denied without error, so repeated checks on an expired loan stay quiet.
func (l *LoanLedger) CheckAccess(ctx context.Context, loanUid string) (*models.Loan, bool, error) {
	loan, err := l.get(ctx, loanUid)
	if err != nil {
		return nil, false, err
	}
	if loan.Status != models.LoanStatusActive {
		return loan, false, nil
	}
	if l.now().UTC().After(loan.DueDate) {
		loan.Status = models.LoanStatusExpired
		if err := l.db.WithContext(ctx).Save(loan).Error; err != nil {
			return nil, false, err
		}
		return loan, false, nil
	}
	return loan, true, nil
}

func (l *LoanLedger) CountByStatus(ctx context.Context, status string) (int64, error) {
	query := l.db.WithContext(ctx).Model(&models.Loan{})
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (l *LoanLedger) ListForUser(ctx context.Context, userUid, status string) ([]models.Loan, error) {
	query := l.db.WithContext(ctx).Where("user_uid = ?", userUid)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var loans []models.Loan
	if err := query.Order("due_date ASC").Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

func (l *LoanLedger) HasActive(ctx context.Context, userUid, documentUid string) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&models.Loan{}).
		Where("user_uid = ? AND document_uid = ? AND status = ?", userUid, documentUid, models.LoanStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// TopBorrowed counts only active loans, grouped per document. Ties are
// broken by document uid so the ordering is stable.
func (l *LoanLedger) TopBorrowed(ctx context.Context, limit int) ([]TopDocument, error) {
	top := make([]TopDocument, 0, limit)
	err := l.db.WithContext(ctx).Model(&models.Loan{}).
		Select("document_uid, COUNT(*) AS active_loans").
		Where("status = ?", models.LoanStatusActive).
		Group("document_uid").
		Order("active_loans DESC, document_uid ASC").
		Limit(limit).
		Scan(&top).Error
	if err != nil {
		return nil, err
	}
	return top, nil
}

func (l *LoanLedger) get(ctx context.Context, loanUid string) (*models.Loan, error) {
	var loan models.Loan
	if err := l.db.WithContext(ctx).Where("loan_uid = ?", loanUid).First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: loan %s", errs.ErrNotFound, loanUid)
		}
		return nil, err
	}
	return &loan, nil
}
