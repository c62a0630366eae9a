package ledger

import (
	"context"
	"errors"
	"fmt"

	"bibliotech/pkg/errs"
	"bibliotech/pkg/models"
)

// Collaborator snapshots as served by the user and document services.
type UserInfo struct {
	UserUid            string `json:"userUid"`
	Username           string `json:"username"`
	Role               string `json:"role"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

type DocumentInfo struct {
	DocumentUid string `json:"documentUid"`
	Title       string `json:"title"`
	Status      string `json:"status"`
	IsPhysical  bool   `json:"isPhysical"`
	IsDigital   bool   `json:"isDigital"`
	FilePath    string `json:"filePath"`
}

// The ledgers only ever see these two interfaces, so tests can substitute
// in-memory fakes for the sibling services.
type UserDirectory interface {
	GetUser(ctx context.Context, userUid string) (*UserInfo, error)
}

type DocumentCatalog interface {
	GetDocument(ctx context.Context, documentUid string) (*DocumentInfo, error)
}

// Checker validates externally-owned facts before a ledger mutation.
// Every decision is a live fetch; collaborator failures decline the
// operation instead of falling back to stale data.
type Checker struct {
	users UserDirectory
	docs  DocumentCatalog
}

func NewChecker(users UserDirectory, docs DocumentCatalog) *Checker {
	return &Checker{users: users, docs: docs}
}

func (c *Checker) CheckBorrower(ctx context.Context, userUid string) error {
	user, err := c.users.GetUser(ctx, userUid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return fmt.Errorf("%w: unknown user %s", errs.ErrValidation, userUid)
		}
		return err
	}
	if user.Role != models.RoleMember {
		return fmt.Errorf("%w: user %s is not a member", errs.ErrValidation, userUid)
	}
	return nil
}

func (c *Checker) CheckDigitalDocument(ctx context.Context, documentUid string) (*DocumentInfo, error) {
	doc, err := c.docs.GetDocument(ctx, documentUid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown document %s", errs.ErrValidation, documentUid)
		}
		return nil, err
	}
	if !doc.IsDigital {
		return nil, fmt.Errorf("%w: document %s has no digital version", errs.ErrValidation, documentUid)
	}
	return doc, nil
}

func (c *Checker) CheckReservableDocument(ctx context.Context, documentUid string) (*DocumentInfo, error) {
	doc, err := c.docs.GetDocument(ctx, documentUid)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown document %s", errs.ErrValidation, documentUid)
		}
		return nil, err
	}
	if !doc.IsPhysical {
		return nil, fmt.Errorf("%w: document %s has no physical copy", errs.ErrValidation, documentUid)
	}
	// A hold only makes sense while the copy is out with someone else.
	if doc.Status != models.DocStatusCheckedOut {
		return nil, fmt.Errorf("%w: document %s is %q, not checked out", errs.ErrValidation, documentUid, doc.Status)
	}
	return doc, nil
}
