package ledger

import (
	"context"
	"errors"
	"testing"

	"bibliotech/pkg/errs"
	"bibliotech/pkg/models"

	"github.com/stretchr/testify/assert"
)

func TestCheckBorrower(t *testing.T) {
	users, _, checker := newTestCollaborators()
	addMember(users, "user-1")
	users.users["staff-1"] = &UserInfo{UserUid: "staff-1", Role: models.RoleManager}

	assert.NoError(t, checker.CheckBorrower(context.Background(), "user-1"))

	err := checker.CheckBorrower(context.Background(), "staff-1")
	assert.True(t, errors.Is(err, errs.ErrValidation))

	// An unknown user is a bad request, not a missing resource.
	err = checker.CheckBorrower(context.Background(), "ghost")
	assert.True(t, errors.Is(err, errs.ErrValidation))
	assert.False(t, errors.Is(err, errs.ErrNotFound))
}

func TestCheckBorrowerServiceDown(t *testing.T) {
	users, _, checker := newTestCollaborators()
	users.err = errs.ErrUnavailable

	err := checker.CheckBorrower(context.Background(), "user-1")
	assert.True(t, errors.Is(err, errs.ErrUnavailable))
}

func TestCheckDigitalDocument(t *testing.T) {
	_, docs, checker := newTestCollaborators()
	addDigitalDocument(docs, "doc-1")
	addCheckedOutPhysical(docs, "doc-2")

	doc, err := checker.CheckDigitalDocument(context.Background(), "doc-1")
	assert.NoError(t, err)
	assert.Equal(t, "doc-1.pdf", doc.FilePath)

	_, err = checker.CheckDigitalDocument(context.Background(), "doc-2")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestCheckReservableDocument(t *testing.T) {
	_, docs, checker := newTestCollaborators()
	addCheckedOutPhysical(docs, "doc-1")
	docs.docs["doc-2"] = &DocumentInfo{DocumentUid: "doc-2", Status: models.DocStatusAvailable, IsPhysical: true}

	_, err := checker.CheckReservableDocument(context.Background(), "doc-1")
	assert.NoError(t, err)

	_, err = checker.CheckReservableDocument(context.Background(), "doc-2")
	assert.True(t, errors.Is(err, errs.ErrValidation))
}

func TestCheckDocumentServiceDown(t *testing.T) {
	_, docs, checker := newTestCollaborators()
	docs.err = errs.ErrUnavailable

	_, err := checker.CheckDigitalDocument(context.Background(), "doc-1")
	assert.True(t, errors.Is(err, errs.ErrUnavailable))

	_, err = checker.CheckReservableDocument(context.Background(), "doc-1")
	assert.True(t, errors.Is(err, errs.ErrUnavailable))
}
