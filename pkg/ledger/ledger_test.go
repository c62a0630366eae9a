package ledger

import (
	"context"

	"bibliotech/pkg/errs"
	"bibliotech/pkg/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		panic("failed to connect test database")
	}
	db.AutoMigrate(&models.Loan{}, &models.Reservation{})
	return db
}

type fakeUserDirectory struct {
	users map[string]*UserInfo
	err   error
}

func (f *fakeUserDirectory) GetUser(_ context.Context, userUid string) (*UserInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	user, ok := f.users[userUid]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return user, nil
}

type fakeDocumentCatalog struct {
	docs map[string]*DocumentInfo
	err  error
}

func (f *fakeDocumentCatalog) GetDocument(_ context.Context, documentUid string) (*DocumentInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	doc, ok := f.docs[documentUid]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return doc, nil
}

func newTestCollaborators() (*fakeUserDirectory, *fakeDocumentCatalog, *Checker) {
	users := &fakeUserDirectory{users: map[string]*UserInfo{}}
	docs := &fakeDocumentCatalog{docs: map[string]*DocumentInfo{}}
	return users, docs, NewChecker(users, docs)
}

func addMember(users *fakeUserDirectory, userUid string) {
	users.users[userUid] = &UserInfo{
		UserUid:            userUid,
		Username:           "reader-" + userUid,
		Role:               models.RoleMember,
		SubscriptionStatus: "active",
	}
}

func addDigitalDocument(docs *fakeDocumentCatalog, documentUid string) {
	docs.docs[documentUid] = &DocumentInfo{
		DocumentUid: documentUid,
		Title:       "Digital " + documentUid,
		Status:      models.DocStatusAvailable,
		IsDigital:   true,
		FilePath:    documentUid + ".pdf",
	}
}

func addCheckedOutPhysical(docs *fakeDocumentCatalog, documentUid string) {
	docs.docs[documentUid] = &DocumentInfo{
		DocumentUid: documentUid,
		Title:       "Physical " + documentUid,
		Status:      models.DocStatusCheckedOut,
		IsPhysical:  true,
	}
}
