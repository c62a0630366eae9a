package models

import (
	"time"
)

// Loan and reservation lifecycles share the same shape: "active" is the only
// non-terminal status, every transition is one-way.
const (
	LoanStatusActive   = "active"
	LoanStatusReturned = "returned"
	LoanStatusExpired  = "expired"

	ReservationStatusActive    = "active"
	ReservationStatusCancelled = "cancelled"
	ReservationStatusHonored   = "honored"
)

// Physical copy status values kept from the catalogue's wire format.
const (
	DocStatusAvailable  = "disponible"
	DocStatusCheckedOut = "emprunte"
)

const (
	RoleMember    = "membre"
	RoleLibrarian = "bibliothecaire"
	RoleManager   = "gerant"
)

type User struct {
	ID       uint    `gorm:"primaryKey"`
	UserUid  string  `gorm:"type:uuid;uniqueIndex;not null"`
	Username string  `gorm:"size:80;uniqueIndex;not null"`
	Password string  `gorm:"size:255;not null"`
	Role     string  `gorm:"size:50;not null"`
	Email    *string `gorm:"size:120;uniqueIndex"`

	SubscriptionStatus string `gorm:"size:20;default:'inactive'"`
	SubscriptionType   string `gorm:"size:20"`
	SubscriptionStart  *time.Time
	SubscriptionEnd    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Document struct {
	ID          uint   `gorm:"primaryKey"`
	DocumentUid string `gorm:"type:uuid;uniqueIndex;not null"`
	Title       string `gorm:"size:200;not null;index"`
	Author      string `gorm:"size:150;index"`
	Summary     string `gorm:"type:text"`
	Status      string `gorm:"size:50;not null;default:'disponible'"`
	IsPhysical  bool   `gorm:"not null;default:true"`
	IsDigital   bool   `gorm:"not null;default:false"`
	FilePath    string `gorm:"size:300"`
	CoverImage  string `gorm:"size:100"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// The partial unique index enforces "at most one active loan per pair" at the
// storage layer, so a check-then-act race cannot create duplicates.
type Loan struct {
	ID          uint      `gorm:"primaryKey"`
	LoanUid     string    `gorm:"type:uuid;uniqueIndex;not null"`
	UserUid     string    `gorm:"type:uuid;not null;index;uniqueIndex:uq_loans_active_pair,where:status = 'active'"`
	DocumentUid string    `gorm:"type:uuid;not null;index;uniqueIndex:uq_loans_active_pair,where:status = 'active'"`
	LoanDate    time.Time `gorm:"not null"`
	DueDate     time.Time `gorm:"not null"`
	Status      string    `gorm:"size:20;not null;default:'active'"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Reservation struct {
	ID              uint      `gorm:"primaryKey"`
	ReservationUid  string    `gorm:"type:uuid;uniqueIndex;not null"`
	UserUid         string    `gorm:"type:uuid;not null;index;uniqueIndex:uq_reservations_active_pair,where:status = 'active'"`
	DocumentUid     string    `gorm:"type:uuid;not null;index;uniqueIndex:uq_reservations_active_pair,where:status = 'active'"`
	ReservationDate time.Time `gorm:"not null"`
	Status          string    `gorm:"size:20;not null;default:'active'"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
