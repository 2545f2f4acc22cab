package models

import "time"

// Contact represents an address-book entry owned by a user.
type Contact struct {
	ID        string     `db:"id" json:"id"`
	OwnerID   string     `db:"owner_id" json:"owner_id"`
	FirstName string     `db:"first_name" json:"first_name"`
	LastName  string     `db:"last_name" json:"last_name"`
	Birthdate *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	Gender    string     `db:"gender" json:"gender"`
	Persuasion string    `db:"persuasion" json:"persuasion,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// ContactFilter captures filtering criteria for listing contacts.
type ContactFilter struct {
	FirstName    string
	LastName     string
	ChannelValue string
	Page         int
	PageSize     int
}

// ContactRequest holds the payload for creating or updating a contact.
type ContactRequest struct {
	FirstName  string     `json:"first_name" validate:"required,max=50"`
	LastName   string     `json:"last_name" validate:"required,max=50"`
	Birthdate  *time.Time `json:"birthdate,omitempty"`
	Gender     string     `json:"gender" validate:"required,len=1,oneof=F M"`
	Persuasion string     `json:"persuasion" validate:"max=50"`
}
