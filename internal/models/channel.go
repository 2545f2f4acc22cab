package models

import "time"

// ChannelKind enumerates the supported contact-point kinds.
type ChannelKind string

const (
	ChannelEmail ChannelKind = "email"
	ChannelPhone ChannelKind = "phone"
	ChannelPost  ChannelKind = "post"
)

// Channel represents a contact-point kind in the global catalog.
type Channel struct {
	ID   string      `db:"id" json:"id"`
	Name ChannelKind `db:"name" json:"name"`
}

// ChannelRequest holds the payload for creating or renaming a channel.
type ChannelRequest struct {
	Name ChannelKind `json:"name" validate:"required,oneof=email phone post"`
}

// ContactChannel associates a contact with a channel and carries the
// concrete value (the phone number, the email address).
type ContactChannel struct {
	ID        string    `db:"id" json:"id"`
	ContactID string    `db:"contact_id" json:"contact_id"`
	ChannelID string    `db:"channel_id" json:"channel_id"`
	Value     string    `db:"value" json:"value"`
	OwnerID   string    `db:"owner_id" json:"owner_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ContactChannelRequest holds the payload for creating or updating an
// association.
type ContactChannelRequest struct {
	ContactID string `json:"contact_id" validate:"required,uuid4"`
	ChannelID string `json:"channel_id" validate:"required,uuid4"`
	Value     string `json:"value" validate:"required,max=250"`
}
