package types

import "time"

// Account represents a login principal of the API.
// It contains identity, provider linkage, and audit metadata.
type Account struct {
	// ID is the unique identifier of the account.
	ID string `json:"id" db:"id"`

	// Username is the unique login name chosen by the account holder.
	Username string `json:"username" db:"username"`

	// Email is the account holder's email address. It is unique.
	Email string `json:"email" db:"email"`

	// GoogleID links the account to a Google or Firebase identity.
	// Empty for accounts created through local registration.
	GoogleID string `json:"googleId,omitempty" db:"google_id"`

	// PasswordHash stores the bcrypt hash of the account password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Identity is the authenticated caller produced by an access gateway.
// Subject is opaque to the catalog and loan logic.
type Identity struct {
	// Subject is the stable identifier of the caller (account id or
	// Firebase uid).
	Subject string `json:"sub"`

	// Email is the caller's email, when the provider exposes one.
	Email string `json:"email,omitempty"`

	// Name is the caller's display name, when the provider exposes one.
	Name string `json:"name,omitempty"`

	// Provider names the gateway that produced the identity.
	Provider string `json:"provider"`
}
