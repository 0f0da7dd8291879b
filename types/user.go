package types

import "time"

// Gender is the enumerated gender of a library user.
type Gender string

// Supported gender values.
const (
	GenderMale   Gender = "Maschio"
	GenderFemale Gender = "Femmina"
	GenderOther  Gender = "Altro"
)

// Genders lists every accepted Gender value.
var Genders = []Gender{GenderMale, GenderFemale, GenderOther}

// Valid reports whether g is one of the supported values.
func (g Gender) Valid() bool {
	for _, candidate := range Genders {
		if g == candidate {
			return true
		}
	}
	return false
}

// User represents a library patron who can borrow books.
// It is unrelated to Account, which models login credentials.
type User struct {
	// ID is the opaque unique identifier of the user.
	ID string `json:"id" db:"id"`

	// FirstName is the user's given name.
	FirstName string `json:"nome" db:"first_name" validate:"required"`

	// LastName is the user's family name.
	LastName string `json:"cognome" db:"last_name" validate:"required"`

	// Gender is one of the values listed in Genders.
	Gender Gender `json:"genere" db:"gender" validate:"required,gender"`

	// Age is the user's age in years. It must not be negative.
	Age int `json:"eta" db:"age" validate:"gte=0"`

	// FiscalCode is the optional Italian fiscal code of the user.
	FiscalCode string `json:"codiceFiscale,omitempty" db:"fiscal_code"`

	// CreatedAt is the timestamp when the user was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// UserPatch carries a partial update for a user. Nil fields keep the
// stored value.
type UserPatch struct {
	FirstName  *string `json:"nome"`
	LastName   *string `json:"cognome"`
	Gender     *Gender `json:"genere"`
	Age        *int    `json:"eta"`
	FiscalCode *string `json:"codiceFiscale"`
}

// Apply returns a copy of user with the non-nil patch fields applied.
func (p UserPatch) Apply(user User) User {
	if p.FirstName != nil {
		user.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		user.LastName = *p.LastName
	}
	if p.Gender != nil {
		user.Gender = *p.Gender
	}
	if p.Age != nil {
		user.Age = *p.Age
	}
	if p.FiscalCode != nil {
		user.FiscalCode = *p.FiscalCode
	}
	return user
}
