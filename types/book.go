package types

import "time"

// Book represents a title held in the library catalog.
type Book struct {
	// ID is the opaque unique identifier of the book.
	ID string `json:"id" db:"id"`

	// Title is the title of the book.
	Title string `json:"titolo" db:"title" validate:"required"`

	// Author is the author of the book.
	Author string `json:"autore" db:"author" validate:"required"`

	// Year is the publication year.
	Year int `json:"anno" db:"year" validate:"required"`

	// Genre is a free-form genre label (e.g. "Fantasy", "Distopico").
	Genre string `json:"genere" db:"genre" validate:"required"`

	// ISBN is the International Standard Book Number. It is unique
	// across the catalog.
	ISBN string `json:"isbn" db:"isbn" validate:"required"`

	// CreatedAt is the timestamp at which the book was created.
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the book.
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// BookPatch carries a partial update for a book. Nil fields keep the
// stored value.
type BookPatch struct {
	Title  *string `json:"titolo"`
	Author *string `json:"autore"`
	Year   *int    `json:"anno"`
	Genre  *string `json:"genere"`
	ISBN   *string `json:"isbn"`
}

// Apply returns a copy of book with the non-nil patch fields applied.
func (p BookPatch) Apply(book Book) Book {
	if p.Title != nil {
		book.Title = *p.Title
	}
	if p.Author != nil {
		book.Author = *p.Author
	}
	if p.Year != nil {
		book.Year = *p.Year
	}
	if p.Genre != nil {
		book.Genre = *p.Genre
	}
	if p.ISBN != nil {
		book.ISBN = *p.ISBN
	}
	return book
}
