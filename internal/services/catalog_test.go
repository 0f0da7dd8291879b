package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/librarian/apiserver/internal/services"
	"github.com/librarian/apiserver/internal/store"
	"github.com/librarian/apiserver/internal/store/memstore"
	"github.com/librarian/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func validBook(isbn string) types.Book {
	return types.Book{Title: "1984", Author: "Orwell", Year: 1949, Genre: "Distopico", ISBN: isbn}
}

func validUser() types.User {
	return types.User{FirstName: "Mario", LastName: "Rossi", Gender: types.GenderMale, Age: 34}
}

func TestBookService_Create(t *testing.T) {
	ctx := context.Background()
	svc := services.NewBookService(memstore.New().Books())

	created, err := svc.Create(ctx, validBook("978-1"))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	_, err = svc.Create(ctx, validBook("978-1"))
	var conflict *services.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "isbn", conflict.Field)
	assert.ErrorIs(t, err, store.ErrConflict)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewBookService(memstore.New().Books())

	cases := map[string]struct {
		mutate func(*types.Book)
		field  string
	}{
		"missing title":  {func(b *types.Book) { b.Title = "  " }, "titolo"},
		"missing author": {func(b *types.Book) { b.Author = "" }, "autore"},
		"missing year":   {func(b *types.Book) { b.Year = 0 }, "anno"},
		"missing genre":  {func(b *types.Book) { b.Genre = "" }, "genere"},
		"missing isbn":   {func(b *types.Book) { b.ISBN = "" }, "isbn"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			book := validBook("978-9")
			tc.mutate(&book)

			_, err := svc.Create(ctx, book)
			var validation *services.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestBookService_Update(t *testing.T) {
	ctx := context.Background()
	svc := services.NewBookService(memstore.New().Books())

	first, err := svc.Create(ctx, validBook("978-1"))
	require.NoError(t, err)
	second, err := svc.Create(ctx, validBook("978-2"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, first.ID, types.BookPatch{Title: strPtr("Nineteen Eighty-Four")})
	require.NoError(t, err)
	assert.Equal(t, "Nineteen Eighty-Four", updated.Title)
	assert.Equal(t, "Orwell", updated.Author)
	assert.Equal(t, "978-1", updated.ISBN)

	_, err = svc.Update(ctx, second.ID, types.BookPatch{ISBN: strPtr("978-1")})
	var conflict *services.ConflictError
	assert.ErrorAs(t, err, &conflict)

	_, err = svc.Update(ctx, second.ID, types.BookPatch{Title: strPtr("")})
	var validation *services.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.Update(ctx, "missing", types.BookPatch{Title: strPtr("x")})
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "book", notFound.Kind)
}

func TestBookService_DeleteUnknown(t *testing.T) {
	svc := services.NewBookService(memstore.New().Books())

	err := svc.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	var notFound *services.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

type bookRepoMock struct {
	listFn   func(ctx context.Context) ([]types.Book, error)
	getFn    func(ctx context.Context, id string) (types.Book, error)
	createFn func(ctx context.Context, book types.Book) (types.Book, error)
	updateFn func(ctx context.Context, book types.Book) (types.Book, error)
	deleteFn func(ctx context.Context, id string) error
}

func (m *bookRepoMock) List(ctx context.Context) ([]types.Book, error) { return m.listFn(ctx) }
func (m *bookRepoMock) Get(ctx context.Context, id string) (types.Book, error) {
	return m.getFn(ctx, id)
}
func (m *bookRepoMock) Create(ctx context.Context, book types.Book) (types.Book, error) {
	return m.createFn(ctx, book)
}
func (m *bookRepoMock) Update(ctx context.Context, book types.Book) (types.Book, error) {
	return m.updateFn(ctx, book)
}
func (m *bookRepoMock) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

func TestBookService_PassesUnexpectedErrorsThrough(t *testing.T) {
	boom := errors.New("connection reset")
	svc := services.NewBookService(&bookRepoMock{
		createFn: func(ctx context.Context, book types.Book) (types.Book, error) { return types.Book{}, boom },
		getFn:    func(ctx context.Context, id string) (types.Book, error) { return types.Book{}, boom },
	})

	_, err := svc.Create(context.Background(), validBook("978-1"))
	assert.ErrorIs(t, err, boom)

	_, err = svc.Get(context.Background(), "id")
	assert.ErrorIs(t, err, boom)
	var notFound *services.NotFoundError
	assert.False(t, errors.As(err, &notFound))
}

func TestBookService_TrimsInput(t *testing.T) {
	var stored types.Book
	svc := services.NewBookService(&bookRepoMock{
		createFn: func(ctx context.Context, book types.Book) (types.Book, error) {
			stored = book
			return book, nil
		},
	})

	book := validBook(" 978-1 ")
	book.Title = " 1984 "
	_, err := svc.Create(context.Background(), book)
	require.NoError(t, err)
	assert.Equal(t, "1984", stored.Title)
	assert.Equal(t, "978-1", stored.ISBN)
}

func TestUserService_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := services.NewUserService(memstore.New().Users())

	created, err := svc.Create(ctx, validUser())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	cases := map[string]struct {
		mutate func(*types.User)
		field  string
	}{
		"missing nome":    {func(u *types.User) { u.FirstName = "" }, "nome"},
		"missing cognome": {func(u *types.User) { u.LastName = "" }, "cognome"},
		"unknown genere":  {func(u *types.User) { u.Gender = "Unknown" }, "genere"},
		"missing genere":  {func(u *types.User) { u.Gender = "" }, "genere"},
		"negative eta":    {func(u *types.User) { u.Age = -1 }, "eta"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			user := validUser()
			tc.mutate(&user)

			_, err := svc.Create(ctx, user)
			var validation *services.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
		})
	}
}

func TestUserService_AcceptsEveryGender(t *testing.T) {
	svc := services.NewUserService(memstore.New().Users())
	for _, gender := range types.Genders {
		user := validUser()
		user.Gender = gender
		_, err := svc.Create(context.Background(), user)
		assert.NoError(t, err, gender)
	}
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	svc := services.NewUserService(memstore.New().Users())

	created, err := svc.Create(ctx, validUser())
	require.NoError(t, err)

	gender := types.GenderOther
	updated, err := svc.Update(ctx, created.ID, types.UserPatch{
		Age:        intPtr(35),
		Gender:     &gender,
		FiscalCode: strPtr("rssmra90a01h501u"),
	})
	require.NoError(t, err)
	assert.Equal(t, 35, updated.Age)
	assert.Equal(t, types.GenderOther, updated.Gender)
	assert.Equal(t, "RSSMRA90A01H501U", updated.FiscalCode)
	assert.Equal(t, "Mario", updated.FirstName)

	_, err = svc.Update(ctx, created.ID, types.UserPatch{Age: intPtr(-3)})
	var validation *services.ValidationError
	assert.ErrorAs(t, err, &validation)

	_, err = svc.Update(ctx, "missing", types.UserPatch{})
	var notFound *services.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "user", notFound.Kind)
}
