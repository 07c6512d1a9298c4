package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"libranexus/internal/backendtest"
	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/notification"
)

type fixture struct {
	backend  *backendtest.Server
	accounts backendtest.Accounts
	lib      *Library
}

func setup(t *testing.T) *fixture {
	t.Helper()
	backend := backendtest.New()
	accounts, err := backend.Seed()
	require.NoError(t, err)

	srv := httptest.NewServer(backend.Handler())
	t.Cleanup(srv.Close)

	return &fixture{
		backend:  backend,
		accounts: accounts,
		lib:      NewLibrary(NewTransport(srv.URL)),
	}
}

// as logs in and returns a context carrying the token.
func (f *fixture) as(t *testing.T, u membership.User) context.Context {
	t.Helper()
	resp, err := f.lib.Auth.Login(context.Background(), membership.Credentials{Email: u.Email, Password: backendtest.SeedPassword})
	require.NoError(t, err)
	return WithToken(context.Background(), resp.Token)
}

func TestLogin(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	resp, err := f.lib.Auth.Login(ctx, membership.Credentials{Email: f.accounts.Student.Email, Password: backendtest.SeedPassword})
	require.NoError(t, err)
	assert.Equal(t, f.accounts.Student.ID, resp.ID)
	assert.Equal(t, "student", resp.Role)
	assert.NotEmpty(t, resp.Token)

	_, err = f.lib.Auth.Login(ctx, membership.Credentials{Email: f.accounts.Student.Email, Password: "wrong"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
}

func TestLoginAdminRejectsStudent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.lib.Auth.LoginAdmin(ctx, membership.Credentials{Email: f.accounts.Student.Email, Password: backendtest.SeedPassword})
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
	assert.Equal(t, "Only administrators can sign in here", Message(err, ""))

	resp, err := f.lib.Auth.LoginAdmin(ctx, membership.Credentials{Email: f.accounts.Admin.Email, Password: backendtest.SeedPassword})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Role)
}

func TestRegister(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg, err := f.lib.Auth.RegisterStudent(ctx, membership.RegisterStudent{
		Email: "new@uni.test", Password: "secret1", Name: "New Student", Phone: "0812", NIM: "2301", Year: "2023",
	})
	require.NoError(t, err)
	assert.Equal(t, "Registration successful", msg)

	_, err = f.lib.Auth.RegisterLecturer(ctx, membership.RegisterLecturer{
		Email: "new@uni.test", Password: "secret1", Name: "Dup", NIP: "1",
	})
	assert.Equal(t, http.StatusConflict, StatusOf(err))

	_, err = f.lib.Auth.RegisterAdmin(ctx, membership.RegisterAdmin{Email: "boss@uni.test", Password: "secret1", Name: "Boss"})
	require.NoError(t, err)
	resp, err := f.lib.Auth.LoginAdmin(ctx, membership.Credentials{Email: "boss@uni.test", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "admin", resp.Role)
}

func TestProtectedEndpointsNeedToken(t *testing.T) {
	f := setup(t)
	_, err := f.lib.Books.List(context.Background(), catalog.Filter{})
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestBooks(t *testing.T) {
	f := setup(t)
	ctx := f.as(t, f.accounts.Student)

	all, err := f.lib.Books.List(ctx, catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	prog, err := f.lib.Books.List(ctx, catalog.Filter{Category: "programming"})
	require.NoError(t, err)
	assert.Len(t, prog, 2)

	byYear, err := f.lib.Books.List(ctx, catalog.Filter{Search: "go", Years: 2015})
	require.NoError(t, err)
	require.Len(t, byYear, 1)
	assert.Equal(t, "The Go Programming Language", byYear[0].Title)

	rec, err := f.lib.Books.Recommended(ctx, 2)
	require.NoError(t, err)
	require.Len(t, rec, 2)
	assert.Equal(t, "Designing Data-Intensive Applications", rec[0].Title)

	book, err := f.lib.Books.Get(ctx, byYear[0].ID, 3)
	require.NoError(t, err)
	assert.True(t, book.Available())

	_, err = f.lib.Books.Get(ctx, "missing", 0)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestBookAdministration(t *testing.T) {
	f := setup(t)
	student := f.as(t, f.accounts.Student)
	admin := f.as(t, f.accounts.Admin)
	in := catalog.BookInput{Title: "Clean Code", Author: "Robert Martin", Category: "Programming", Year: 2008, Quota: 2, AvailableCopies: 2, CanBorrow: true}

	_, err := f.lib.Books.Create(student, in)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	created, err := f.lib.Books.Create(admin, in)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	in.AvailableCopies = 1
	updated, err := f.lib.Books.Update(admin, created.ID, in)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.AvailableCopies)

	require.NoError(t, f.lib.Books.Delete(admin, created.ID))
	_, err = f.lib.Books.Get(admin, created.ID, 0)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestReviews(t *testing.T) {
	f := setup(t)
	ctx := f.as(t, f.accounts.Student)
	books, err := f.lib.Books.List(ctx, catalog.Filter{Search: "Laskar"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	id := books[0].ID

	require.NoError(t, f.lib.Reviews.Create(ctx, catalog.ReviewInput{
		BookID: id,
		Review: catalog.ReviewBody{AuthorID: f.accounts.Student.ID, Rating: 5, Content: "Moving."},
	}))
	require.NoError(t, f.lib.Reviews.Create(ctx, catalog.ReviewInput{
		BookID: id,
		Review: catalog.ReviewBody{AuthorID: f.accounts.Student.ID, Rating: 3, Content: "Long."},
	}))

	reviews, err := f.lib.Reviews.List(ctx, id, 1)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Long.", reviews[0].Content)
	assert.Equal(t, "Sari Student", reviews[0].AuthorName)

	err = f.lib.Reviews.Create(ctx, catalog.ReviewInput{BookID: id, Review: catalog.ReviewBody{Rating: 9, Content: "x"}})
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	book, err := f.lib.Books.Get(ctx, id, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, book.Rating, 0.001)
	assert.Len(t, book.Reviews, 2)
}

func TestTransactionsLifecycle(t *testing.T) {
	f := setup(t)
	student := f.as(t, f.accounts.Student)
	admin := f.as(t, f.accounts.Admin)

	books, err := f.lib.Books.List(student, catalog.Filter{Search: "Kleppmann"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	book := books[0]

	created, err := f.lib.Transactions.Create(student, circulation.CreateRequest{
		UserID:        f.accounts.Student.ID,
		Items:         []circulation.Item{{ID: book.ID, Title: book.Title, Author: book.Author}},
		PaymentMethod: "CASH",
		DateFrom:      "2026-03-01",
		DateTo:        "2026-03-08",
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.Data)

	tx, err := f.lib.Transactions.ByInvoice(student, created.Data)
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusPending, tx.Status)
	assert.Equal(t, circulation.TypeBorrow, tx.Type)
	assert.Equal(t, f.accounts.Student.ID, tx.User.ID)

	after, err := f.lib.Books.Get(student, book.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, book.AvailableCopies-1, after.AvailableCopies)

	_, err = f.lib.Transactions.UpdateStatus(student, created.Data, circulation.StatusApproved, circulation.TypeBorrow)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	msg, err := f.lib.Transactions.UpdateStatus(admin, created.Data, circulation.StatusApproved, circulation.TypeBorrow)
	require.NoError(t, err)
	assert.Equal(t, "Transaction updated", msg)

	approved, err := f.lib.Transactions.List(admin, circulation.Filter{Status: circulation.StatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, created.Data, approved[0].InvoiceCode)

	_, err = f.lib.Transactions.UpdateStatus(admin, created.Data, circulation.StatusApproved, circulation.TypeReturn)
	require.NoError(t, err)
	restored, err := f.lib.Books.Get(student, book.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, book.AvailableCopies, restored.AvailableCopies)

	mine, err := f.lib.Transactions.List(student, circulation.Filter{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestBorrowUnavailableBook(t *testing.T) {
	f := setup(t)
	ctx := f.as(t, f.accounts.Student)
	books, err := f.lib.Books.List(ctx, catalog.Filter{Search: "Structure and Interpretation"})
	require.NoError(t, err)
	require.Len(t, books, 1)

	_, err = f.lib.Transactions.Create(ctx, circulation.CreateRequest{
		UserID:   f.accounts.Student.ID,
		Items:    []circulation.Item{{ID: books[0].ID}},
		DateFrom: "2026-03-01",
		DateTo:   "2026-03-02",
	})
	assert.Equal(t, http.StatusConflict, StatusOf(err))
	assert.Contains(t, Message(err, ""), "not available")
}

func TestNotifications(t *testing.T) {
	f := setup(t)
	student := f.as(t, f.accounts.Student)
	admin := f.as(t, f.accounts.Admin)

	n, err := f.lib.Notifications.Create(admin, notification.CreateRequest{
		UserID: f.accounts.Student.ID, Title: "Due soon", Message: "Return your books by Friday", Type: notification.KindReminder,
	})
	require.NoError(t, err)
	assert.Equal(t, notification.KindReminder, n.Type)

	list, err := f.lib.Notifications.List(student, f.accounts.Student.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	read, err := f.lib.Notifications.MarkRead(student, n.ID)
	require.NoError(t, err)
	assert.True(t, read.Read)

	_, err = f.lib.Notifications.Create(student, notification.CreateRequest{UserID: f.accounts.Student.ID, Title: "x", Message: "y"})
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	msg, err := f.lib.Notifications.Delete(student, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "Notification deleted", msg)

	list, err = f.lib.Notifications.List(student, f.accounts.Student.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUsers(t *testing.T) {
	f := setup(t)
	student := f.as(t, f.accounts.Student)
	admin := f.as(t, f.accounts.Admin)

	lecturers, err := f.lib.Users.List(admin, membership.RoleLecturer)
	require.NoError(t, err)
	require.Len(t, lecturers, 1)
	assert.Equal(t, f.accounts.Lecturer.ID, lecturers[0].ID)

	_, err = f.lib.Users.List(student, "")
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	me, err := f.lib.Users.Get(student, f.accounts.Student.ID)
	require.NoError(t, err)
	assert.Equal(t, "2201001", me.NIM)

	updated, err := f.lib.Users.Update(student, f.accounts.Student.ID, membership.UserUpdate{Name: "Sari S.", Password: "newpass1"})
	require.NoError(t, err)
	assert.Equal(t, "Sari S.", updated.Name)

	_, err = f.lib.Auth.Login(context.Background(), membership.Credentials{Email: f.accounts.Student.Email, Password: "newpass1"})
	assert.NoError(t, err)

	_, err = f.lib.Users.Update(student, f.accounts.Student.ID, membership.UserUpdate{Role: membership.RoleAdmin})
	assert.Equal(t, http.StatusForbidden, StatusOf(err))

	require.NoError(t, f.lib.Users.Delete(admin, f.accounts.Lecturer.ID))
	_, err = f.lib.Users.Get(admin, f.accounts.Lecturer.ID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestStatistics(t *testing.T) {
	f := setup(t)
	admin := f.as(t, f.accounts.Admin)

	stats, err := f.lib.Statistics.Get(admin, 5)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalBook)
	assert.Equal(t, 3, stats.TotalUser)
	assert.Zero(t, stats.TotalTransaction)
}

func TestErrorBodies(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"message field", `{"message":"Book quota exceeded"}`, "Book quota exceeded"},
		{"error field", `{"error":"invalid token"}`, "invalid token"},
		{"no json", `<html>oops</html>`, "request failed: 502 Bad Gateway"},
		{"empty", ``, "request failed: 502 Bad Gateway"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewBooksClient(NewTransport(srv.URL)).List(context.Background(), catalog.Filter{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadGateway, apiErr.Status)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, "books.list", apiErr.Op)
		})
	}
}

func TestRequestShape(t *testing.T) {
	seen := make(chan *http.Request, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen <- r.Clone(context.Background())
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewBooksClient(NewTransport(srv.URL + "/api/"))
	_, err := c.List(WithToken(context.Background(), "tok-123"), catalog.Filter{Search: "go lang", Years: 2015})
	require.NoError(t, err)

	got := <-seen
	assert.Equal(t, "/api/books", got.URL.Path)
	assert.Equal(t, "go lang", got.URL.Query().Get("search"))
	assert.Equal(t, "2015", got.URL.Query().Get("years"))
	assert.False(t, got.URL.Query().Has("category"))
	assert.Equal(t, "Bearer tok-123", got.Header.Get("Authorization"))
}

func TestMessageFallback(t *testing.T) {
	assert.Equal(t, "fallback", Message(context.DeadlineExceeded, "fallback"))
	assert.Zero(t, StatusOf(context.DeadlineExceeded))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewBooksClient(NewTransport(srv.URL, WithBreaker(2, time.Minute)))
	for i := 0; i < 2; i++ {
		_, err := c.List(context.Background(), catalog.Filter{})
		assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	}

	_, err := c.List(context.Background(), catalog.Filter{})
	assert.Equal(t, http.StatusServiceUnavailable, StatusOf(err))
	assert.EqualValues(t, 2, hits.Load())
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewBooksClient(NewTransport(srv.URL, WithBreaker(1, time.Minute)))
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "x", 0)
		assert.Equal(t, http.StatusNotFound, StatusOf(err))
	}
	assert.EqualValues(t, 3, hits.Load())
}
