package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"libranexus/internal/backendtest"
	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/clients"
	"libranexus/internal/membership"
	"libranexus/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

type harness struct {
	backend  *backendtest.Server
	accounts backendtest.Accounts
	store    storage.Store
	sessions *Registry
	srv      *httptest.Server
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	store  storage.Store
	logins int
	now    func() time.Time
}

func withStore(s storage.Store) harnessOption {
	return func(c *harnessConfig) { c.store = s }
}

func withLoginsPerMinute(n int) harnessOption {
	return func(c *harnessConfig) { c.logins = n }
}

func withClock(now func() time.Time) harnessOption {
	return func(c *harnessConfig) { c.now = now }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{store: storage.NewMemory(), logins: 100}
	for _, opt := range opts {
		opt(&cfg)
	}

	backend := backendtest.New()
	accounts, err := backend.Seed()
	require.NoError(t, err)
	api := httptest.NewServer(backend.Handler())
	t.Cleanup(api.Close)

	log := zaptest.NewLogger(t)
	lib := clients.NewLibrary(clients.NewTransport(api.URL))
	sessions := NewRegistry(cfg.store, lib, 30*time.Minute, cfg.logins, log)
	if cfg.now != nil {
		sessions.now = cfg.now
	}
	srv := httptest.NewServer(New(lib, sessions, Options{}, log).Handler())
	t.Cleanup(func() {
		srv.Close()
		sessions.Wait()
	})

	return &harness{
		backend:  backend,
		accounts: accounts,
		store:    cfg.store,
		sessions: sessions,
		srv:      srv,
	}
}

// browser keeps cookies between requests and never follows redirects.
type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func (h *harness) browser(t *testing.T) *browser {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	tr := &http.Transport{}
	t.Cleanup(tr.CloseIdleConnections)
	return &browser{
		t:    t,
		base: h.srv.URL,
		client: &http.Client{
			Jar:       jar,
			Transport: tr,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type result struct {
	status int
	header http.Header
	body   []byte
}

func (r result) decode(t *testing.T, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.body, out), string(r.body))
}

func (r result) errorMessage(t *testing.T) string {
	t.Helper()
	var e errorResponse
	r.decode(t, &e)
	return e.Error
}

func (b *browser) do(method, path string, body any) result {
	b.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, b.base+path, reader)
	require.NoError(b.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: raw}
}

func (b *browser) login(u membership.User) {
	b.t.Helper()
	path := "/login"
	if u.IsAdmin() {
		path = "/admin/login"
	}
	res := b.do(http.MethodPost, path, membership.Credentials{Email: u.Email, Password: backendtest.SeedPassword})
	require.Equal(b.t, http.StatusOK, res.status, string(res.body))
}

func (b *browser) bookID(title string) string {
	b.t.Helper()
	var books []bookView
	res := b.do(http.MethodGet, "/books", nil)
	require.Equal(b.t, http.StatusOK, res.status, string(res.body))
	res.decode(b.t, &books)
	for _, bk := range books {
		if bk.Title == title {
			return bk.ID
		}
	}
	b.t.Fatalf("book %q not listed", title)
	return ""
}

func cookieNamed(h http.Header, name string) *http.Cookie {
	for _, c := range (&http.Response{Header: h}).Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	res := h.browser(t).do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Zero(t, h.sessions.Len())
}

func TestAnonymousBrowsing(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)

	res := b.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, res.status)
	var home homePage
	res.decode(t, &home)
	assert.Nil(t, home.User)
	assert.NotEmpty(t, home.Recommended)
	assert.Equal(t, "Designing Data-Intensive Applications", home.Recommended[0].Title)

	c := cookieNamed(res.header, clientCookie)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)

	for _, path := range []string{"/books", "/cart", "/transactions", "/profile", "/dashboard"} {
		res := b.do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusSeeOther, res.status, path)
		assert.Equal(t, "/login", res.header.Get("Location"), path)
	}

	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/login", nil).status)
	assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/register/student", nil).status)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)

	res := b.do(http.MethodPost, "/login", membership.Credentials{Email: h.accounts.Student.Email, Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, "Invalid email or password", res.errorMessage(t))

	res = b.do(http.MethodPost, "/login", membership.Credentials{Email: h.accounts.Student.Email})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = b.do(http.MethodPost, "/login", membership.Credentials{Email: h.accounts.Student.Email, Password: backendtest.SeedPassword})
	require.Equal(t, http.StatusOK, res.status)
	var out loginResponse
	res.decode(t, &out)
	assert.Equal(t, "/", out.Redirect)
	assert.Equal(t, h.accounts.Student.ID, out.User.ID)
	tok := cookieNamed(res.header, "token")
	require.NotNil(t, tok)
	assert.NotEmpty(t, tok.Value)

	// Public pages bounce a signed-in browser home.
	res = b.do(http.MethodGet, "/login", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.header.Get("Location"))

	res = b.do(http.MethodGet, "/profile", nil)
	require.Equal(t, http.StatusOK, res.status)
	var u membership.User
	res.decode(t, &u)
	assert.Equal(t, "2201001", u.NIM)
}

func TestAdminLogin(t *testing.T) {
	h := newHarness(t)

	student := h.browser(t)
	res := student.do(http.MethodPost, "/admin/login", membership.Credentials{Email: h.accounts.Student.Email, Password: backendtest.SeedPassword})
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, "Only administrators can sign in here", res.errorMessage(t))
	assert.Nil(t, cookieNamed(res.header, "token"))

	admin := h.browser(t)
	res = admin.do(http.MethodPost, "/admin/login", membership.Credentials{Email: h.accounts.Admin.Email, Password: backendtest.SeedPassword})
	require.Equal(t, http.StatusOK, res.status)
	var out loginResponse
	res.decode(t, &out)
	assert.Equal(t, "/dashboard", out.Redirect)
}

func TestLoginRateLimit(t *testing.T) {
	h := newHarness(t, withLoginsPerMinute(2))
	b := h.browser(t)

	bad := membership.Credentials{Email: h.accounts.Student.Email, Password: "nope"}
	assert.Equal(t, http.StatusUnauthorized, b.do(http.MethodPost, "/login", bad).status)
	assert.Equal(t, http.StatusUnauthorized, b.do(http.MethodPost, "/login", bad).status)

	res := b.do(http.MethodPost, "/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, "60", res.header.Get("Retry-After"))
	assert.Equal(t, 2, h.backend.Calls("POST /auth/login"))

	// Limits are per browser.
	other := h.browser(t)
	assert.Equal(t, http.StatusUnauthorized, other.do(http.MethodPost, "/login", bad).status)
}

func TestLoginRateLimitSurvivesNewClientID(t *testing.T) {
	h := newHarness(t, withLoginsPerMinute(1))
	bad := membership.Credentials{Email: h.accounts.Student.Email, Password: "nope"}

	// Each fresh browser is a new client id from the same address.
	for range ipLoginFactor {
		assert.Equal(t, http.StatusUnauthorized, h.browser(t).do(http.MethodPost, "/login", bad).status)
	}
	res := h.browser(t).do(http.MethodPost, "/login", bad)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, ipLoginFactor, h.backend.Calls("POST /auth/login"))
}

func TestRegister(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)

	form := registerForm{
		Email:           "new@libranexus.test",
		Password:        "secret123",
		ConfirmPassword: "secret124",
		Name:            "New Student",
		NIM:             "2201999",
		Year:            "2024",
	}
	res := b.do(http.MethodPost, "/register/student", form)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Passwords do not match!", res.errorMessage(t))
	assert.Zero(t, h.backend.Calls("POST /users/register/{role}"))

	form.ConfirmPassword = form.Password
	res = b.do(http.MethodPost, "/register/student", form)
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var msg messageResponse
	res.decode(t, &msg)
	assert.Equal(t, "/login", msg.Redirect)

	res = b.do(http.MethodPost, "/register/student", form)
	assert.Equal(t, http.StatusConflict, res.status)
	assert.Equal(t, "Email is already registered", res.errorMessage(t))

	admin := registerForm{Email: "boss@libranexus.test", Password: "pw", ConfirmPassword: "pw", Name: "Boss"}
	res = b.do(http.MethodPost, "/register/admin", admin)
	require.Equal(t, http.StatusCreated, res.status)
	res.decode(t, &msg)
	assert.Equal(t, "/admin/login", msg.Redirect)

	b.login(membership.User{Email: form.Email, Role: membership.RoleStudent})
}

func TestCartAndCheckout(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login(h.accounts.Student)

	ddia := b.bookID("Designing Data-Intensive Applications")
	gopl := b.bookID("The Go Programming Language")
	sicp := b.bookID("Structure and Interpretation of Computer Programs")

	var page cartPage
	for _, id := range []string{ddia, gopl, ddia} {
		res := b.do(http.MethodPost, "/cart", addForm{BookID: id})
		require.Equal(t, http.StatusOK, res.status, string(res.body))
		res.decode(t, &page)
	}
	assert.Equal(t, 2, page.Count)

	res := b.do(http.MethodPost, "/cart", addForm{BookID: sicp})
	assert.Equal(t, http.StatusConflict, res.status)

	var books []bookView
	b.do(http.MethodGet, "/books", nil).decode(t, &books)
	for _, bk := range books {
		assert.Equal(t, bk.ID == ddia || bk.ID == gopl, bk.InCart, bk.Title)
	}

	res = b.do(http.MethodPost, "/cart/checkout", checkoutForm{PaymentMethod: "cash", DateFrom: "2026-10-20", DateTo: "2026-10-10"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "end date is before start date", res.errorMessage(t))
	assert.Zero(t, h.backend.Calls("POST /transactions"))

	res = b.do(http.MethodPost, "/cart/checkout", checkoutForm{PaymentMethod: "cash", DateFrom: "2026-10-20", DateTo: "2026-10-27"})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var out checkoutResponse
	res.decode(t, &out)
	assert.NotEmpty(t, out.InvoiceCode)
	assert.Equal(t, "/transactions/"+out.InvoiceCode, out.Redirect)

	b.do(http.MethodGet, "/cart", nil).decode(t, &page)
	assert.Zero(t, page.Count)

	var tx circulation.Transaction
	res = b.do(http.MethodGet, out.Redirect, nil)
	require.Equal(t, http.StatusOK, res.status)
	res.decode(t, &tx)
	assert.Equal(t, circulation.StatusPending, tx.Status)
	assert.Len(t, tx.Items, 2)
	assert.Equal(t, h.accounts.Student.ID, tx.User.ID)

	res = b.do(http.MethodPost, "/cart/checkout", checkoutForm{PaymentMethod: "cash", DateFrom: "2026-10-20", DateTo: "2026-10-27"})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, "Your cart is empty", res.errorMessage(t))

	// Someone else's invoice stays hidden.
	other := h.browser(t)
	other.login(h.accounts.Lecturer)
	assert.Equal(t, http.StatusNotFound, other.do(http.MethodGet, out.Redirect, nil).status)
}

func TestCartRemoveAndClear(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login(h.accounts.Student)

	ddia := b.bookID("Designing Data-Intensive Applications")
	gopl := b.bookID("The Go Programming Language")
	b.do(http.MethodPost, "/cart", addForm{BookID: ddia})
	b.do(http.MethodPost, "/cart", addForm{BookID: gopl})

	var page cartPage
	b.do(http.MethodDelete, "/cart/"+ddia, nil).decode(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, gopl, page.Items[0].ID)

	b.do(http.MethodDelete, "/cart", nil).decode(t, &page)
	assert.Zero(t, page.Count)
	assert.NotNil(t, page.Items)
}

func TestSessionSurvivesEviction(t *testing.T) {
	var skew atomic.Int64
	h := newHarness(t, withClock(func() time.Time {
		return time.Now().Add(time.Duration(skew.Load()))
	}))

	b := h.browser(t)
	b.login(h.accounts.Student)
	ddia := b.bookID("Designing Data-Intensive Applications")
	b.do(http.MethodPost, "/cart", addForm{BookID: ddia})

	skew.Store(int64(time.Hour))
	assert.Equal(t, 1, h.sessions.Sweep())
	assert.Zero(t, h.sessions.Len())

	var page cartPage
	res := b.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, res.status)
	res.decode(t, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ddia, page.Items[0].ID)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login(h.accounts.Student)
	b.do(http.MethodPost, "/cart", addForm{BookID: b.bookID("Laskar Pelangi")})

	res := b.do(http.MethodPost, "/logout", nil)
	require.Equal(t, http.StatusOK, res.status)
	tok := cookieNamed(res.header, "token")
	require.NotNil(t, tok)
	assert.Negative(t, tok.MaxAge)

	res = b.do(http.MethodGet, "/books", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/login", res.header.Get("Location"))

	b.login(h.accounts.Student)
	var page cartPage
	b.do(http.MethodGet, "/cart", nil).decode(t, &page)
	assert.Zero(t, page.Count)
}

func TestStaleTokenCookie(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)

	req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/books", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "token", Value: "left-over"})
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	tok := cookieNamed(resp.Header, "token")
	require.NotNil(t, tok)
	assert.Negative(t, tok.MaxAge)
}

func TestReviews(t *testing.T) {
	h := newHarness(t)
	b := h.browser(t)
	b.login(h.accounts.Lecturer)
	id := b.bookID("Laskar Pelangi")

	res := b.do(http.MethodPost, "/books/"+id+"/reviews", reviewForm{Rating: 9, Content: "too high"})
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = b.do(http.MethodPost, "/books/"+id+"/reviews", reviewForm{Rating: 5, Content: "Lovely"})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))

	var book bookView
	b.do(http.MethodGet, "/books/"+id, nil).decode(t, &book)
	require.NotEmpty(t, book.Reviews)
	assert.Equal(t, "Lovely", book.Reviews[0].Content)
	assert.Equal(t, h.accounts.Lecturer.Name, book.Reviews[0].AuthorName)
}

func TestDashboardGate(t *testing.T) {
	h := newHarness(t)

	student := h.browser(t)
	student.login(h.accounts.Student)
	res := student.do(http.MethodGet, "/dashboard", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.header.Get("Location"))
	assert.Zero(t, h.backend.Calls("GET /statistic"))

	admin := h.browser(t)
	admin.login(h.accounts.Admin)
	res = admin.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	var page dashboardPage
	res.decode(t, &page)
	require.NotNil(t, page.Statistics)
	assert.Equal(t, 4, page.Statistics.TotalBook)
	assert.Equal(t, 3, page.Statistics.TotalUser)
}

func TestDashboardAdministration(t *testing.T) {
	h := newHarness(t)

	student := h.browser(t)
	student.login(h.accounts.Student)
	student.do(http.MethodPost, "/cart", addForm{BookID: student.bookID("Laskar Pelangi")})
	var out checkoutResponse
	student.do(http.MethodPost, "/cart/checkout", checkoutForm{PaymentMethod: "cash", DateFrom: "2026-10-20", DateTo: "2026-10-21"}).decode(t, &out)
	require.NotEmpty(t, out.InvoiceCode)

	admin := h.browser(t)
	admin.login(h.accounts.Admin)

	var page dashboardPage
	admin.do(http.MethodGet, "/dashboard", nil).decode(t, &page)
	require.Len(t, page.Pending, 1)
	assert.Equal(t, out.InvoiceCode, page.Pending[0].InvoiceCode)

	res := admin.do(http.MethodPut, "/dashboard/transactions", statusForm{
		InvoiceCode: out.InvoiceCode, Status: circulation.StatusApproved, Type: circulation.TypeBorrow,
	})
	require.Equal(t, http.StatusOK, res.status, string(res.body))

	var tx circulation.Transaction
	student.do(http.MethodGet, "/transactions/"+out.InvoiceCode, nil).decode(t, &tx)
	assert.Equal(t, circulation.StatusApproved, tx.Status)

	res = admin.do(http.MethodPost, "/dashboard/books", catalog.BookInput{
		Title: "Clean Architecture", Author: "Robert Martin", Category: "Programming",
		Year: 2017, ISBN: "9780134494166", Quota: 1, AvailableCopies: 1, CanBorrow: true,
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))
	var created struct {
		Book catalog.Book `json:"book"`
	}
	res.decode(t, &created)
	assert.Equal(t, http.StatusOK, admin.do(http.MethodDelete, "/dashboard/books/"+created.Book.ID, nil).status)

	res = admin.do(http.MethodPost, "/dashboard/notifications", map[string]string{
		"userId": h.accounts.Student.ID, "title": "Reminder", "message": "Bring your card",
	})
	require.Equal(t, http.StatusCreated, res.status, string(res.body))

	var notes notificationsPage
	admin.do(http.MethodGet, "/dashboard/notifications?userId="+h.accounts.Student.ID, nil).decode(t, &notes)
	assert.Len(t, notes.Users, 3)
	assert.NotEmpty(t, notes.Notifications)

	res = admin.do(http.MethodDelete, "/dashboard/users/"+h.accounts.Admin.ID, nil)
	assert.Equal(t, http.StatusBadRequest, res.status)

	res = admin.do(http.MethodGet, "/dashboard/users?role=wizard", nil)
	assert.Equal(t, http.StatusBadRequest, res.status)
}

// gatedStore holds every read until the gate opens.
type gatedStore struct {
	storage.Store
	gate chan struct{}
}

func (g *gatedStore) Read(ctx context.Context, key string) (string, bool, error) {
	select {
	case <-g.gate:
	case <-ctx.Done():
		return "", false, ctx.Err()
	}
	return g.Store.Read(ctx, key)
}

func TestDashboardLoading(t *testing.T) {
	store := &gatedStore{Store: storage.NewMemory(), gate: make(chan struct{})}
	h := newHarness(t, withStore(store))
	b := h.browser(t)

	request := func() *http.Response {
		req, err := http.NewRequest(http.MethodGet, h.srv.URL+"/dashboard", nil)
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: "token", Value: "restoring"})
		resp, err := b.client.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp
	}

	resp := request()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "1", resp.Header.Get("Retry-After"))

	close(store.gate)
	h.sessions.Wait()

	resp = request()
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
}

// outageStore fails reads of keys ending in suffix while down is set. An
// empty suffix fails every read.
type outageStore struct {
	storage.Store
	down   atomic.Bool
	suffix atomic.Value
}

func (o *outageStore) Read(ctx context.Context, key string) (string, bool, error) {
	suffix, _ := o.suffix.Load().(string)
	if o.down.Load() && strings.HasSuffix(key, suffix) {
		return "", false, errors.New("connection refused")
	}
	return o.Store.Read(ctx, key)
}

func TestStorageOutageKeepsSession(t *testing.T) {
	var skew atomic.Int64
	store := &outageStore{Store: storage.NewMemory()}
	h := newHarness(t, withStore(store), withClock(func() time.Time {
		return time.Now().Add(time.Duration(skew.Load()))
	}))
	evict := func() {
		skew.Add(int64(time.Hour))
		require.Equal(t, 1, h.sessions.Sweep())
	}

	b := h.browser(t)
	b.login(h.accounts.Student)
	ddia := b.bookID("Designing Data-Intensive Applications")
	pelangi := b.bookID("Laskar Pelangi")
	require.Equal(t, http.StatusOK, b.do(http.MethodPost, "/cart", addForm{BookID: ddia}).status)

	t.Run("cart unreadable", func(t *testing.T) {
		h.sessions.Wait()
		evict()
		store.suffix.Store(":cart")
		store.down.Store(true)

		res := b.do(http.MethodPost, "/cart", addForm{BookID: pelangi})
		assert.Equal(t, http.StatusServiceUnavailable, res.status)
		assert.Equal(t, "Your cart could not be loaded, please try again", res.errorMessage(t))
		assert.Equal(t, http.StatusServiceUnavailable, b.do(http.MethodGet, "/cart", nil).status)

		store.down.Store(false)
		var page cartPage
		res = b.do(http.MethodPost, "/cart", addForm{BookID: pelangi})
		require.Equal(t, http.StatusOK, res.status)
		res.decode(t, &page)
		require.Len(t, page.Items, 2)
		assert.Equal(t, ddia, page.Items[0].ID)
		assert.Equal(t, pelangi, page.Items[1].ID)
	})

	t.Run("session unreadable", func(t *testing.T) {
		h.sessions.Wait()
		evict()
		store.suffix.Store("")
		store.down.Store(true)

		res := b.do(http.MethodGet, "/books", nil)
		assert.Equal(t, http.StatusServiceUnavailable, res.status)
		assert.Nil(t, cookieNamed(res.header, "token"))

		store.down.Store(false)
		assert.Equal(t, http.StatusOK, b.do(http.MethodGet, "/books", nil).status)
		var page cartPage
		b.do(http.MethodGet, "/cart", nil).decode(t, &page)
		assert.Equal(t, 2, page.Count)
	})
}
