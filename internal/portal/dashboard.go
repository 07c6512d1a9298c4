package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/notification"
)

const (
	dashboardRecentReviews = 5
	dashboardReviews       = 50
)

type dashboardPage struct {
	Statistics *catalog.Statistics       `json:"statistics"`
	Pending    []circulation.Transaction `json:"pending"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)

	var page dashboardPage
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		st, err := s.lib.Statistics.Get(gctx, dashboardRecentReviews)
		page.Statistics = st
		return err
	})
	g.Go(func() error {
		txs, err := s.lib.Transactions.List(gctx, circulation.Filter{Status: circulation.StatusPending})
		page.Pending = txs
		return err
	})
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, "Failed to fetch statistics")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDashboardBooks(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	books, err := s.lib.Books.List(ctx, catalog.Filter{Search: r.URL.Query().Get("search")})
	if err != nil {
		s.fail(w, r, err, "Failed to fetch books")
		return
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleDashboardCreateBook(w http.ResponseWriter, r *http.Request) {
	var in catalog.BookInput
	if !decodeJSON(w, r, &in) {
		return
	}
	_, ctx := identity(r)
	book, err := s.lib.Books.Create(ctx, in)
	if err != nil {
		s.fail(w, r, err, "Failed to save book")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message string        `json:"message"`
		Book    *catalog.Book `json:"book"`
	}{"Book created successfully!", book})
}

func (s *Server) handleDashboardUpdateBook(w http.ResponseWriter, r *http.Request) {
	var in catalog.BookInput
	if !decodeJSON(w, r, &in) {
		return
	}
	_, ctx := identity(r)
	book, err := s.lib.Books.Update(ctx, chi.URLParam(r, "id"), in)
	if err != nil {
		s.fail(w, r, err, "Failed to save book")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string        `json:"message"`
		Book    *catalog.Book `json:"book"`
	}{"Book updated successfully!", book})
}

func (s *Server) handleDashboardDeleteBook(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	if err := s.lib.Books.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Failed to delete book")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted successfully!"})
}

func (s *Server) handleDashboardUsers(w http.ResponseWriter, r *http.Request) {
	var role membership.Role
	if v := r.URL.Query().Get("role"); v != "" {
		parsed, err := membership.ParseRole(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown role")
			return
		}
		role = parsed
	}

	_, ctx := identity(r)
	users, err := s.lib.Users.List(ctx, role)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleDashboardDeleteUser(w http.ResponseWriter, r *http.Request) {
	self, ctx := identity(r)
	id := chi.URLParam(r, "id")
	if id == self.ID {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}
	if err := s.lib.Users.Delete(ctx, id); err != nil {
		s.fail(w, r, err, "Failed to delete user")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted successfully!"})
}

func (s *Server) handleDashboardTransactions(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	txs, err := s.lib.Transactions.List(ctx, transactionFilter(r))
	if err != nil {
		s.fail(w, r, err, "Failed to fetch transactions")
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type statusForm struct {
	InvoiceCode string             `json:"invoiceCode"`
	Status      circulation.Status `json:"status"`
	Type        circulation.Type   `json:"type"`
}

func (s *Server) handleDashboardUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var f statusForm
	if !decodeJSON(w, r, &f) {
		return
	}
	if f.InvoiceCode == "" || f.Status == "" || f.Type == "" {
		writeError(w, http.StatusBadRequest, "invoiceCode, status and type are required")
		return
	}

	_, ctx := identity(r)
	if _, err := s.lib.Transactions.UpdateStatus(ctx, f.InvoiceCode, f.Status, f.Type); err != nil {
		s.fail(w, r, err, "Failed to update transaction")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction updated successfully!"})
}

func (s *Server) handleDashboardReviews(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	reviews, err := s.lib.Reviews.List(ctx, "", dashboardReviews)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch reviews")
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

type notificationsPage struct {
	Users         []membership.User           `json:"users"`
	Notifications []notification.Notification `json:"notifications"`
}

// handleDashboardNotifications lists every user and, when ?userId is given,
// that user's notifications.
func (s *Server) handleDashboardNotifications(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	userID := r.URL.Query().Get("userId")

	page := notificationsPage{Notifications: []notification.Notification{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.lib.Users.List(gctx, "")
		page.Users = users
		return err
	})
	if userID != "" {
		g.Go(func() error {
			list, err := s.lib.Notifications.List(gctx, userID)
			if list != nil {
				page.Notifications = list
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.fail(w, r, err, "Failed to fetch notifications")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleDashboardCreateNotification(w http.ResponseWriter, r *http.Request) {
	var req notification.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.UserID == "" || req.Title == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "userId, title and message are required")
		return
	}
	if req.Type == "" {
		req.Type = notification.KindInfo
	}

	_, ctx := identity(r)
	n, err := s.lib.Notifications.Create(ctx, req)
	if err != nil {
		s.fail(w, r, err, "Failed to send notification")
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		Message      string                     `json:"message"`
		Notification *notification.Notification `json:"notification"`
	}{"Notification sent successfully!", n})
}

func (s *Server) handleDashboardDeleteNotification(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	if _, err := s.lib.Notifications.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Notification deleted successfully!"})
}
