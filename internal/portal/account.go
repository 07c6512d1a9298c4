package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"libranexus/internal/circulation"
	"libranexus/internal/membership"
)

func transactionFilter(r *http.Request) circulation.Filter {
	q := r.URL.Query()
	return circulation.Filter{
		UserID: q.Get("userId"),
		Search: q.Get("search"),
		Status: circulation.Status(q.Get("status")),
		Type:   circulation.Type(q.Get("type")),
	}
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	user, ctx := identity(r)
	f := transactionFilter(r)
	f.UserID = user.ID

	txs, err := s.lib.Transactions.List(ctx, f)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch transactions")
		return
	}
	if txs == nil {
		txs = []circulation.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	user, ctx := identity(r)
	tx, err := s.lib.Transactions.ByInvoice(ctx, chi.URLParam(r, "invoiceCode"))
	if err != nil {
		s.fail(w, r, err, "Failed to fetch transactions")
		return
	}
	if tx.User.ID != user.ID && !user.IsAdmin() {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	user, ctx := identity(r)
	list, err := s.lib.Notifications.List(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch notifications")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	n, err := s.lib.Notifications.MarkRead(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err, "Failed to mark as read")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	if _, err := s.lib.Notifications.Delete(ctx, chi.URLParam(r, "id")); err != nil {
		s.fail(w, r, err, "Failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Notification deleted"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ctx := identity(r)
	u, err := s.lib.Users.Get(ctx, user.ID)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch user data")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// handleUpdateProfile never lets a user change their own role; the current
// one is always sent back unchanged.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var f profileForm
	if !decodeJSON(w, r, &f) {
		return
	}

	user, ctx := identity(r)
	u, err := s.lib.Users.Update(ctx, user.ID, membership.UserUpdate{
		Name:     f.Name,
		Email:    f.Email,
		Phone:    f.Phone,
		Role:     user.Role,
		Password: f.Password,
	})
	if err != nil {
		s.fail(w, r, err, "Failed to update profile")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Message string           `json:"message"`
		User    *membership.User `json:"user"`
	}{"Profile updated successfully!", u})
}
