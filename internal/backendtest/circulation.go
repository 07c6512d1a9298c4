package backendtest

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/notification"
)

// Transactions returns copies of every stored transaction, oldest first.
func (s *Server) Transactions() []circulation.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]circulation.Transaction, 0, len(s.transactions))
	for _, tx := range s.transactions {
		out = append(out, *tx)
	}
	return out
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req circulation.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	c := callerFrom(r.Context())
	if req.UserID != c.id && !c.admin() {
		writeError(w, http.StatusForbidden, "You can only borrow for yourself")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "At least one book is required")
		return
	}
	from, errFrom := time.Parse("2006-01-02", req.DateFrom)
	to, errTo := time.Parse("2006-01-02", req.DateTo)
	if errFrom != nil || errTo != nil || to.Before(from) {
		writeError(w, http.StatusBadRequest, "A valid date range is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[req.UserID]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	items := make([]circulation.Item, 0, len(req.Items))
	for _, it := range req.Items {
		b, ok := s.books[it.ID]
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Book %s not found", it.ID))
			return
		}
		if !b.Available() {
			writeError(w, http.StatusConflict, fmt.Sprintf("%q is not available for borrowing", b.Title))
			return
		}
		items = append(items, circulation.Item{ID: b.ID, Title: b.Title, Author: b.Author, Image: b.Image, LateFee: b.LateFee})
	}
	for _, it := range items {
		s.books[it.ID].AvailableCopies--
	}

	tx := &circulation.Transaction{
		ID:              uuid.NewString(),
		InvoiceCode:     s.invoiceCode(),
		DateRange:       circulation.DateRange{From: req.DateFrom, To: req.DateTo},
		Status:          circulation.StatusPending,
		Type:            circulation.TypeBorrow,
		User:            borrower(acc.User),
		TotalFee:        req.TotalFee,
		PaymentMethod:   req.PaymentMethod,
		PaymentEvidence: req.PaymentEvidence,
		Items:           items,
	}
	s.transactions = append(s.transactions, tx)
	s.notify(acc.User, "Borrow request received",
		fmt.Sprintf("Your request %s is waiting for approval.", tx.InvoiceCode), notification.KindInfo)

	writeJSON(w, http.StatusCreated, circulation.CreateResponse{Message: "Transaction created", Data: tx.InvoiceCode})
}

// invoiceCode needs s.mu held.
func (s *Server) invoiceCode() string {
	return fmt.Sprintf("INV-%s-%04d", s.now().UTC().Format("20060102"), len(s.transactions)+1)
}

func borrower(u membership.User) circulation.Borrower {
	return circulation.Borrower{ID: u.ID, Name: u.Name, Email: u.Email, Phone: u.Phone, Role: string(u.Role)}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := circulation.Filter{
		UserID: q.Get("userId"),
		Search: q.Get("search"),
		Status: circulation.Status(q.Get("status")),
		Type:   circulation.Type(q.Get("type")),
	}
	if c := callerFrom(r.Context()); !c.admin() {
		f.UserID = c.id
	}

	s.mu.Lock()
	out := []circulation.Transaction{}
	for i := len(s.transactions) - 1; i >= 0; i-- {
		if tx := s.transactions[i]; matchesTransaction(tx, f) {
			out = append(out, *tx)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func matchesTransaction(tx *circulation.Transaction, f circulation.Filter) bool {
	if f.UserID != "" && tx.User.ID != f.UserID {
		return false
	}
	if f.Status != "" && tx.Status != f.Status {
		return false
	}
	if f.Type != "" && tx.Type != f.Type {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(tx.InvoiceCode), q) && !strings.Contains(strings.ToLower(tx.User.Name), q) {
			return false
		}
	}
	return true
}

func (s *Server) handleTransactionByInvoice(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("invoiceCode")
	c := callerFrom(r.Context())

	s.mu.Lock()
	tx := s.findTransaction(code)
	var out circulation.Transaction
	if tx != nil {
		out = *tx
	}
	s.mu.Unlock()

	if tx == nil || (!c.admin() && out.User.ID != c.id) {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// findTransaction needs s.mu held.
func (s *Server) findTransaction(code string) *circulation.Transaction {
	for _, tx := range s.transactions {
		if tx.InvoiceCode == code {
			return tx
		}
	}
	return nil
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code := q.Get("invoiceCode")
	status := circulation.Status(q.Get("status"))
	typ := circulation.Type(q.Get("type"))

	switch status {
	case circulation.StatusApproved, circulation.StatusDeclined, circulation.StatusOverdue, circulation.StatusPending:
	default:
		writeError(w, http.StatusBadRequest, "Unknown status")
		return
	}
	switch typ {
	case "", circulation.TypeBorrow, circulation.TypeReturn:
	default:
		writeError(w, http.StatusBadRequest, "Unknown transaction type")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tx := s.findTransaction(code)
	if tx == nil {
		writeError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	// Copies go back on the shelf when a borrow is declined or a return is
	// approved.
	returning := typ == circulation.TypeReturn && status == circulation.StatusApproved && tx.Type != circulation.TypeReturn
	declining := status == circulation.StatusDeclined && tx.Status != circulation.StatusDeclined && tx.Type == circulation.TypeBorrow
	if returning || declining {
		for _, it := range tx.Items {
			if b, ok := s.books[it.ID]; ok && b.AvailableCopies < b.Quota {
				b.AvailableCopies++
			}
		}
	}
	tx.Status = status
	if typ != "" {
		tx.Type = typ
	}

	if acc, ok := s.accounts[tx.User.ID]; ok {
		kind := notification.KindInfo
		if status == circulation.StatusOverdue {
			kind = notification.KindAlert
		}
		s.notify(acc.User, "Transaction "+strings.ToLower(string(status)),
			fmt.Sprintf("%s is now %s.", tx.InvoiceCode, status), kind)
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Transaction updated"})
}

// notify needs s.mu held.
func (s *Server) notify(u membership.User, title, message string, kind notification.Kind) *notification.Notification {
	n := &notification.Notification{
		ID:      uuid.NewString(),
		User:    notification.Recipient{ID: u.ID, Email: u.Email, Name: u.Name},
		Title:   title,
		Message: message,
		Type:    kind,
		Date:    s.today(),
	}
	s.notifications = append(s.notifications, n)
	return n
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if c := callerFrom(r.Context()); !c.admin() {
		userID = c.id
	}

	s.mu.Lock()
	out := []notification.Notification{}
	for i := len(s.notifications) - 1; i >= 0; i-- {
		if n := s.notifications[i]; userID == "" || n.User.ID == userID {
			out = append(out, *n)
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("notifId")
	c := callerFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID != id {
			continue
		}
		if n.User.ID != c.id && !c.admin() {
			break
		}
		n.Read = true
		writeJSON(w, http.StatusOK, *n)
		return
	}
	writeError(w, http.StatusNotFound, "Notification not found")
}

func (s *Server) handleCreateNotification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := notification.Kind(q.Get("type"))
	switch kind {
	case "":
		kind = notification.KindInfo
	case notification.KindInfo, notification.KindReminder, notification.KindAlert:
	default:
		writeError(w, http.StatusBadRequest, "Unknown notification type")
		return
	}
	if q.Get("title") == "" || q.Get("message") == "" {
		writeError(w, http.StatusBadRequest, "Title and message are required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[q.Get("userId")]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	n := s.notify(acc.User, q.Get("title"), q.Get("message"), kind)
	writeJSON(w, http.StatusCreated, *n)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := callerFrom(r.Context())

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID != id {
			continue
		}
		if n.User.ID != c.id && !c.admin() {
			break
		}
		s.notifications = append(s.notifications[:i:i], s.notifications[i+1:]...)
		writeJSON(w, http.StatusOK, messageResponse{Message: "Notification deleted"})
		return
	}
	writeError(w, http.StatusNotFound, "Notification not found")
}
