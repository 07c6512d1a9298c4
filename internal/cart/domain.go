// internal/cart/domain.go
package cart

import (
	"errors"
	"fmt"

	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
)

// Key is the storage key holding the cart as a JSON array.
const Key = "cart"

// Entry is the minimal reference to a book the user wants to borrow.
type Entry struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Image  string `json:"image,omitempty"`
}

// EntryFrom keeps only what the cart needs from a catalog book.
func EntryFrom(b catalog.Book) Entry {
	return Entry{ID: b.ID, Title: b.Title, Author: b.Author, Image: b.Image}
}

func (e Entry) item() circulation.Item {
	return circulation.Item{ID: e.ID, Title: e.Title, Author: e.Author, Image: e.Image}
}

// ErrEmpty is returned when checking out an empty cart.
var ErrEmpty = errors.New("cart is empty")

// ErrNotLoaded is returned by mutations while the stored cart cannot be read.
// Nothing is written until a load succeeds.
var ErrNotLoaded = errors.New("cart not loaded")

// ValidationError rejects a checkout before anything is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Checkout holds what the borrow form collects besides the cart itself.
// Dates are calendar days in YYYY-MM-DD form.
type Checkout struct {
	UserID          string `json:"userId"`
	PaymentMethod   string `json:"paymentMethod"`
	PaymentEvidence string `json:"paymentEvidence,omitempty"`
	DateFrom        string `json:"dateFrom"`
	DateTo          string `json:"dateTo"`
}
