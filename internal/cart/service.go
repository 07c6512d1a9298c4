// internal/cart/service.go
package cart

import (
	"context"

	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
)

// Service is the cart of one client. Mutations are written through to
// storage before they return.
type Service interface {
	// Initialize loads the persisted cart. Corrupt or missing data yields an
	// empty cart. Once a load succeeds later calls do nothing; a storage
	// error leaves the cart unloaded and is returned.
	Initialize(ctx context.Context) error
	Add(ctx context.Context, book catalog.Book) error
	Remove(ctx context.Context, id string) error
	// Clear empties the cart and deletes its storage key.
	Clear(ctx context.Context) error
	IsInCart(id string) bool
	Items() []Entry
	Len() int
	// Submit sends the cart as one borrow request and clears it on success.
	Submit(ctx context.Context, c Checkout) (*circulation.CreateResponse, error)
}

// Submitter creates borrow transactions.
type Submitter interface {
	Create(ctx context.Context, req circulation.CreateRequest) (*circulation.CreateResponse, error)
}
