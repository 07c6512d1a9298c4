package circulation

// Status is the approval state of a transaction.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusDeclined Status = "DECLINED"
	StatusOverdue  Status = "OVERDUE"
)

// Type tells a borrow request from a return.
type Type string

const (
	TypeBorrow Type = "BORROW"
	TypeReturn Type = "RETURN"
)

// Transaction is a borrow or return request identified by its invoice code.
type Transaction struct {
	ID              string    `json:"id"`
	InvoiceCode     string    `json:"invoiceCode"`
	DateRange       DateRange `json:"dateRange"`
	Status          Status    `json:"status"`
	Type            Type      `json:"type"`
	User            Borrower  `json:"user"`
	TotalFee        float64   `json:"totalFee"`
	PaymentMethod   string    `json:"paymentMethod,omitempty"`
	PaymentEvidence string    `json:"paymentEvidence,omitempty"`
	Items           []Item    `json:"items"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Borrower struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

// Item is one book inside a transaction.
type Item struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Author  string  `json:"author"`
	Image   string  `json:"image,omitempty"`
	LateFee float64 `json:"lateFee,omitempty"`
}

// CreateRequest is the body of POST /transactions.
type CreateRequest struct {
	UserID          string  `json:"userId"`
	Items           []Item  `json:"items"`
	TotalFee        float64 `json:"totalFee"`
	PaymentMethod   string  `json:"paymentMethod"`
	PaymentEvidence string  `json:"paymentEvidence,omitempty"`
	DateFrom        string  `json:"dateFrom"`
	DateTo          string  `json:"dateTo"`
}

// CreateResponse carries the invoice code of the new transaction in Data.
type CreateResponse struct {
	Message string `json:"message"`
	Data    string `json:"data"`
}

// Filter narrows a transaction listing. Zero values are omitted.
type Filter struct {
	UserID string
	Search string
	Status Status
	Type   Type
}
