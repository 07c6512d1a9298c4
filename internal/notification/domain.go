package notification

// Kind classifies a notification for display.
type Kind string

const (
	KindInfo     Kind = "INFO"
	KindReminder Kind = "REMINDER"
	KindAlert    Kind = "ALERT"
)

// Notification is a message addressed to one user.
type Notification struct {
	ID      string    `json:"id"`
	User    Recipient `json:"user"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    Kind      `json:"type"`
	Date    string    `json:"date"`
	Read    bool      `json:"read"`
}

type Recipient struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// CreateRequest is sent as query parameters on POST /notifications.
type CreateRequest struct {
	UserID  string `json:"userId"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    Kind   `json:"type"`
}
