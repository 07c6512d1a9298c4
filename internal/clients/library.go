package clients

// Library bundles every resource client over one Transport.
type Library struct {
	Auth          *AuthClient
	Books         *BooksClient
	Reviews       *ReviewsClient
	Notifications *NotificationsClient
	Transactions  *TransactionsClient
	Users         *UsersClient
	Statistics    *StatisticsClient
}

func NewLibrary(t *Transport) *Library {
	return &Library{
		Auth:          NewAuthClient(t),
		Books:         NewBooksClient(t),
		Reviews:       NewReviewsClient(t),
		Notifications: NewNotificationsClient(t),
		Transactions:  NewTransactionsClient(t),
		Users:         NewUsersClient(t),
		Statistics:    NewStatisticsClient(t),
	}
}
