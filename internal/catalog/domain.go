package catalog

// Book is a catalog entry as the backend returns it.
type Book struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Category        string   `json:"category"`
	Year            int      `json:"year"`
	Description     string   `json:"description,omitempty"`
	Image           string   `json:"image,omitempty"`
	Quota           int      `json:"quota"`
	RackNumber      string   `json:"rackNumber,omitempty"`
	ISBN            string   `json:"isbn"`
	Language        string   `json:"language,omitempty"`
	AvailableCopies int      `json:"availableCopies"`
	LateFee         float64  `json:"lateFee,omitempty"`
	CanBorrow       bool     `json:"canBorrow"`
	Rating          float64  `json:"rating,omitempty"`
	Reviews         []Review `json:"reviews,omitempty"`
}

// Available reports whether at least one copy can be borrowed right now.
func (b Book) Available() bool {
	return b.CanBorrow && b.AvailableCopies > 0
}

// Review is a reader's rating of a book.
type Review struct {
	ID         string `json:"id"`
	BookTitle  string `json:"bookTitle"`
	AuthorName string `json:"authorName"`
	Date       string `json:"date"`
	Rating     int    `json:"rating"`
	Content    string `json:"content"`
}

// Filter narrows a catalog listing. Zero values are omitted from the query.
type Filter struct {
	Search   string
	Category string
	Years    int
}

// BookInput is the payload for creating or updating a book.
type BookInput struct {
	Title           string  `json:"title"`
	Author          string  `json:"author"`
	Category        string  `json:"category"`
	Year            int     `json:"year"`
	Description     string  `json:"description,omitempty"`
	Image           string  `json:"image,omitempty"`
	Quota           int     `json:"quota"`
	RackNumber      string  `json:"rackNumber,omitempty"`
	ISBN            string  `json:"isbn"`
	Language        string  `json:"language,omitempty"`
	AvailableCopies int     `json:"availableCopies"`
	LateFee         float64 `json:"lateFee,omitempty"`
	CanBorrow       bool    `json:"canBorrow"`
	Rating          float64 `json:"rating,omitempty"`
}

// ReviewInput is the body of POST /reviews.
type ReviewInput struct {
	BookID string     `json:"bookId"`
	Review ReviewBody `json:"review"`
}

type ReviewBody struct {
	AuthorID string `json:"authorId"`
	Rating   int    `json:"rating"`
	Content  string `json:"content"`
}

// Statistics is the dashboard summary served by GET /statistic.
type Statistics struct {
	TotalBook          int      `json:"totalBook"`
	TotalUser          int      `json:"totalUser"`
	TotalTransaction   int      `json:"totalTransaction"`
	TotalNotifications int      `json:"totalNotifications"`
	AverageReview      float64  `json:"averageReview"`
	TotalReview        int      `json:"totalReview"`
	RecentReviews      []Review `json:"recentReviews"`
}
