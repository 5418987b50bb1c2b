package catalog

// BooksPath is the gateway collection holding the book records.
const BooksPath = "books"

// Book is one catalog record. The record key is carried in ID; the stored
// value holds the remaining fields. Books are never deleted by this client,
// and only checkout mutates them (stock decrement).
type Book struct {
	ID          string `json:"-"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Publisher   string `json:"publisher"`
	ISBN        string `json:"ISBN"`
	Price       Price  `json:"price"`
	Stock       int    `json:"stock"`
	Description string `json:"description,omitempty"`
	Picture     string `json:"picture,omitempty"`
}

// Path returns the gateway path of the book's record.
func (b Book) Path() string {
	return BooksPath + "/" + b.ID
}

// Categories is the fixed storefront category list.
var Categories = []string{
	"Non-Fiction",
	"Classic",
	"Romance",
	"Adventure",
	"Philosophical",
	"Historical",
	"Sci-Fi",
	"Drama",
	"Horror",
	"Others",
}
