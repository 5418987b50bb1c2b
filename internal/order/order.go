package order

import (
	"github.com/Therealpare/Bookstore/internal/catalog"
)

// StatusPending is the status every order is created with. This client
// never mutates an order after creation.
const StatusPending = "pending"

const ordersPath = "orders"

// UserPath is the gateway path of one user's order collection.
func UserPath(userID string) string {
	return ordersPath + "/" + userID
}

// Path is the gateway path of a single order record.
func Path(userID, orderID string) string {
	return UserPath(userID) + "/" + orderID
}

// LineSnapshot captures one purchased line as it was at checkout time. It
// is deliberately not a reference to the Book record: later catalog price
// or stock changes must not alter historical orders.
type LineSnapshot struct {
	BookID   string        `json:"bookId"`
	Title    string        `json:"title"`
	Price    catalog.Price `json:"price"`
	Quantity int           `json:"quantity"`
	Picture  string        `json:"picture,omitempty"`
}

// Order is an immutable record of one successful checkout.
type Order struct {
	ID         string         `json:"-"`
	CreatedAt  int64          `json:"createdAt"`
	Status     string         `json:"status"`
	TotalPrice catalog.Price  `json:"totalPrice"`
	Items      []LineSnapshot `json:"items"`
}
