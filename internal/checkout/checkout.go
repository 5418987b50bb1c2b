// Package checkout converts the current cart contents into a persisted
// order, enforcing stock availability along the way.
//
// The orchestrator runs two passes over the cart: a validation pass that
// reads every book record before any stock is touched, then a commit pass
// that re-reads each record and writes the decremented stock. The two
// passes are independent round trips with no lock against other sessions,
// so two concurrent checkouts can both validate against the same stale
// stock count and over-sell inventory.
package checkout

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/cart"
	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/gateway"
	"github.com/Therealpare/Bookstore/internal/order"
)

// EventPublisher announces placed orders to interested consumers. Publish
// failures never fail the checkout.
type EventPublisher interface {
	PublishOrderCreated(ctx context.Context, userID string, o order.Order) error
}

// Orchestrator performs the cart-to-order checkout flow.
type Orchestrator struct {
	gw        gateway.Gateway
	publisher EventPublisher
	metrics   *Metrics
	log       *zap.Logger
}

// NewOrchestrator creates a checkout orchestrator. publisher and metrics
// may be nil.
func NewOrchestrator(gw gateway.Gateway, publisher EventPublisher, metrics *Metrics, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		gw:        gw,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
	}
}

// Checkout validates and commits the cart for userID, writes the order
// record and clears the cart on success. The returned order carries the
// generated id.
//
// Error contract: ErrNotAuthenticated, ErrEmptyCart, *BookNotFoundError and
// *InsufficientStockError are all returned before any write happens. A
// *FailedError from the commit or record stage may leave some stock
// decrements applied; they are not rolled back.
func (o *Orchestrator) Checkout(ctx context.Context, userID string, cartStore *cart.Store) (*order.Order, error) {
	o.countAttempt()

	if userID == "" {
		return nil, o.fail(ErrNotAuthenticated, "not_authenticated")
	}

	lines := cartStore.Lines()
	if len(lines) == 0 {
		return nil, o.fail(ErrEmptyCart, "empty_cart")
	}

	// Validation pass: every line must be satisfiable before any stock
	// is touched.
	for _, line := range lines {
		var book catalog.Book
		found, err := o.gw.Read(ctx, line.Book.Path(), &book)
		if err != nil {
			return nil, o.fail(&FailedError{Stage: "validate", Err: err}, "remote_error")
		}
		if !found {
			return nil, o.fail(&BookNotFoundError{BookID: line.Book.ID, Title: line.Book.Title}, "book_not_found")
		}
		if book.Stock < line.Quantity {
			return nil, o.fail(&InsufficientStockError{
				BookID:    line.Book.ID,
				Title:     line.Book.Title,
				Available: book.Stock,
				Requested: line.Quantity,
			}, "insufficient_stock")
		}
	}

	// Commit pass: re-read and decrement, line by line.
	for _, line := range lines {
		var book catalog.Book
		found, err := o.gw.Read(ctx, line.Book.Path(), &book)
		if err != nil || !found {
			if err == nil {
				err = &BookNotFoundError{BookID: line.Book.ID, Title: line.Book.Title}
			}
			return nil, o.fail(&FailedError{Stage: "commit", Err: err}, "remote_error")
		}
		err = o.gw.Update(ctx, line.Book.Path(), map[string]interface{}{
			"stock": book.Stock - line.Quantity,
		})
		if err != nil {
			return nil, o.fail(&FailedError{Stage: "commit", Err: err}, "remote_error")
		}
	}

	// Record: one order with line snapshots captured from the cart, not
	// re-read from the catalog.
	orderID, err := o.gw.Push(ctx, order.UserPath(userID))
	if err != nil {
		return nil, o.fail(&FailedError{Stage: "record", Err: err}, "remote_error")
	}

	items := make([]order.LineSnapshot, len(lines))
	var total catalog.Price
	for i, line := range lines {
		items[i] = order.LineSnapshot{
			BookID:   line.Book.ID,
			Title:    line.Book.Title,
			Price:    line.Book.Price,
			Quantity: line.Quantity,
			Picture:  line.Book.Picture,
		}
		total += line.Book.Price.Mul(line.Quantity)
	}

	placed := order.Order{
		ID:         orderID,
		CreatedAt:  time.Now().UnixMilli(),
		Status:     order.StatusPending,
		TotalPrice: total,
		Items:      items,
	}
	if err := o.gw.Write(ctx, order.Path(userID, orderID), placed); err != nil {
		return nil, o.fail(&FailedError{Stage: "record", Err: err}, "remote_error")
	}

	cartStore.Clear()

	o.log.Info("Order placed",
		zap.String("user_id", userID),
		zap.String("order_id", orderID),
		zap.Int("lines", len(items)),
		zap.String("total_price", total.String()),
	)
	if o.metrics != nil {
		o.metrics.Orders.Inc()
	}

	if o.publisher != nil {
		if err := o.publisher.PublishOrderCreated(ctx, userID, placed); err != nil {
			o.log.Warn("Failed to publish order event",
				zap.String("order_id", orderID),
				zap.Error(err),
			)
		}
	}

	return &placed, nil
}

func (o *Orchestrator) countAttempt() {
	if o.metrics != nil {
		o.metrics.Attempts.Inc()
	}
}

func (o *Orchestrator) fail(err error, reason string) error {
	if o.metrics != nil {
		o.metrics.Failures.WithLabelValues(reason).Inc()
	}
	o.log.Warn("Checkout failed", zap.String("reason", reason), zap.Error(err))
	return err
}
