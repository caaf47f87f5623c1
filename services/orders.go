package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Munirmohammed/Ecommerce/apperr"
	"github.com/Munirmohammed/Ecommerce/models"
)

// OrderService runs the order placement workflow. All stock
// consistency is delegated to the database transaction plus the
// conditional per-row decrement; the service holds no state of its own.
type OrderService struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewOrderService(db *sql.DB, logger *zap.Logger) *OrderService {
	return &OrderService{db: db, logger: logger}
}

// PlaceOrder validates the requested lines, reserves stock and persists
// the order aggregate in a single transaction. Either every decrement
// and the order insert commit together, or none do.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, lines []models.OrderLineRequest) (*models.Order, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "PlaceOrder")
	defer span.End()

	if len(lines) == 0 {
		return nil, apperr.New(apperr.KindInvalidRequest, "Order must contain at least one product")
	}
	for _, line := range lines {
		if line.Quantity < 1 {
			return nil, apperr.Newf(apperr.KindInvalidRequest, "Quantity must be at least 1 for product %s", line.ProductID)
		}
	}

	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.Int("order.lines", len(lines)),
	)

	var order *models.Order
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		products, err := fetchProducts(ctx, tx, lines)
		if err != nil {
			return err
		}

		// Stock pre-check against the snapshot, in caller order, so the
		// first offending line is the one reported.
		var total float64
		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			p := products[line.ProductID]
			if p.Stock < line.Quantity {
				return apperr.Newf(apperr.KindInsufficientStock, "Insufficient stock for product: %s", p.Name)
			}
			total += p.Price * float64(line.Quantity)
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Price:     p.Price,
				Product:   &models.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price},
			})
		}

		// The decrement is conditional so correctness does not depend on
		// the isolation level: a concurrent reservation that consumed the
		// stock first makes this update match zero rows.
		for _, line := range lines {
			res, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1`,
				line.Quantity, line.ProductID,
			)
			if err != nil {
				return fmt.Errorf("failed to decrement stock for %s: %w", line.ProductID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read decrement result: %w", err)
			}
			if affected == 0 {
				return apperr.Newf(apperr.KindInsufficientStock, "Insufficient stock for product: %s", products[line.ProductID].Name)
			}
		}

		o := models.Order{
			ID:         uuid.NewString(),
			UserID:     userID,
			TotalPrice: total,
			Status:     models.OrderStatusPending,
			Items:      items,
		}
		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (id, user_id, total_price, status) VALUES ($1, $2, $3, $4) RETURNING created_at`,
			o.ID, o.UserID, o.TotalPrice, o.Status,
		).Scan(&o.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		for _, item := range o.Items {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, price) VALUES ($1, $2, $3, $4)`,
				o.ID, item.ProductID, item.Quantity, item.Price,
			)
			if err != nil {
				return fmt.Errorf("failed to insert order item: %w", err)
			}
		}

		order = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Float64("total_price", order.TotalPrice),
	)
	return order, nil
}

type fetchedProduct struct {
	ID    string
	Name  string
	Price float64
	Stock int
}

// fetchProducts batch-reads every requested product and fails with
// NotFound naming all missing ids at once.
func fetchProducts(ctx context.Context, tx *sql.Tx, lines []models.OrderLineRequest) (map[string]fetchedProduct, error) {
	ids := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, line := range lines {
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, price, stock FROM products WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer rows.Close()

	products := make(map[string]fetchedProduct, len(ids))
	for rows.Next() {
		var p fetchedProduct
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}

	if len(products) < len(ids) {
		var missing []string
		for _, id := range ids {
			if _, ok := products[id]; !ok {
				missing = append(missing, id)
			}
		}
		return nil, apperr.Newf(apperr.KindNotFound, "Products not found: %s", strings.Join(missing, ", "))
	}
	return products, nil
}

// ListOrders returns every order owned by userID, newest first, with
// line items and a slim product view.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	ctx, span := otel.Tracer("orders").Start(ctx, "ListOrders")
	defer span.End()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, total_price, status, created_at FROM orders WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, classify(err, "failed to list orders")
	}
	defer rows.Close()

	var orders []models.Order
	index := make(map[string]int)
	var orderIDs []string
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.TotalPrice, &o.Status, &o.CreatedAt); err != nil {
			return nil, classify(err, "failed to scan order")
		}
		index[o.ID] = len(orders)
		orderIDs = append(orderIDs, o.ID)
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate orders")
	}
	if len(orders) == 0 {
		return []models.Order{}, nil
	}

	itemRows, err := s.db.QueryContext(ctx,
		`SELECT oi.order_id, oi.product_id, oi.quantity, oi.price, p.name, p.price
		 FROM order_items oi
		 JOIN products p ON p.id = oi.product_id
		 WHERE oi.order_id = ANY($1)
		 ORDER BY oi.id`,
		pq.Array(orderIDs),
	)
	if err != nil {
		return nil, classify(err, "failed to list order items")
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var orderID string
		var item models.OrderItem
		var productName string
		var currentPrice float64
		if err := itemRows.Scan(&orderID, &item.ProductID, &item.Quantity, &item.Price, &productName, &currentPrice); err != nil {
			return nil, classify(err, "failed to scan order item")
		}
		item.Product = &models.ProductSummary{ID: item.ProductID, Name: productName, Price: currentPrice}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, classify(err, "failed to iterate order items")
	}

	return orders, nil
}

// withTx runs fn inside a transaction, rolling back on any error.
// Errors that already carry a business kind pass through unchanged;
// everything else surfaces as a store failure.
func withTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "failed to begin transaction", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return classify(fmt.Errorf("%w (rollback failed: %v)", err, rbErr), "transaction failed")
		}
		return classify(err, "transaction failed")
	}

	if err := tx.Commit(); err != nil {
		return apperr.Wrap(apperr.KindStoreUnavailable, "failed to commit transaction", err)
	}
	return nil
}

// classify maps an arbitrary error into the taxonomy, preserving
// already-tagged business errors.
func classify(err error, message string) error {
	if _, ok := apperr.KindOf(err); ok {
		return err
	}
	return apperr.Wrap(apperr.KindStoreUnavailable, message, err)
}
