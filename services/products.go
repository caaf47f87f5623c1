package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Munirmohammed/Ecommerce/apperr"
	"github.com/Munirmohammed/Ecommerce/cache"
	"github.com/Munirmohammed/Ecommerce/models"
)

const cacheKeyPrefix = "products:"

// ProductService is catalog CRUD with cache-aside listings. Cache
// failures never fail the request path; they are logged and treated as
// misses.
type ProductService struct {
	db       *sql.DB
	cache    cache.Store
	cacheTTL time.Duration
	logger   *zap.Logger
	group    singleflight.Group
}

func NewProductService(db *sql.DB, c cache.Store, ttl time.Duration, logger *zap.Logger) *ProductService {
	return &ProductService{db: db, cache: c, cacheTTL: ttl, logger: logger}
}

func (s *ProductService) Create(ctx context.Context, req models.CreateProductRequest) (*models.Product, error) {
	ctx, span := otel.Tracer("products").Start(ctx, "CreateProduct")
	defer span.End()

	p := models.Product{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
	}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO products (id, name, description, price, stock, category, image_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, p.Category, p.ImageURL,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, classify(err, "failed to create product")
	}

	s.invalidateListings(ctx)
	s.logger.Info("Product created", zap.String("product_id", p.ID))
	return &p, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := otel.Tracer("products").Start(ctx, "GetProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var p models.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, price, stock, category, image_url, created_at
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "Product not found")
	}
	if err != nil {
		return nil, classify(err, "failed to fetch product")
	}
	return &p, nil
}

// Update applies merge-patch semantics: only fields present in req
// change.
func (s *ProductService) Update(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	ctx, span := otel.Tracer("products").Start(ctx, "UpdateProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var sets []string
	var args []any
	appendField := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if req.Name != nil {
		appendField("name", *req.Name)
	}
	if req.Description != nil {
		appendField("description", *req.Description)
	}
	if req.Price != nil {
		appendField("price", *req.Price)
	}
	if req.Stock != nil {
		appendField("stock", *req.Stock)
	}
	if req.Category != nil {
		appendField("category", *req.Category)
	}
	if req.ImageURL != nil {
		appendField("image_url", *req.ImageURL)
	}
	if len(sets) == 0 {
		// Nothing to change; existence still matters.
		return s.GetByID(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE products SET " + strings.Join(sets, ", ") +
		" WHERE id = $" + strconv.Itoa(len(args)) +
		" RETURNING id, name, description, price, stock, category, image_url, created_at"

	var p models.Product
	err := s.db.QueryRowContext(ctx, query, args...).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.KindNotFound, "Product not found")
	}
	if err != nil {
		return nil, classify(err, "failed to update product")
	}

	s.invalidateListings(ctx)
	s.logger.Info("Product updated", zap.String("product_id", id))
	return &p, nil
}

// Delete refuses to remove a product referenced by existing order
// lines, keeping historical orders intact.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	ctx, span := otel.Tracer("products").Start(ctx, "DeleteProduct")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", id))

	var referenced bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM order_items WHERE product_id = $1)`,
		id,
	).Scan(&referenced)
	if err != nil {
		return classify(err, "failed to check product references")
	}
	if referenced {
		return apperr.New(apperr.KindConflict, "Product has existing orders and cannot be deleted")
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return classify(err, "failed to delete product")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classify(err, "failed to read delete result")
	}
	if affected == 0 {
		return apperr.New(apperr.KindNotFound, "Product not found")
	}

	s.invalidateListings(ctx)
	s.logger.Info("Product deleted", zap.String("product_id", id))
	return nil
}

// List serves the catalog page cache-aside. Concurrent misses for the
// same key are collapsed so the store sees one query.
func (s *ProductService) List(ctx context.Context, page, limit int, search string) (*models.ProductPage, error) {
	ctx, span := otel.Tracer("products").Start(ctx, "ListProducts")
	defer span.End()

	key := listCacheKey(page, limit, search)
	if data, err := s.cache.Get(ctx, key); err == nil {
		var result models.ProductPage
		if err := json.Unmarshal(data, &result); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &result, nil
		}
	} else if !errors.Is(err, cache.ErrMiss) {
		s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := s.group.Do(key, func() (any, error) {
		result, err := s.listFromDB(ctx, page, limit, search)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(result); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return result, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProductPage), nil
}

func (s *ProductService) listFromDB(ctx context.Context, page, limit int, search string) (*models.ProductPage, error) {
	offset := (page - 1) * limit

	where := ""
	args := []any{}
	if search != "" {
		where = ` WHERE name ILIKE '%' || $1 || '%'`
		args = append(args, search)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, classify(err, "failed to count products")
	}

	limitPos := len(args) + 1
	query := `SELECT id, name, description, price, stock, category, image_url, created_at FROM products` +
		where +
		` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(limitPos) + ` OFFSET $` + strconv.Itoa(limitPos+1)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err, "failed to list products")
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.Category, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, classify(err, "failed to scan product")
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, "failed to iterate products")
	}

	return &models.ProductPage{Products: products, Total: total, Page: page, Limit: limit}, nil
}

// invalidateListings drops every cached listing key. Search-key
// combinations are unbounded, so invalidation is by prefix rather than
// per key.
func (s *ProductService) invalidateListings(ctx context.Context) {
	if err := s.cache.DeletePrefix(ctx, cacheKeyPrefix); err != nil {
		s.logger.Warn("Cache invalidation failed", zap.Error(err))
	}
}

func listCacheKey(page, limit int, search string) string {
	if search == "" {
		search = "all"
	}
	return fmt.Sprintf("%slist:%d:%d:%s", cacheKeyPrefix, page, limit, search)
}
