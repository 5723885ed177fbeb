package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"stock-alert-service/internal/models"

	"go.opentelemetry.io/otel/attribute"
)

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id string) (_ *models.Product, err error) {
	ctx, span := startSpan(ctx, "store.GetProductByID", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	var product models.Product
	err = s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, classify(err)
	}
	return &product, nil
}

// GetProducts retrieves all products, newest first
func (s *Store) GetProducts(ctx context.Context) (_ []models.Product, err error) {
	ctx, span := startSpan(ctx, "store.GetProducts")
	defer func() { endSpan(span, err) }()

	products := []models.Product{}
	err = s.db.SelectContext(ctx, &products,
		"SELECT * FROM products ORDER BY created_at DESC, id DESC")
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, err
}

// GetLowStockProducts retrieves products at or below their threshold, lowest quantity first
func (s *Store) GetLowStockProducts(ctx context.Context) (_ []models.Product, err error) {
	ctx, span := startSpan(ctx, "store.GetLowStockProducts")
	defer func() { endSpan(span, err) }()

	products := []models.Product{}
	err = s.db.SelectContext(ctx, &products,
		"SELECT * FROM products WHERE quantity <= min_stock_level ORDER BY quantity ASC, created_at DESC, id DESC")
	span.SetAttributes(attribute.Int("result.count", len(products)))
	return products, err
}

// CreateProduct inserts a new product row
func (t *pgTx) CreateProduct(ctx context.Context, p *models.Product) (err error) {
	ctx, span := startSpan(ctx, "store.CreateProduct",
		attribute.String("product.id", p.ID),
		attribute.String("product.sku", p.SKU))
	defer func() { endSpan(span, err) }()

	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO products (id, sku, name, description, category, price, quantity, min_stock_level, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.SKU, p.Name, p.Description, p.Category, p.Price,
		p.Quantity, p.MinStockLevel, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", classify(err))
	}
	return nil
}

// LockProduct reads a product and holds its row lock (FOR UPDATE) until the transaction ends
func (t *pgTx) LockProduct(ctx context.Context, id string) (_ *models.Product, err error) {
	ctx, span := startSpan(ctx, "store.LockProduct", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	var product models.Product
	err = t.tx.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1 FOR UPDATE", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", classify(err))
	}
	return &product, nil
}

// UpdateProduct writes every mutable column of p
func (t *pgTx) UpdateProduct(ctx context.Context, p *models.Product) (err error) {
	ctx, span := startSpan(ctx, "store.UpdateProduct",
		attribute.String("product.id", p.ID),
		attribute.Int("product.quantity", p.Quantity),
		attribute.Int("product.min_stock_level", p.MinStockLevel))
	defer func() { endSpan(span, err) }()

	res, err := t.tx.ExecContext(ctx, `
		UPDATE products
		SET sku = $1, name = $2, description = $3, category = $4, price = $5,
			quantity = $6, min_stock_level = $7, updated_at = $8
		WHERE id = $9`,
		p.SKU, p.Name, p.Description, p.Category, p.Price,
		p.Quantity, p.MinStockLevel, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", classify(err))
	}
	return expectOneRow(res, "product", p.ID)
}

// DeleteProduct removes a product row
func (t *pgTx) DeleteProduct(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "store.DeleteProduct", attribute.String("product.id", id))
	defer func() { endSpan(span, err) }()

	res, err := t.tx.ExecContext(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", classify(err))
	}
	return expectOneRow(res, "product", id)
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
