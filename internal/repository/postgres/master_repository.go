// internal/repository/postgres/master_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/koyomart/autoorder-go/internal/domain"
)

type storeRepository struct {
	db *DB
}

func NewStoreRepository(db *DB) *storeRepository {
	return &storeRepository{db: db}
}

func (r *storeRepository) List(ctx context.Context) ([]*domain.Store, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM stores
		ORDER BY name
	`

	var stores []*domain.Store
	if err := sqlx.SelectContext(ctx, r.db, &stores, query); err != nil {
		return nil, fmt.Errorf("failed to list stores: %w", err)
	}

	return stores, nil
}

func (r *storeRepository) Get(ctx context.Context, id int64) (*domain.Store, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM stores
		WHERE id = $1
	`

	var store domain.Store
	if err := r.db.GetContext(ctx, &store, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("store %d not found", id)
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &store, nil
}

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT item_code, category_code, name, order_unit, available, discontinued, updated_at
		FROM products
		ORDER BY item_code
	`

	var products []*domain.Product
	if err := sqlx.SelectContext(ctx, r.db, &products, query); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return products, nil
}
