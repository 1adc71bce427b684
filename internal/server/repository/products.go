package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurant-sync/internal/common/db"
	"restaurant-sync/internal/domain"
)

type ProductRepositoryInterface interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	SetAvailability(ctx context.Context, id string, available bool) (domain.Product, error)
}

type ProductRepository struct {
	db *db.Conn
}

func NewProductRepository(conn *db.Conn) *ProductRepository {
	return &ProductRepository{db: conn}
}

func (r *ProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, name, price, available FROM products ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Available); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *ProductRepository) Get(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRow(ctx, `SELECT id, name, price, available FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

func (r *ProductRepository) SetAvailability(ctx context.Context, id string, available bool) (domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRow(ctx, `
		UPDATE products SET available = $2 WHERE id = $1
		RETURNING id, name, price, available
	`, id, available).Scan(&p.ID, &p.Name, &p.Price, &p.Available)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update availability: %w", err)
	}
	return p, nil
}
