package catalog

import (
	"context"
	"errors"
	"math"
)

var (
	ErrMissingFields = errors.New("descricao and preco are required")
	ErrInvalidPrice  = errors.New("preco must be a non-negative number")
)

type Product struct {
	ID          int64   `json:"id"`
	Description string  `json:"descricao"`
	Price       float64 `json:"preco"`
}

// ProductInput is the client-supplied part of a Product. Price is nil when
// the client did not send it.
type ProductInput struct {
	Description string
	Price       *float64
}

func (in ProductInput) Validate() error {
	if in.Description == "" || in.Price == nil {
		return ErrMissingFields
	}
	p := *in.Price
	if p < 0 || math.IsNaN(p) || math.IsInf(p, 0) {
		return ErrInvalidPrice
	}
	return nil
}

type Store interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, bool, error)
	Create(ctx context.Context, in ProductInput) (Product, error)
	Update(ctx context.Context, id int64, in ProductInput) (Product, bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Count(ctx context.Context) (int, error)
}

func Fixtures() []Product {
	return []Product{
		{ID: 1, Description: "Teclado Mecânico", Price: 199.9},
		{ID: 2, Description: "Mouse", Price: 59.9},
	}
}
