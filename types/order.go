package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID        string
	Symbol    string
	Side      Side
	OrderType OrderType
	Quantity  int64
	// Price is the reference price the decision was sized at.
	Price     decimal.Decimal
	Reason    string
	CreatedAt time.Time
}

func NewOrder(
	symbol string,
	side Side,
	quantity int64,
	price decimal.Decimal,
	reason string,
	createdAt time.Time,
) Order {
	return Order{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Side:      side,
		OrderType: TypeMarket,
		Quantity:  quantity,
		Price:     price,
		Reason:    reason,
		CreatedAt: createdAt,
	}
}
