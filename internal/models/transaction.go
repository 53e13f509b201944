package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Tier string

const (
	TierBasic   Tier = "Basic"
	TierPremium Tier = "Premium"
)

type Transaction struct {
	ProductID string    `json:"product_id" validate:"required"`
	UserID    string    `json:"user_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"min=0"`
	Date      time.Time `json:"date" validate:"required"`
}

type User struct {
	UserID string `json:"user_id" validate:"required"`
	Age    int    `json:"age" validate:"min=0,max=150"`
	Status Tier   `json:"status" validate:"oneof=Basic Premium"`
}

type Product struct {
	ProductID        string          `json:"product_id" validate:"required"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	WarehouseQty     int             `json:"warehouse_qty" validate:"min=0"`
	RestockThreshold int             `json:"restock_threshold" validate:"min=0"`
}

// TransactionWithUser is a transaction row left-joined with its user. Status is
// empty when the user is not in the user table.
type TransactionWithUser struct {
	Transaction
	Age    int  `json:"age"`
	Status Tier `json:"status"`
}
