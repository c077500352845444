package models

import (
	"fmt"
	"time"
)

// User roles
const (
	RoleBuyer  = "buyer"
	RoleFarmer = "farmer"
	RoleAdmin  = "admin"
)

// User represents an account (buyer, farmer, or admin)
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Product represents a catalog item owned by a farmer.
// Price is in cents; Quantity is the units currently available.
type Product struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Price     int64     `db:"price" json:"price"`
	Quantity  int       `db:"quantity" json:"quantity"`
	FarmerID  int64     `db:"farmer_id" json:"farmer_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewProduct validates catalog invariants before a product is created.
func NewProduct(name string, price int64, quantity int, farmerID int64) (*Product, error) {
	if name == "" {
		return nil, fmt.Errorf("product name is required")
	}
	if price < 0 {
		return nil, fmt.Errorf("product price must be >= 0, got %d", price)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("product quantity must be >= 0, got %d", quantity)
	}
	if farmerID <= 0 {
		return nil, fmt.Errorf("product requires an owning farmer")
	}
	return &Product{Name: name, Price: price, Quantity: quantity, FarmerID: farmerID}, nil
}

// CartLine maps a user to a requested product quantity.
// Unique per (user, product); quantity is always >= 1.
type CartLine struct {
	ID        int64 `db:"id" json:"id"`
	UserID    int64 `db:"user_id" json:"user_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
}

// CheckoutLine is a cart line joined with the owning product's price and
// availability as read at the start of the commit. UnitPrice is the snapshot
// that ends up on the order line.
type CheckoutLine struct {
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	Quantity  int    `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"price" json:"unit_price"`
	Available int    `db:"available" json:"available"`
}

// CartView is a cart line joined with product name and price for display.
type CartView struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Name      string `db:"name" json:"name"`
	UnitPrice int64  `db:"price" json:"unit_price"`
	Quantity  int    `db:"quantity" json:"quantity"`
}

// Order is an order header. Total is the sum of line price snapshots times
// quantities at commit time; everything except Status is immutable once written.
type Order struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	Total     int64     `db:"total_price" json:"total_price"`
	Status    Status    `db:"status" json:"status"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// OrderLine records one product within an order. UnitPrice is the price
// captured at commit time, not a live reference to the product.
type OrderLine struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	UnitPrice int64 `db:"price" json:"unit_price"`
}

// BuyerOrderRow is one line of a buyer's order history.
type BuyerOrderRow struct {
	OrderID     int64     `db:"order_id" json:"order_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Status      Status    `db:"status" json:"status"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   int64     `db:"price" json:"unit_price"`
}

// FarmerOrderRow is one sold line for a farmer's products, with the buyer named.
type FarmerOrderRow struct {
	OrderID     int64     `db:"order_id" json:"order_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	Status      Status    `db:"status" json:"status"`
	ProductName string    `db:"product_name" json:"product_name"`
	Quantity    int       `db:"quantity" json:"quantity"`
	UnitPrice   int64     `db:"price" json:"unit_price"`
	BuyerName   string    `db:"buyer_name" json:"buyer_name"`
}

// AdminOrderRow is one order header with the buyer named, for the admin list.
type AdminOrderRow struct {
	OrderID   int64     `db:"order_id" json:"order_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Status    Status    `db:"status" json:"status"`
	Total     int64     `db:"total_price" json:"total_price"`
	BuyerName string    `db:"buyer_name" json:"buyer_name"`
}
