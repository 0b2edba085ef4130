package models

import (
	"time"
)

// User - The person interacting with the system
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"`    // Never return this in JSON
	Role         string    `json:"role"` // 'admin', 'staff'
	CreatedAt    time.Time `json:"created_at"`
}

// Project - The tenant boundary. Every business record hangs off a project.
type Project struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:120" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership roles within a project
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// ProjectMember links a user to a project with a role ('admin' or 'member')
type ProjectMember struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"index:idx_member_project_user,unique" json:"project_id"`
	UserID    uint   `gorm:"index:idx_member_project_user,unique" json:"user_id"`
	Role      string `gorm:"size:20" json:"role"`
}

// Customer - Who orders are placed for
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index" json:"project_id"`
	Name      string    `gorm:"size:120" json:"name"`
	Email     string    `gorm:"size:120" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Service - A billable service that can appear on an order
type Service struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	ProjectID uint    `gorm:"index" json:"project_id"`
	Name      string  `gorm:"size:120" json:"name"`
	Price     float64 `json:"price"`
	Active    bool    `gorm:"default:true" json:"active"`
}

// Category for grouping products
type Category struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"index" json:"project_id"`
	Name      string `gorm:"size:120" json:"name"`
}

// Warehouse - A physical stock location
type Warehouse struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	ProjectID uint   `gorm:"index" json:"project_id"`
	Name      string `gorm:"size:120" json:"name"`
}

// Product - The catalog entry. Stock is never a single global number:
// it lives per warehouse in WarehouseStock rows.
type Product struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	ProjectID   uint             `gorm:"index" json:"project_id"`
	Name        string           `gorm:"size:160" json:"name"`
	Description string           `json:"description"`
	Price       float64          `json:"price"`
	Active      bool             `gorm:"default:true" json:"active"`
	Categories  []Category       `gorm:"many2many:product_categories" json:"categories"`
	Stocks      []WarehouseStock `gorm:"foreignKey:ProductID" json:"stocks"`
	Files       []MediaFile      `gorm:"foreignKey:ProductID" json:"files"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// WarehouseStock - Current quantity of one product in one warehouse.
// The single mutable source of truth for availability.
type WarehouseStock struct {
	ProductID   uint      `gorm:"primaryKey" json:"product_id"`
	WarehouseID uint      `gorm:"primaryKey" json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	Warehouse   Warehouse `json:"warehouse"`
}

// Movement types for the stock ledger
const (
	MovementProductCreate  = "PRODUCT_CREATE"
	MovementProductUpdate  = "PRODUCT_UPDATE"
	MovementOrderCreate    = "ORDER_CREATE"
	MovementOrderCancelled = "ORDER_CANCELLED"
	MovementOrderDelete    = "ORDER_DELETE"
)

// StockMovement - Append-only ledger entry. One row per stock change.
// Invariant: NewStock = PreviousStock + Quantity. Never updated; only
// deleted as a cascade when the owning product is deleted.
type StockMovement struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	MovementID    string    `gorm:"size:12;index:idx_movement_product" json:"movement_id"` // "m001", scoped per product
	ProductID     uint      `gorm:"index:idx_movement_product" json:"product_id"`
	WarehouseID   uint      `json:"warehouse_id"`
	MovementType  string    `gorm:"size:20" json:"movement_type"`
	Quantity      int       `json:"quantity"` // signed delta
	PreviousStock int       `json:"previous_stock"`
	NewStock      int       `json:"new_stock"`
	OrderID       *uint     `json:"order_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Order status values. DELIVERED is terminal with respect to cancellation.
const (
	StatusNew       = "NEW"
	StatusPending   = "PENDING"
	StatusShipping  = "SHIPPING"
	StatusDelivered = "DELIVERED"
	StatusCancelled = "CANCELLED"
)

// Order payment values
const (
	PaymentPaid   = "PAID"
	PaymentUnpaid = "UNPAID"
	PaymentCOD    = "COD"
)

// Order type is always derived from the line-item collections
const (
	TypeProduct = "PRODUCT"
	TypeService = "SERVICE"
	TypeMixed   = "MIXED"
)

// Order - The transaction header. CustomerName/CustomerEmail are a
// point-in-time snapshot so historical orders stay stable if the
// customer record changes later. Type and TotalAmount are derived and
// persisted, never trusted from input.
type Order struct {
	ID            uint               `gorm:"primaryKey" json:"id"`
	OrderNumber   string             `gorm:"size:12;index" json:"order_number"` // "o001", scoped per project
	ProjectID     uint               `gorm:"index" json:"project_id"`
	CustomerID    uint               `json:"customer_id"`
	CustomerName  string             `gorm:"size:120" json:"customer_name"`
	CustomerEmail string             `gorm:"size:120" json:"customer_email"`
	OrderDate     time.Time          `json:"order_date"`
	DeliveredDate *time.Time         `json:"delivered_date"`
	Type          string             `gorm:"size:10" json:"type"`
	Status        string             `gorm:"size:12;index" json:"status"`
	Payment       string             `gorm:"size:8" json:"payment"`
	TaxPercentage float64            `json:"tax_percentage"`
	TotalAmount   float64            `json:"total_amount"`
	Items         []OrderItem        `gorm:"foreignKey:OrderID" json:"items"`
	Services      []OrderServiceItem `gorm:"foreignKey:OrderID" json:"services"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// OrderItem - A product line on an order. Price is captured at order
// time, not re-read from the live product.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `gorm:"index" json:"product_id"`
	WarehouseID uint    `json:"warehouse_id"`
	Quantity    int     `json:"quantity"`
	Price       float64 `json:"price"` // snapshot at order time
	Total       float64 `json:"total"`
	Product     Product `json:"product"`
}

// OrderServiceItem - A service line on an order
type OrderServiceItem struct {
	ID        uint    `gorm:"primaryKey" json:"id"`
	OrderID   uint    `gorm:"index" json:"order_id"`
	ServiceID uint    `json:"service_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"` // snapshot at order time
	Total     float64 `json:"total"`
	Service   Service `json:"service"`
}

// AgentWorkflow - An AI agent configuration that may reference catalog
// products. Products referenced by an active workflow cannot be deleted.
type AgentWorkflow struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"index" json:"project_id"`
	AgentName string    `gorm:"size:120" json:"agent_name"`
	Name      string    `gorm:"size:120" json:"name"`
	Active    bool      `gorm:"default:true" json:"active"`
	Products  []Product `gorm:"many2many:workflow_products" json:"products"`
}

// MediaFile - An uploaded file (product image) stored on disk
type MediaFile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID *uint     `gorm:"index" json:"product_id"`
	URL       string    `json:"url"`
	Path      string    `json:"-"` // location on disk, for cleanup
	CreatedAt time.Time `json:"created_at"`
}

// Sequence - One counter row per id scope ("movement:<productID>",
// "order:<projectID>"). Incremented under a row lock in the same
// transaction as the dependent write, so concurrent writers can never
// mint the same human-readable id.
type Sequence struct {
	Scope string `gorm:"primaryKey;size:40"`
	Value int
}
