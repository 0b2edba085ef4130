package orders

import (
	"errors"
	"fmt"
	"time"

	"go-biz-agent/internal/access"
	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/inventory"
	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// ItemInput is one product line in a create request
type ItemInput struct {
	ProductID   uint `json:"product_id" binding:"required"`
	WarehouseID uint `json:"warehouse_id" binding:"required"`
	Quantity    int  `json:"quantity" binding:"required"`
}

// ServiceInput is one service line in a create request
type ServiceInput struct {
	ServiceID uint `json:"service_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateInput is the order.create payload. Type and TotalAmount are
// intentionally absent: both are derived server-side.
type CreateInput struct {
	ProjectID     uint           `json:"project_id" binding:"required"`
	CustomerID    uint           `json:"customer_id" binding:"required"`
	Items         []ItemInput    `json:"items"`
	Services      []ServiceInput `json:"services"`
	OrderDate     *time.Time     `json:"order_date"`
	DeliveredDate *time.Time     `json:"delivered_date"`
	Status        string         `json:"status"`
	Payment       string         `json:"payment"`
	TaxPercentage float64        `json:"tax_percentage"`
}

// UpdateInput is the order.update patch; nil means "leave alone"
type UpdateInput struct {
	Status        *string    `json:"status"`
	Payment       *string    `json:"payment"`
	CustomerID    *uint      `json:"customer_id"`
	TaxPercentage *float64   `json:"tax_percentage"`
	DeliveredDate *time.Time `json:"delivered_date"`
	OrderDate     *time.Time `json:"order_date"`
}

var validStatuses = map[string]bool{
	models.StatusNew: true, models.StatusPending: true, models.StatusShipping: true,
	models.StatusDelivered: true, models.StatusCancelled: true,
}

var validPayments = map[string]bool{
	models.PaymentPaid: true, models.PaymentUnpaid: true, models.PaymentCOD: true,
}

// Create builds an order in one transaction: header with the customer
// snapshot, all line items with captured prices, a stock decrement and
// an ORDER_CREATE ledger entry per product line. Any stock shortfall
// rolls the whole thing back.
func Create(db *gorm.DB, userID uint, input CreateInput) (*models.Order, error) {
	if err := access.RequireMember(db, userID, input.ProjectID); err != nil {
		return nil, err
	}
	if len(input.Items) == 0 && len(input.Services) == 0 {
		return nil, apperr.BadRequest("an order needs at least one product or service line")
	}
	if input.TaxPercentage < 0 || input.TaxPercentage > 100 {
		return nil, apperr.BadRequest("tax percentage must be between 0 and 100")
	}
	status := input.Status
	if status == "" {
		status = models.StatusNew
	}
	if !validStatuses[status] {
		return nil, apperr.BadRequest("unknown order status %q", status)
	}
	payment := input.Payment
	if payment == "" {
		payment = models.PaymentUnpaid
	}
	if !validPayments[payment] {
		return nil, apperr.BadRequest("unknown payment state %q", payment)
	}

	customer, err := lookupCustomer(db, input.ProjectID, input.CustomerID)
	if err != nil {
		return nil, err
	}

	items, err := buildItems(db, input.ProjectID, input.Items)
	if err != nil {
		return nil, err
	}
	serviceItems, err := buildServiceItems(db, input.ProjectID, input.Services)
	if err != nil {
		return nil, err
	}

	orderDate := time.Now()
	if input.OrderDate != nil {
		orderDate = *input.OrderDate
	}

	order := models.Order{
		ProjectID:     input.ProjectID,
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: customer.Email,
		OrderDate:     orderDate,
		DeliveredDate: input.DeliveredDate,
		Type:          deriveType(len(items), len(serviceItems)),
		Status:        status,
		Payment:       payment,
		TaxPercentage: input.TaxPercentage,
		TotalAmount:   computeTotal(items, serviceItems, input.TaxPercentage),
		Items:         items,
		Services:      serviceItems,
	}

	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		number, err := database.NextSequential(tx, fmt.Sprintf("order:%d", input.ProjectID), "o")
		if err != nil {
			return err
		}
		order.OrderNumber = number

		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		// Stock checks run under row locks here, so two concurrent
		// orders cannot both pass the check before either decrements.
		for _, it := range input.Items {
			if _, err := inventory.AdjustStock(tx, it.ProductID, it.WarehouseID,
				-it.Quantity, models.MovementOrderCreate, &order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ByID(db, userID, order.ID)
}

// Update patches the header. Status transitions carry stock side
// effects: cancelling restores every product line, reinstating from
// CANCELLED re-validates and decrements again. DELIVERED never moves
// to CANCELLED. Admin only.
func Update(db *gorm.DB, userID, orderID uint, patch UpdateInput) (*models.Order, error) {
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireAdmin(db, userID, order.ProjectID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}

	if patch.Status != nil && !validStatuses[*patch.Status] {
		return nil, apperr.BadRequest("unknown order status %q", *patch.Status)
	}
	if patch.Payment != nil {
		if !validPayments[*patch.Payment] {
			return nil, apperr.BadRequest("unknown payment state %q", *patch.Payment)
		}
		updates["payment"] = *patch.Payment
	}
	if patch.TaxPercentage != nil {
		if *patch.TaxPercentage < 0 || *patch.TaxPercentage > 100 {
			return nil, apperr.BadRequest("tax percentage must be between 0 and 100")
		}
		updates["tax_percentage"] = *patch.TaxPercentage
	}
	if patch.CustomerID != nil {
		customer, err := lookupCustomer(db, order.ProjectID, *patch.CustomerID)
		if err != nil {
			return nil, err
		}
		updates["customer_id"] = customer.ID
		updates["customer_name"] = customer.Name
		updates["customer_email"] = customer.Email
	}
	if patch.OrderDate != nil {
		updates["order_date"] = *patch.OrderDate
	}
	if patch.DeliveredDate != nil {
		updates["delivered_date"] = *patch.DeliveredDate
	}

	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		if patch.Status != nil && *patch.Status != order.Status {
			switch {
			case *patch.Status == models.StatusCancelled:
				if order.Status == models.StatusDelivered {
					return apperr.BadRequest("cannot cancel a delivered order (%s)", order.OrderNumber)
				}
				for _, it := range order.Items {
					if _, err := inventory.AdjustStock(tx, it.ProductID, it.WarehouseID,
						it.Quantity, models.MovementOrderCancelled, &order.ID); err != nil {
						return err
					}
				}
			case order.Status == models.StatusCancelled:
				// Reinstating: the stock came back at cancellation,
				// take it again, subject to availability.
				for _, it := range order.Items {
					if _, err := inventory.AdjustStock(tx, it.ProductID, it.WarehouseID,
						-it.Quantity, models.MovementOrderCreate, &order.ID); err != nil {
						return err
					}
				}
			}
			updates["status"] = *patch.Status
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Order{}).Where("id = ?", orderID).Updates(updates).Error; err != nil {
				return err
			}
		}
		if patch.TaxPercentage != nil {
			return recomputeOrderTotal(tx, orderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ByID(db, userID, orderID)
}

// Delete removes an order and its line items. Unless the order was
// already CANCELLED (stock restored then), every product line's stock
// comes back with an ORDER_DELETE ledger entry. Admin only.
func Delete(db *gorm.DB, userID, orderID uint) error {
	order, err := loadOrder(db, orderID)
	if err != nil {
		return err
	}
	if err := access.RequireAdmin(db, userID, order.ProjectID); err != nil {
		return err
	}

	return database.RunInTransaction(db, func(tx *gorm.DB) error {
		if order.Status != models.StatusCancelled {
			for _, it := range order.Items {
				if _, err := inventory.AdjustStock(tx, it.ProductID, it.WarehouseID,
					it.Quantity, models.MovementOrderDelete, &order.ID); err != nil {
					return err
				}
			}
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderServiceItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, orderID).Error
	})
}

// ListFilter holds order.getAll's query parameters
type ListFilter struct {
	ProjectID uint
	Page      int
	Limit     int
	Search    string
	Type      string
	Status    string
	Payment   string
	MinAmount *float64
	MaxAmount *float64
	Statuses  []string // multi-select, OR'd together
}

// List pages through a project's orders with the getAll filters
func List(db *gorm.DB, userID uint, filter ListFilter) ([]models.Order, int64, error) {
	if err := access.RequireMember(db, userID, filter.ProjectID); err != nil {
		return nil, 0, err
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 10
	}

	query := db.Model(&models.Order{}).Where("project_id = ?", filter.ProjectID)
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("order_number LIKE ? OR customer_name LIKE ? OR customer_email LIKE ?", like, like, like)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Payment != "" {
		query = query.Where("payment = ?", filter.Payment)
	}
	if filter.MinAmount != nil {
		query = query.Where("total_amount >= ?", *filter.MinAmount)
	}
	if filter.MaxAmount != nil {
		query = query.Where("total_amount <= ?", *filter.MaxAmount)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var list []models.Order
	err := query.Preload("Items").Preload("Services").
		Order("order_date desc, id desc").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&list).Error
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// ByID fetches one order with nested product/service lines and their files
func ByID(db *gorm.DB, userID, orderID uint) (*models.Order, error) {
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, order.ProjectID); err != nil {
		return nil, err
	}

	var full models.Order
	err = db.Preload("Items.Product.Files").Preload("Services.Service").
		First(&full, orderID).Error
	if err != nil {
		return nil, err
	}
	return &full, nil
}

func loadOrder(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.Preload("Items").First(&order, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("order %d not found", orderID)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func lookupCustomer(db *gorm.DB, projectID, customerID uint) (*models.Customer, error) {
	var customer models.Customer
	err := db.Where("id = ? AND project_id = ?", customerID, projectID).First(&customer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("customer %d not found in this project", customerID)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

// buildItems captures each product line with the price at order time.
// Existence of the (product, warehouse) pairing is verified here; the
// authoritative stock check happens later under the transaction lock.
func buildItems(db *gorm.DB, projectID uint, inputs []ItemInput) ([]models.OrderItem, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, apperr.BadRequest("quantity for product %d must be at least 1", in.ProductID)
		}
		var product models.Product
		err := db.Where("id = ? AND project_id = ?", in.ProductID, projectID).First(&product).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product %d not found in this project", in.ProductID)
		}
		if err != nil {
			return nil, err
		}
		if !product.Active {
			return nil, apperr.BadRequest("product %q is inactive", product.Name)
		}

		stock, err := inventory.GetStock(db, in.ProductID, in.WarehouseID)
		if err != nil {
			return nil, err
		}
		if stock.Quantity < in.Quantity {
			return nil, apperr.BadRequest("insufficient stock for product %q: %d available, %d requested",
				product.Name, stock.Quantity, in.Quantity)
		}

		items = append(items, models.OrderItem{
			ProductID:   in.ProductID,
			WarehouseID: in.WarehouseID,
			Quantity:    in.Quantity,
			Price:       product.Price,
			Total:       round2(float64(in.Quantity) * product.Price),
		})
	}
	return items, nil
}

func buildServiceItems(db *gorm.DB, projectID uint, inputs []ServiceInput) ([]models.OrderServiceItem, error) {
	items := make([]models.OrderServiceItem, 0, len(inputs))
	for _, in := range inputs {
		if in.Quantity < 1 {
			return nil, apperr.BadRequest("quantity for service %d must be at least 1", in.ServiceID)
		}
		service, err := lookupService(db, projectID, in.ServiceID)
		if err != nil {
			return nil, err
		}
		items = append(items, models.OrderServiceItem{
			ServiceID: in.ServiceID,
			Quantity:  in.Quantity,
			Price:     service.Price,
			Total:     round2(float64(in.Quantity) * service.Price),
		})
	}
	return items, nil
}

func lookupService(db *gorm.DB, projectID, serviceID uint) (*models.Service, error) {
	var service models.Service
	err := db.Where("id = ? AND project_id = ?", serviceID, projectID).First(&service).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("service %d not found in this project", serviceID)
	}
	if err != nil {
		return nil, err
	}
	if !service.Active {
		return nil, apperr.BadRequest("service %q is inactive", service.Name)
	}
	return &service, nil
}
