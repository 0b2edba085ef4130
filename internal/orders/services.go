package orders

import (
	"errors"

	"go-biz-agent/internal/access"
	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// ServiceLineInput creates or updates one service line on an order
type ServiceLineInput struct {
	ServiceID uint `json:"service_id"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// CreateService attaches a service line to an order and recomputes the
// order total in the same transaction. The referenced service must
// exist, be active and belong to the order's project.
func CreateService(db *gorm.DB, userID, orderID uint, input ServiceLineInput) (*models.OrderServiceItem, error) {
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, order.ProjectID); err != nil {
		return nil, err
	}
	if input.Quantity < 1 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	service, err := lookupService(db, order.ProjectID, input.ServiceID)
	if err != nil {
		return nil, err
	}

	item := models.OrderServiceItem{
		OrderID:   orderID,
		ServiceID: service.ID,
		Quantity:  input.Quantity,
		Price:     service.Price,
		Total:     round2(float64(input.Quantity) * service.Price),
	}

	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateService changes a line's quantity; the captured price never
// moves. Total recomputed and persisted with the write.
func UpdateService(db *gorm.DB, userID, itemID uint, quantity int) (*models.OrderServiceItem, error) {
	item, order, err := loadServiceItem(db, itemID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, order.ProjectID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, apperr.BadRequest("quantity must be at least 1")
	}

	item.Quantity = quantity
	item.Total = round2(float64(quantity) * item.Price)

	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Model(&models.OrderServiceItem{}).Where("id = ?", itemID).
			Updates(map[string]interface{}{"quantity": item.Quantity, "total": item.Total}).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, item.OrderID)
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteService removes a line and recomputes the order total.
// Stricter than create/update: requires the admin role.
func DeleteService(db *gorm.DB, userID, itemID uint) error {
	item, order, err := loadServiceItem(db, itemID)
	if err != nil {
		return err
	}
	if err := access.RequireAdmin(db, userID, order.ProjectID); err != nil {
		return err
	}

	return database.RunInTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Delete(&models.OrderServiceItem{}, itemID).Error; err != nil {
			return err
		}
		return recomputeOrderTotal(tx, item.OrderID)
	})
}

// ServicesByOrder lists an order's service lines
func ServicesByOrder(db *gorm.DB, userID, orderID uint) ([]models.OrderServiceItem, error) {
	order, err := loadOrder(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, order.ProjectID); err != nil {
		return nil, err
	}

	var items []models.OrderServiceItem
	err = db.Preload("Service").Where("order_id = ?", orderID).Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func loadServiceItem(db *gorm.DB, itemID uint) (*models.OrderServiceItem, *models.Order, error) {
	var item models.OrderServiceItem
	err := db.First(&item, itemID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperr.NotFound("order service line %d not found", itemID)
	}
	if err != nil {
		return nil, nil, err
	}

	var order models.Order
	if err := db.First(&order, item.OrderID).Error; err != nil {
		return nil, nil, err
	}
	return &item, &order, nil
}
