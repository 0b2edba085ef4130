package inventory

import (
	"fmt"
	"time"

	"go-biz-agent/internal/database"
	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// AppendMovement writes one immutable ledger row. NewStock is always
// PreviousStock + delta. The "mNNN" id comes from the per-product
// counter, so every product's history reads m001, m002, ... in order.
// Callers doing multiple appends for one business operation must hold
// them all in a single transaction.
func AppendMovement(tx *gorm.DB, productID, warehouseID uint, movementType string, delta, previousStock int, orderID *uint) (*models.StockMovement, error) {
	movementID, err := database.NextSequential(tx, fmt.Sprintf("movement:%d", productID), "m")
	if err != nil {
		return nil, err
	}

	movement := models.StockMovement{
		MovementID:    movementID,
		ProductID:     productID,
		WarehouseID:   warehouseID,
		MovementType:  movementType,
		Quantity:      delta,
		PreviousStock: previousStock,
		NewStock:      previousStock + delta,
		OrderID:       orderID,
	}

	if err := tx.Create(&movement).Error; err != nil {
		return nil, err
	}
	return &movement, nil
}

// MovementsByProduct pages through a product's ledger, newest first.
// createdAt, when set, narrows to entries on that calendar day.
func MovementsByProduct(db *gorm.DB, productID uint, page, limit int, createdAt *time.Time) ([]models.StockMovement, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := db.Model(&models.StockMovement{}).Where("product_id = ?", productID)
	if createdAt != nil {
		dayStart := time.Date(createdAt.Year(), createdAt.Month(), createdAt.Day(), 0, 0, 0, 0, createdAt.Location())
		query = query.Where("created_at >= ? AND created_at < ?", dayStart, dayStart.AddDate(0, 0, 1))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	err := query.Order("created_at desc, id desc").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}
