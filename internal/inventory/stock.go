package inventory

import (
	"errors"
	"fmt"

	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// GetStock returns the current quantity for (product, warehouse), with
// the row locked for the rest of the transaction when tx is one.
func GetStock(tx *gorm.DB, productID, warehouseID uint) (*models.WarehouseStock, error) {
	var stock models.WarehouseStock
	err := database.ForUpdate(tx).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		First(&stock).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d has no stock record in warehouse %d", productID, warehouseID)
	}
	if err != nil {
		return nil, err
	}
	return &stock, nil
}

// AdjustStock applies a signed delta to a stock row and writes the
// matching ledger entry, all in the caller's transaction. A negative
// delta that exceeds the available quantity fails the whole operation;
// we never rely on a floor-at-zero clamp.
func AdjustStock(tx *gorm.DB, productID, warehouseID uint, delta int, movementType string, orderID *uint) (*models.StockMovement, error) {
	stock, err := GetStock(tx, productID, warehouseID)
	if err != nil {
		return nil, err
	}

	if delta < 0 && stock.Quantity < -delta {
		name := warehouseName(tx, warehouseID)
		return nil, apperr.BadRequest("insufficient stock for product %d in warehouse %s: %d available, %d requested",
			productID, name, stock.Quantity, -delta)
	}

	newQty := stock.Quantity + delta
	if err := tx.Model(&models.WarehouseStock{}).
		Where("product_id = ? AND warehouse_id = ?", productID, warehouseID).
		Update("quantity", newQty).Error; err != nil {
		return nil, err
	}

	return AppendMovement(tx, productID, warehouseID, movementType, delta, stock.Quantity, orderID)
}

func warehouseName(tx *gorm.DB, warehouseID uint) string {
	var wh models.Warehouse
	if err := tx.First(&wh, warehouseID).Error; err != nil {
		return fmt.Sprintf("#%d", warehouseID)
	}
	return wh.Name
}
