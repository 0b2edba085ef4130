package orders

import (
	"math"

	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// round2 keeps money at two decimals
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// computeTotal is the one canonical total: sum of line-item totals,
// taxed. Every read and write path uses this; nothing ever derives the
// subtotal back out of a persisted total.
func computeTotal(items []models.OrderItem, services []models.OrderServiceItem, taxPercentage float64) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Total
	}
	for _, s := range services {
		sum += s.Total
	}
	return round2(sum * (1 + taxPercentage/100))
}

// deriveType computes the order type from the line-item collections.
// Never trusted from caller input.
func deriveType(itemCount, serviceCount int) string {
	switch {
	case itemCount > 0 && serviceCount > 0:
		return models.TypeMixed
	case serviceCount > 0:
		return models.TypeService
	default:
		return models.TypeProduct
	}
}

// recomputeOrderTotal re-sums all line items from the store and
// persists the new TotalAmount, inside the caller's transaction.
// Called after every line-item mutation.
func recomputeOrderTotal(tx *gorm.DB, orderID uint) error {
	var order models.Order
	if err := tx.First(&order, orderID).Error; err != nil {
		return err
	}

	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	var services []models.OrderServiceItem
	if err := tx.Where("order_id = ?", orderID).Find(&services).Error; err != nil {
		return err
	}

	total := computeTotal(items, services, order.TaxPercentage)
	return tx.Model(&models.Order{}).Where("id = ?", orderID).
		Update("total_amount", total).Error
}
