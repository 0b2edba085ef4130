package database

import (
	"time"

	"go-biz-agent/internal/models"

	"gorm.io/gorm"
)

// OrderReportResult holds the data the AI assistant needs
type OrderReportResult struct {
	TotalRevenue float64
	TotalCount   int64
}

// GetOrderReport sums non-cancelled order revenue in a date range,
// scoped to one project
func GetOrderReport(db *gorm.DB, projectID uint, start, end time.Time) (*OrderReportResult, error) {
	var result OrderReportResult

	// COALESCE ensures we get 0 instead of NULL if no orders exist
	err := db.Model(&models.Order{}).
		Where("project_id = ? AND status <> ? AND order_date BETWEEN ? AND ?",
			projectID, models.StatusCancelled, start, end).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&result.TotalRevenue).Error

	if err != nil {
		return nil, err
	}

	err = db.Model(&models.Order{}).
		Where("project_id = ? AND status <> ? AND order_date BETWEEN ? AND ?",
			projectID, models.StatusCancelled, start, end).
		Count(&result.TotalCount).Error

	if err != nil {
		return nil, err
	}

	return &result, nil
}
