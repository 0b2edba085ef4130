package catalog

import (
	"errors"
	"fmt"
	"strings"

	"go-biz-agent/internal/access"
	"go-biz-agent/internal/apperr"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/inventory"
	"go-biz-agent/internal/models"
	"go-biz-agent/internal/storage"

	"gorm.io/gorm"
)

// StockInput seeds or replaces the quantity of one warehouse
type StockInput struct {
	WarehouseID uint `json:"warehouse_id" binding:"required"`
	Quantity    int  `json:"quantity"`
}

// ProductInput is the payload for create and update
type ProductInput struct {
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Price       float64      `json:"price"`
	Active      bool         `json:"active"`
	CategoryIDs []uint       `json:"category_ids"`
	Stocks      []StockInput `json:"stocks"`
}

// Statuses during which an order still holds stock; products and
// warehouse associations they reference are frozen.
var inFlightStatuses = []string{models.StatusNew, models.StatusPending, models.StatusShipping}

// CreateProduct inserts the product, its category links and one stock
// row per warehouse, plus a PRODUCT_CREATE ledger entry for every
// non-zero initial quantity. One transaction for the lot.
func CreateProduct(db *gorm.DB, userID, projectID uint, input ProductInput) (*models.Product, error) {
	if err := access.RequireMember(db, userID, projectID); err != nil {
		return nil, err
	}
	if err := validateInput(db, projectID, input); err != nil {
		return nil, err
	}

	product := models.Product{
		ProjectID:   projectID,
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Active:      input.Active,
	}

	err := database.RunInTransaction(db, func(tx *gorm.DB) error {
		if err := tx.Create(&product).Error; err != nil {
			return err
		}
		if err := replaceCategories(tx, &product, input.CategoryIDs); err != nil {
			return err
		}
		for _, s := range input.Stocks {
			stock := models.WarehouseStock{
				ProductID:   product.ID,
				WarehouseID: s.WarehouseID,
				Quantity:    s.Quantity,
			}
			if err := tx.Create(&stock).Error; err != nil {
				return err
			}
			if s.Quantity > 0 {
				if _, err := inventory.AppendMovement(tx, product.ID, s.WarehouseID,
					models.MovementProductCreate, s.Quantity, 0, nil); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ProductByID(db, userID, product.ID)
}

// UpdateProduct replaces the category and warehouse association sets
// wholesale. Removing a warehouse that an in-flight order draws from
// fails the whole update, naming the blocking orders and warehouses.
func UpdateProduct(db *gorm.DB, userID, productID uint, input ProductInput) (*models.Product, error) {
	product, err := loadProduct(db, productID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, product.ProjectID); err != nil {
		return nil, err
	}
	if err := validateInput(db, product.ProjectID, input); err != nil {
		return nil, err
	}

	newQty := make(map[uint]int, len(input.Stocks))
	for _, s := range input.Stocks {
		newQty[s.WarehouseID] = s.Quantity
	}

	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		// Read the prior snapshots under row locks, then run the
		// blocking-order check inside the same transaction, so an order
		// created mid-update cannot slip in a reference to a warehouse
		// being removed.
		var prior []models.WarehouseStock
		if err := database.ForUpdate(tx).Where("product_id = ?", productID).Find(&prior).Error; err != nil {
			return err
		}

		var removed []uint
		for _, p := range prior {
			if _, kept := newQty[p.WarehouseID]; !kept {
				removed = append(removed, p.WarehouseID)
			}
		}
		if len(removed) > 0 {
			if err := checkBlockingOrders(tx, productID, removed); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{
			"name":        input.Name,
			"description": input.Description,
			"price":       input.Price,
			"active":      input.Active,
		}
		if err := tx.Model(&models.Product{}).Where("id = ?", productID).Updates(updates).Error; err != nil {
			return err
		}
		if err := replaceCategories(tx, product, input.CategoryIDs); err != nil {
			return err
		}

		// Ledger first, against the prior snapshots, then swap the rows.
		for _, p := range prior {
			qty, kept := newQty[p.WarehouseID]
			if !kept && p.Quantity != 0 {
				if _, err := inventory.AppendMovement(tx, productID, p.WarehouseID,
					models.MovementProductUpdate, -p.Quantity, p.Quantity, nil); err != nil {
					return err
				}
			}
			if kept && qty != p.Quantity {
				if _, err := inventory.AppendMovement(tx, productID, p.WarehouseID,
					models.MovementProductUpdate, qty-p.Quantity, p.Quantity, nil); err != nil {
					return err
				}
			}
		}
		priorQty := make(map[uint]int, len(prior))
		for _, p := range prior {
			priorQty[p.WarehouseID] = p.Quantity
		}
		for _, s := range input.Stocks {
			if _, existed := priorQty[s.WarehouseID]; !existed && s.Quantity != 0 {
				if _, err := inventory.AppendMovement(tx, productID, s.WarehouseID,
					models.MovementProductUpdate, s.Quantity, 0, nil); err != nil {
					return err
				}
			}
		}

		if err := tx.Where("product_id = ?", productID).Delete(&models.WarehouseStock{}).Error; err != nil {
			return err
		}
		for _, s := range input.Stocks {
			stock := models.WarehouseStock{ProductID: productID, WarehouseID: s.WarehouseID, Quantity: s.Quantity}
			if err := tx.Create(&stock).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ProductByID(db, userID, productID)
}

// DeleteProduct removes a product, its ledger history, stock rows and
// media. Refused while any in-flight order or active agent workflow
// still references the product.
func DeleteProduct(db *gorm.DB, userID, productID uint) error {
	product, err := loadProduct(db, productID)
	if err != nil {
		return err
	}
	if err := access.RequireMember(db, userID, product.ProjectID); err != nil {
		return err
	}

	var files []models.MediaFile
	err = database.RunInTransaction(db, func(tx *gorm.DB) error {
		// Both safety checks run inside the delete transaction so an
		// order or workflow created mid-delete still blocks it.
		if err := checkBlockingOrders(tx, productID, nil); err != nil {
			return err
		}

		var workflows []models.AgentWorkflow
		err := tx.Joins("JOIN workflow_products ON workflow_products.agent_workflow_id = agent_workflows.id").
			Where("workflow_products.product_id = ? AND agent_workflows.active = ?", productID, true).
			Find(&workflows).Error
		if err != nil {
			return err
		}
		if len(workflows) > 0 {
			names := make([]string, len(workflows))
			for i, w := range workflows {
				names[i] = fmt.Sprintf("%s (%s)", w.Name, w.AgentName)
			}
			return apperr.Conflict("product %q is used by active agent workflows: %s", product.Name, strings.Join(names, ", "))
		}

		if err := tx.Where("product_id = ?", productID).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.MediaFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.StockMovement{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", productID).Delete(&models.WarehouseStock{}).Error; err != nil {
			return err
		}
		if err := tx.Where("scope = ?", fmt.Sprintf("movement:%d", productID)).Delete(&models.Sequence{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Product{ID: productID}).Association("Categories").Clear(); err != nil {
			return err
		}
		return tx.Delete(&models.Product{}, productID).Error
	})
	if err != nil {
		return err
	}

	// Disk cleanup is best effort; a failure is logged, never surfaced.
	for _, f := range files {
		storage.Remove(f.Path)
	}
	return nil
}

// Products lists a project's catalog, paginated, with an optional name
// search and category filter
func Products(db *gorm.DB, userID, projectID uint, page, limit int, search string, categoryID uint) ([]models.Product, int64, error) {
	if err := access.RequireMember(db, userID, projectID); err != nil {
		return nil, 0, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	query := db.Model(&models.Product{}).Where("products.project_id = ?", projectID)
	if search != "" {
		query = query.Where("products.name LIKE ?", "%"+search+"%")
	}
	if categoryID != 0 {
		query = query.Joins("JOIN product_categories ON product_categories.product_id = products.id").
			Where("product_categories.category_id = ?", categoryID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := query.Preload("Categories").Preload("Stocks.Warehouse").Preload("Files").
		Order("products.created_at desc").
		Offset((page - 1) * limit).Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// ProductByID fetches one product with all relations
func ProductByID(db *gorm.DB, userID, productID uint) (*models.Product, error) {
	product, err := loadProduct(db, productID)
	if err != nil {
		return nil, err
	}
	if err := access.RequireMember(db, userID, product.ProjectID); err != nil {
		return nil, err
	}

	var full models.Product
	err = db.Preload("Categories").Preload("Stocks.Warehouse").Preload("Files").
		First(&full, productID).Error
	if err != nil {
		return nil, err
	}
	return &full, nil
}

func loadProduct(db *gorm.DB, productID uint) (*models.Product, error) {
	var product models.Product
	err := db.First(&product, productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("product %d not found", productID)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// checkBlockingOrders fails when an in-flight order references this
// product; warehouseIDs narrows the check to specific warehouses (nil
// means any). The error names every blocking order and warehouse.
func checkBlockingOrders(db *gorm.DB, productID uint, warehouseIDs []uint) error {
	type blocking struct {
		OrderNumber string
		WarehouseID uint
	}
	query := db.Table("order_items").
		Select("orders.order_number as order_number, order_items.warehouse_id").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ? AND orders.status IN ?", productID, inFlightStatuses)
	if len(warehouseIDs) > 0 {
		query = query.Where("order_items.warehouse_id IN ?", warehouseIDs)
	}

	var rows []blocking
	if err := query.Scan(&rows).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var parts []string
	for _, r := range rows {
		key := fmt.Sprintf("order %s / warehouse %d", r.OrderNumber, r.WarehouseID)
		if !seen[key] {
			seen[key] = true
			parts = append(parts, key)
		}
	}
	return apperr.Conflict("product %d is referenced by in-flight orders: %s", productID, strings.Join(parts, ", "))
}

func validateInput(db *gorm.DB, projectID uint, input ProductInput) error {
	if input.Price < 0 {
		return apperr.BadRequest("price must not be negative")
	}
	if input.Active && len(input.Stocks) == 0 {
		return apperr.BadRequest("an active product needs at least one warehouse")
	}
	seen := map[uint]bool{}
	for _, s := range input.Stocks {
		if s.Quantity < 0 {
			return apperr.BadRequest("stock quantity for warehouse %d must not be negative", s.WarehouseID)
		}
		if seen[s.WarehouseID] {
			return apperr.BadRequest("warehouse %d listed twice", s.WarehouseID)
		}
		seen[s.WarehouseID] = true

		var count int64
		if err := db.Model(&models.Warehouse{}).
			Where("id = ? AND project_id = ?", s.WarehouseID, projectID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("warehouse %d not found in this project", s.WarehouseID)
		}
	}
	for _, id := range input.CategoryIDs {
		var count int64
		if err := db.Model(&models.Category{}).
			Where("id = ? AND project_id = ?", id, projectID).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperr.NotFound("category %d not found in this project", id)
		}
	}
	return nil
}

func replaceCategories(tx *gorm.DB, product *models.Product, categoryIDs []uint) error {
	var categories []models.Category
	if len(categoryIDs) > 0 {
		if err := tx.Where("id IN ?", categoryIDs).Find(&categories).Error; err != nil {
			return err
		}
	}
	return tx.Model(product).Association("Categories").Replace(categories)
}
