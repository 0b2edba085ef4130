package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"go-biz-agent/internal/catalog"
	"go-biz-agent/internal/database"
	"go-biz-agent/internal/inventory"
	"go-biz-agent/internal/models"
	"go-biz-agent/internal/storage"

	"github.com/gin-gonic/gin"
)

// --- GET /api/products ---
func GetProducts(c *gin.Context) {
	list, total, err := catalog.Products(
		database.DB,
		currentUserID(c),
		queryUint(c, "project_id"),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 10),
		c.Query("search"),
		queryUint(c, "category_id"),
	)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": list, "total": total})
}

// --- GET /api/products/:id ---
func GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	product, err := catalog.ProductByID(database.DB, currentUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type createProductRequest struct {
	ProjectID uint `json:"project_id" binding:"required"`
	catalog.ProductInput
}

// --- POST /api/products ---
func AddProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	product, err := catalog.CreateProduct(database.DB, currentUserID(c), req.ProjectID, req.ProductInput)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// --- PUT /api/products/:id ---
func UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input catalog.ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	product, err := catalog.UpdateProduct(database.DB, currentUserID(c), id, input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product updated successfully", "product": product})
}

// --- DELETE /api/products/:id ---
func DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := catalog.DeleteProduct(database.DB, currentUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted successfully"})
}

// --- GET /api/products/:id/movements ---
// Paginated stock ledger for one product; created_at (YYYY-MM-DD)
// narrows to a single day.
func GetStockMovements(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	// The catalog lookup doubles as the membership check.
	if _, err := catalog.ProductByID(database.DB, currentUserID(c), id); err != nil {
		fail(c, err)
		return
	}

	var createdAt *time.Time
	if raw := c.Query("created_at"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "created_at must be YYYY-MM-DD"})
			return
		}
		createdAt = &day
	}

	movements, total, err := inventory.MovementsByProduct(
		database.DB, id, queryInt(c, "page", 1), queryInt(c, "limit", 10), createdAt)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"movements": movements, "total": total})
}

// --- POST /api/upload ---
// Saves a product image under ./uploads and records a MediaFile row.
// product_id is required: every upload belongs to a product in one of
// the caller's projects, and product deletion is the cleanup path.
func UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	parsed, err := strconv.Atoi(c.PostForm("product_id"))
	if err != nil || parsed < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_id is required"})
		return
	}
	id := uint(parsed)

	// The catalog lookup doubles as the membership check.
	if _, err := catalog.ProductByID(database.DB, currentUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	media := models.MediaFile{ProductID: &id}

	path := storage.SavePath(file.Filename)
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	media.Path = path
	media.URL = storage.PublicURL(os.Getenv("BASE_URL"), path)
	if err := database.DB.Create(&media).Error; err != nil {
		storage.Remove(path)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record file"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     media.URL,
		"file_id": media.ID,
	})
}
