package handlers

import (
	"net/http"

	"go-biz-agent/internal/database"
	"go-biz-agent/internal/orders"

	"github.com/gin-gonic/gin"
)

// --- POST /api/orders/:id/services ---
func CreateOrderService(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input orders.ServiceLineInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	item, err := orders.CreateService(database.DB, currentUserID(c), orderID, input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

// --- PUT /api/order-services/:id ---
func UpdateOrderService(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input struct {
		Quantity int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	item, err := orders.UpdateService(database.DB, currentUserID(c), itemID, input.Quantity)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// --- DELETE /api/order-services/:id ---
func DeleteOrderService(c *gin.Context) {
	itemID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := orders.DeleteService(database.DB, currentUserID(c), itemID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// --- GET /api/orders/:id/services ---
func GetOrderServices(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	items, err := orders.ServicesByOrder(database.DB, currentUserID(c), orderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}
