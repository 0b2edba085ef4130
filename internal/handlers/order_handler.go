package handlers

import (
	"net/http"

	"go-biz-agent/internal/database"
	"go-biz-agent/internal/orders"

	"github.com/gin-gonic/gin"
)

// --- POST /api/orders ---
func CreateOrder(c *gin.Context) {
	var input orders.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	order, err := orders.Create(database.DB, currentUserID(c), input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// --- GET /api/orders ---
// Query params: project_id, page, limit, search, type, status, payment,
// min_amount, max_amount, statuses (repeatable)
func GetOrders(c *gin.Context) {
	filter := orders.ListFilter{
		ProjectID: queryUint(c, "project_id"),
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 10),
		Search:    c.Query("search"),
		Type:      c.Query("type"),
		Status:    c.Query("status"),
		Payment:   c.Query("payment"),
		MinAmount: queryFloat(c, "min_amount"),
		MaxAmount: queryFloat(c, "max_amount"),
		Statuses:  c.QueryArray("statuses"),
	}

	list, total, err := orders.List(database.DB, currentUserID(c), filter)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"orders": list,
		"total":  total,
		"page":   filter.Page,
		"limit":  filter.Limit,
	})
}

// --- GET /api/orders/:id ---
func GetOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, err := orders.ByID(database.DB, currentUserID(c), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// --- PUT /api/orders/:id ---
func UpdateOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var patch orders.UpdateInput
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	order, err := orders.Update(database.DB, currentUserID(c), id, patch)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// --- DELETE /api/orders/:id ---
func DeleteOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := orders.Delete(database.DB, currentUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
