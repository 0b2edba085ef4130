package handlers

import (
	"log"
	"net/http"
	"strconv"

	"go-biz-agent/internal/apperr"

	"github.com/gin-gonic/gin"
)

// fail translates a domain error into the response. Taxonomy errors
// keep their message (it names the offending resource for the user);
// anything else is a 500 with the detail kept server-side.
func fail(c *gin.Context, err error) {
	status := apperr.StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Println("internal error:", err)
		c.JSON(status, gin.H{"error": "Something went wrong"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUserID reads the id the auth middleware stored on the context
func currentUserID(c *gin.Context) uint {
	return c.MustGet("userID").(uint)
}

// pathID parses a numeric :id-style path parameter
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional numeric query parameter, 0 when absent
func queryUint(c *gin.Context, name string) uint {
	v, _ := strconv.Atoi(c.Query(name))
	if v < 0 {
		return 0
	}
	return uint(v)
}

// queryInt parses a numeric query parameter with a default
func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, name string) *float64 {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}
