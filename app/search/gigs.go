// Package search holds the gig search endpoints
package search

import (
	"net/http"
	"strconv"

	"jobber/auth-api/internal"
	"jobber/auth-api/internal/search"

	"github.com/gin-gonic/gin"
)

// Gigs answers GET /search/gig/:from/:size/:type
func Gigs(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	size, err := strconv.Atoi(c.Param("size"))
	if err != nil || size < 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "size must be a positive number",
			"requestID": requestID,
		})
		return
	}

	res, err := d.Search.Search(c.Request.Context(), search.Request{
		Query:        c.Query("query"),
		DeliveryTime: c.Query("delivery_time"),
		MinPrice:     c.Query("minPrice"),
		MaxPrice:     c.Query("maxPrice"),
		Cursor: search.Cursor{
			From:      c.Param("from"),
			Size:      size,
			Direction: search.Direction(c.Param("type")),
		},
	})
	if err != nil {
		internalError(c, err, requestID, "Failed to search gigs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Search gigs results",
		"total":   res.Total,
		"gigs":    res.Hits,
	})
}

// GigByID answers GET /search/gig/:from where :from is the gig ID. A missing
// or unreadable gig is an empty object, never an error.
func GigByID(c *gin.Context, d *internal.Deps) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Single gig result",
		"gig":     d.Search.GigByID(c.Request.Context(), c.Param("from")),
	})
}
