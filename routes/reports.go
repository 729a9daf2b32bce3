package routes

import (
	"net/http"

	"scamdrill/db"

	"github.com/gin-gonic/gin"
)

// GetReportRouteHandler returns a stored score report by session id.
func GetReportRouteHandler(c *gin.Context) {
	sessionID := c.Param("id")

	report, err := db.GetReport(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "report not found"})
		return
	}
	c.JSON(http.StatusOK, report)
}
