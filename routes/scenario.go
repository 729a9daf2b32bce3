package routes

import (
	"encoding/json"
	"io"
	"net/http"

	"scamdrill/config"
	"scamdrill/db"
	"scamdrill/scenario"
	"scamdrill/services"

	"github.com/gin-gonic/gin"
)

// GetScenarioRouteHandler serves the resolved scenario document (override
// first, remote source second) with its steps normalized.
func GetScenarioRouteHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		doc, err := services.LoadScenarioDocument(c.Request.Context(), cfg, name)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "failed to load scenario"})
			return
		}

		graph, biometricData, err := scenario.Load(doc)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"name":          name,
			"steps":         graph.Steps(),
			"biometricData": json.RawMessage(biometricData),
		})
	}
}

// PutScenarioRouteHandler stores an operator-edited scenario override after
// validating that the document parses into a well-formed graph.
func PutScenarioRouteHandler(c *gin.Context) {
	name := c.Param("name")

	doc, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}

	if _, _, err := scenario.Load(doc); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if err := db.PutScenarioOverride(c.Request.Context(), name, doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store scenario"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "scenario stored", "name": name})
}
