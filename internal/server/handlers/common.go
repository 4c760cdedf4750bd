// Package handlers adapts the production services to HTTP.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

// tableParam resolves the :table path parameter, answering 404 when it
// names no table.
func tableParam(c *gin.Context) (models.TableName, bool) {
	table, err := models.ParseTableName(c.Param("table"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return "", false
	}
	return table, true
}
