// api/handlers/funnel_handlers.go
package handlers

import (
	"fmt"
	"net/http"

	"funnelscope/api/models"
	"funnelscope/api/store"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type FunnelHandlers struct {
	FunnelStore *store.FunnelStore
}

func NewFunnelHandlers(funnelStore *store.FunnelStore) *FunnelHandlers {
	return &FunnelHandlers{FunnelStore: funnelStore}
}

func (h *FunnelHandlers) CreateFunnel(c *gin.Context) {
	var req models.CreateFunnelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	funnel, err := h.FunnelStore.CreateFunnel(c.Request.Context(), req)
	if err != nil {
		if err.Error() == fmt.Sprintf("funnel with id '%s' already exists", req.ID) {
			c.JSON(http.StatusConflict, gin.H{"error": "Funnel with this id already exists"})
			return
		}
		log.WithError(err).WithField("funnelId", req.ID).Error("Failed to create funnel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create funnel"})
		return
	}

	c.JSON(http.StatusCreated, funnel)
}

func (h *FunnelHandlers) GetFunnel(c *gin.Context) {
	id := c.Param("id")

	funnel, err := h.FunnelStore.GetFunnel(c.Request.Context(), id)
	if err != nil {
		if err.Error() == fmt.Sprintf("funnel with id '%s' not found", id) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Funnel not found"})
			return
		}
		log.WithError(err).WithField("funnelId", id).Error("Failed to get funnel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve funnel"})
		return
	}

	c.JSON(http.StatusOK, funnel)
}

func (h *FunnelHandlers) ListFunnels(c *gin.Context) {
	funnels, err := h.FunnelStore.ListFunnels(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list funnels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve funnels"})
		return
	}

	c.JSON(http.StatusOK, funnels)
}
