package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"docsync/backend/internal/store"
)

// Documents serves the REST index of persisted documents. Live editing goes
// through the WebSocket; these endpoints only read and delete what the
// autosaver has flushed.
type Documents struct {
	db *gorm.DB
}

func NewDocuments(db *gorm.DB) *Documents {
	return &Documents{db: db}
}

func (h *Documents) Register(r gin.IRoutes) {
	r.GET("/api/documents", h.List)
	r.GET("/api/documents/:id", h.Get)
	r.DELETE("/api/documents/:id", h.Delete)
}

func (h *Documents) List(c *gin.Context) {
	var docs []store.DocumentRecord
	if err := h.db.WithContext(c.Request.Context()).
		Select("id", "title", "revision", "updated_at").
		Order("updated_at DESC").
		Find(&docs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, docs)
}

func (h *Documents) Get(c *gin.Context) {
	var doc store.DocumentRecord
	err := h.db.WithContext(c.Request.Context()).First(&doc, "id = ?", c.Param("id")).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *Documents) Delete(c *gin.Context) {
	id := c.Param("id")
	tx := h.db.WithContext(c.Request.Context()).Delete(&store.DocumentRecord{}, "id = ?", id)
	if tx.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": tx.Error.Error()})
		return
	}
	if tx.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	if err := h.db.WithContext(c.Request.Context()).
		Delete(&store.SnapshotRecord{}, "document_id = ?", id).Error; err != nil {
		// the document row is already gone; orphaned history is worth a trace
		log.Printf("snapshot history delete failed doc=%s: %v", id, err)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
