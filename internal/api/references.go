package api

import (
	"net/http"

	"whatsapp-flow-editor/internal/blocks"
	dbmodels "whatsapp-flow-editor/internal/models"
	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/pkg/models"

	"github.com/gin-gonic/gin"
)

type ReferenceHandler struct {
	Store *store.FlowStore
}

func NewReferenceHandler(s *store.FlowStore) *ReferenceHandler {
	return &ReferenceHandler{Store: s}
}

// List returns the handler serving one reference list.
func (h *ReferenceHandler) List(entity blocks.Entity) gin.HandlerFunc {
	return func(c *gin.Context) {
		refs, err := h.Store.ListReferences(c.Request.Context(), string(entity), c.Query("organization_id"))
		if err != nil {
			writeError(c, err)
			return
		}

		out := make([]models.ReferenceItem, len(refs))
		for i, r := range refs {
			out[i] = models.ReferenceItem{ID: r.ID, Name: r.Name}
		}
		c.JSON(http.StatusOK, out)
	}
}

func (h *ReferenceHandler) Create(c *gin.Context) {
	var req models.CreateReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	ref := dbmodels.Reference{OrganizationID: req.OrganizationID, Kind: req.Kind, Name: req.Name}
	if err := h.Store.CreateReference(c.Request.Context(), &ref); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.ReferenceItem{ID: ref.ID, Name: ref.Name})
}

func (h *ReferenceHandler) Delete(c *gin.Context) {
	if err := h.Store.DeleteReference(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Reference deleted"})
}
