package api

import (
	"errors"
	"log"
	"net/http"

	"whatsapp-flow-editor/internal/store"
	"whatsapp-flow-editor/internal/ws"
	"whatsapp-flow-editor/pkg/models"

	"github.com/gin-gonic/gin"
)

// Broadcaster publishes change events to connected editors.
type Broadcaster interface {
	BroadcastEvent(eventType string, data interface{})
}

type FlowHandler struct {
	Store  *store.FlowStore
	Events Broadcaster
}

func NewFlowHandler(s *store.FlowStore, events Broadcaster) *FlowHandler {
	return &FlowHandler{Store: s, Events: events}
}

// writeError maps store errors to status codes. Conflict reasons are sent
// verbatim so editors can show them as they are.
func writeError(c *gin.Context, err error) {
	var conflict *store.ActiveConflictError
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: "Não encontrado"})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: conflict.Error()})
	default:
		log.Printf("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: err.Error()})
	}
}

// GetFlows lists the flows of an organization
func (h *FlowHandler) GetFlows(c *gin.Context) {
	flows, err := h.Store.List(c.Request.Context(), c.Query("organization_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]models.FlowPayload, len(flows))
	for i := range flows {
		out[i] = models.FromFlow(&flows[i])
	}
	c.JSON(http.StatusOK, out)
}

func (h *FlowHandler) GetFlow(c *gin.Context) {
	f, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.FromFlow(f))
}

// SaveFlow creates a flow when the payload has no id and replaces it
// otherwise.
func (h *FlowHandler) SaveFlow(c *gin.Context) {
	var req models.FlowPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	f := req.ToFlow()
	if err := f.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	saved, err := h.Store.Save(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}

	payload := models.FromFlow(saved)
	h.Events.BroadcastEvent(ws.EventFlowSaved, payload)
	c.JSON(http.StatusOK, payload)
}

func (h *FlowHandler) DeleteFlow(c *gin.Context) {
	id := c.Param("id")
	if err := h.Store.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	h.Events.BroadcastEvent(ws.EventFlowDeleted, gin.H{"id": id})
	c.JSON(http.StatusOK, gin.H{"status": "Flow deleted"})
}

// ToggleFlow activates or deactivates a flow
func (h *FlowHandler) ToggleFlow(c *gin.Context) {
	id := c.Param("id")
	var req models.ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.Store.SetActive(c.Request.Context(), id, req.Ativo); err != nil {
		writeError(c, err)
		return
	}

	h.Events.BroadcastEvent(ws.EventFlowToggled, gin.H{"id": id, "ativo": req.Ativo})
	c.JSON(http.StatusOK, gin.H{"id": id, "ativo": req.Ativo})
}
