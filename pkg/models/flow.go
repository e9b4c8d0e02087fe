package models

import (
	"whatsapp-flow-editor/internal/blocks"
	"whatsapp-flow-editor/internal/flow"
)

// FlowPayload is the wire shape of a flow on the Flow API.
type FlowPayload struct {
	ID             string      `json:"id,omitempty"`
	Nome           string      `json:"nome" binding:"required"`
	Descricao      string      `json:"descricao,omitempty"`
	Nodes          []flow.Node `json:"nodes"`
	Edges          []flow.Edge `json:"edges"`
	Ativo          bool        `json:"ativo"`
	Canal          string      `json:"canal" binding:"required,oneof=whatsapp webchat telegram"`
	OrganizationID string      `json:"organization_id" binding:"required"`
	UserID         string      `json:"user_id,omitempty"`
}

// FromFlow builds the payload for f. Nodes and edges are sent as they are;
// callers normalize first.
func FromFlow(f *flow.Flow) FlowPayload {
	p := FlowPayload{
		ID:             f.ID,
		Nome:           f.Name,
		Descricao:      f.Description,
		Nodes:          f.Nodes,
		Edges:          f.Edges,
		Ativo:          f.Active,
		Canal:          f.Channel,
		OrganizationID: f.OrganizationID,
		UserID:         f.OwnerUserID,
	}
	if p.Nodes == nil {
		p.Nodes = []flow.Node{}
	}
	if p.Edges == nil {
		p.Edges = []flow.Edge{}
	}
	return p
}

// ToFlow converts a payload back into the model.
func (p FlowPayload) ToFlow() *flow.Flow {
	f := &flow.Flow{
		ID:             p.ID,
		Name:           p.Nome,
		Description:    p.Descricao,
		Active:         p.Ativo,
		Channel:        p.Canal,
		OrganizationID: p.OrganizationID,
		OwnerUserID:    p.UserID,
		Nodes:          p.Nodes,
		Edges:          p.Edges,
	}
	if f.Nodes == nil {
		f.Nodes = []flow.Node{}
	}
	if f.Edges == nil {
		f.Edges = []flow.Edge{}
	}
	return f
}

// ReferencePaths maps each reference entity to its list endpoint under /api.
var ReferencePaths = map[blocks.Entity]string{
	blocks.EntityAgent:      "agents",
	blocks.EntityDepartment: "departments",
	blocks.EntityTeam:       "teams",
	blocks.EntityAIAgent:    "ai-agents",
}

// ReferenceItem is one entry of a reference list endpoint.
type ReferenceItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateReferenceRequest is the body of POST /api/references.
type CreateReferenceRequest struct {
	Kind           string `json:"kind" binding:"required,oneof=agente departamento time aiAgent"`
	Name           string `json:"name" binding:"required"`
	OrganizationID string `json:"organization_id" binding:"required"`
}

// ToggleRequest is the body of POST /api/flows/:id/toggle.
type ToggleRequest struct {
	Ativo bool `json:"ativo"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
