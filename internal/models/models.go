package models

import (
	"time"
)

// Flow is a stored conversational flow. Nodes and edges live in their own
// tables, ordered by Seq.
type Flow struct {
	ID             string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID string     `gorm:"index;type:varchar(64);not null" json:"organization_id"`
	Name           string     `gorm:"type:varchar(255);not null" json:"nome"`
	Description    string     `gorm:"type:text" json:"descricao"`
	Channel        string     `gorm:"type:varchar(20);not null" json:"canal"`
	Active         bool       `gorm:"default:false;index" json:"ativo"`
	OwnerUserID    string     `gorm:"type:varchar(64)" json:"user_id"`
	Nodes          []FlowNode `gorm:"foreignKey:FlowID;constraint:OnDelete:CASCADE;" json:"nodes"`
	Edges          []FlowEdge `gorm:"foreignKey:FlowID;constraint:OnDelete:CASCADE;" json:"edges"`
	CreatedAt      time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Flow) TableName() string {
	return "flows"
}

type FlowNode struct {
	ID        uint    `gorm:"primaryKey" json:"-"`
	FlowID    string  `gorm:"index;type:varchar(64)" json:"flow_id"`
	Seq       int     `json:"seq"`
	NodeID    string  `gorm:"type:varchar(255)" json:"node_id"` // canvas node id
	Type      string  `gorm:"type:varchar(50)" json:"type"`
	PositionX float64 `json:"position_x"`
	PositionY float64 `json:"position_y"`
	Label     string  `gorm:"type:varchar(255)" json:"label"`
	Config    string  `gorm:"type:text" json:"config"` // config JSON
}

func (FlowNode) TableName() string {
	return "flow_nodes"
}

type FlowEdge struct {
	ID           uint   `gorm:"primaryKey" json:"-"`
	FlowID       string `gorm:"index;type:varchar(64)" json:"flow_id"`
	Seq          int    `json:"seq"`
	EdgeID       string `gorm:"type:varchar(255)" json:"edge_id"` // canvas edge id
	Source       string `gorm:"type:varchar(255)" json:"source"`
	Target       string `gorm:"type:varchar(255)" json:"target"`
	SourceHandle string `gorm:"type:varchar(255)" json:"source_handle"`
	TargetHandle string `gorm:"type:varchar(255)" json:"target_handle"`
	Label        string `gorm:"type:varchar(255)" json:"label"`
	Type         string `gorm:"type:varchar(50)" json:"type"`
}

func (FlowEdge) TableName() string {
	return "flow_edges"
}

// Reference is an entry of one of the agent, department, team or AI agent
// lists. Kind holds the blocks.Entity value.
type Reference struct {
	ID             string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrganizationID string    `gorm:"index:idx_reference_org_kind;type:varchar(64);not null" json:"organization_id"`
	Kind           string    `gorm:"index:idx_reference_org_kind;type:varchar(20);not null" json:"kind"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Reference) TableName() string {
	return "reference_items"
}

// Upload is a file attached to a node config. Token is what the config
// stores.
type Upload struct {
	Token          string    `gorm:"primaryKey;type:varchar(64)" json:"token"`
	OrganizationID string    `gorm:"index;type:varchar(64)" json:"organization_id"`
	Filename       string    `gorm:"type:varchar(255)" json:"filename"`
	MimeType       string    `gorm:"type:varchar(100)" json:"mime_type"`
	FileSize       int64     `json:"file_size"`
	Path           string    `gorm:"type:text" json:"-"`
	UploadedAt     time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
}

func (Upload) TableName() string {
	return "uploads"
}
