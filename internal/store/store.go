// Package store persists flows, reference lists and uploads with gorm.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"whatsapp-flow-editor/internal/flow"
	"whatsapp-flow-editor/internal/models"
)

var ErrNotFound = errors.New("not found")

// ActiveConflictError is returned when activating a flow would leave two
// active flows on the same channel of an organization.
type ActiveConflictError struct {
	Channel    string
	ActiveName string
}

func (e *ActiveConflictError) Error() string {
	return fmt.Sprintf("Já existe um fluxo ativo para o canal %s: %s", e.Channel, e.ActiveName)
}

type FlowStore struct {
	db    *gorm.DB
	newID func() string
}

func New(db *gorm.DB) *FlowStore {
	return &FlowStore{db: db, newID: uuid.NewString}
}

func bySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// List returns the flows of an organization, oldest first. An empty
// organizationID lists every flow.
func (s *FlowStore) List(ctx context.Context, organizationID string) ([]flow.Flow, error) {
	q := s.db.WithContext(ctx).
		Preload("Nodes", bySeq).
		Preload("Edges", bySeq).
		Order("created_at ASC, id ASC")
	if organizationID != "" {
		q = q.Where("organization_id = ?", organizationID)
	}

	var rows []models.Flow
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]flow.Flow, 0, len(rows))
	for _, r := range rows {
		f, err := toFlow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, nil
}

func (s *FlowStore) Get(ctx context.Context, id string) (*flow.Flow, error) {
	var row models.Flow
	err := s.db.WithContext(ctx).
		Preload("Nodes", bySeq).
		Preload("Edges", bySeq).
		First(&row, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toFlow(row)
}

// Save creates the flow when it has no id and otherwise replaces the stored
// flow, nodes and edges included. It returns the stored flow.
func (s *FlowStore) Save(ctx context.Context, f *flow.Flow) (*flow.Flow, error) {
	saved := f.Clone()
	if saved.ID == "" {
		saved.ID = s.newID()
	}
	saved.Edges = flow.DedupEdges(saved.Edges)
	row, err := fromFlow(saved)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if saved.Active {
			if err := checkActive(tx, saved.OrganizationID, saved.Channel, saved.ID); err != nil {
				return err
			}
		}

		var existing models.Flow
		err := tx.Select("id", "created_at").First(&existing, "id = ?", saved.ID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if f.ID != "" {
				return ErrNotFound
			}
			if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			row.CreatedAt = existing.CreatedAt
			if err := tx.Omit(clause.Associations).Save(&row).Error; err != nil {
				return err
			}
		}

		if err := tx.Where("flow_id = ?", saved.ID).Delete(&models.FlowNode{}).Error; err != nil {
			return err
		}
		if err := tx.Where("flow_id = ?", saved.ID).Delete(&models.FlowEdge{}).Error; err != nil {
			return err
		}
		if len(row.Nodes) > 0 {
			if err := tx.Create(&row.Nodes).Error; err != nil {
				return err
			}
		}
		if len(row.Edges) > 0 {
			if err := tx.Create(&row.Edges).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func checkActive(tx *gorm.DB, organizationID, channel, id string) error {
	var other models.Flow
	err := tx.Select("id", "name").
		Where("organization_id = ? AND channel = ? AND active = ? AND id <> ?", organizationID, channel, true, id).
		First(&other).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return &ActiveConflictError{Channel: channel, ActiveName: other.Name}
}

// SetActive activates or deactivates a flow under the single-active rule.
func (s *FlowStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row models.Flow
		err := tx.Select("id", "organization_id", "channel").First(&row, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if active {
			if err := checkActive(tx, row.OrganizationID, row.Channel, id); err != nil {
				return err
			}
		}
		return tx.Model(&models.Flow{}).Where("id = ?", id).Update("active", active).Error
	})
}

// Delete removes a flow with its nodes and edges.
func (s *FlowStore) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&models.Flow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("flow_id = ?", id).Delete(&models.FlowNode{}).Error; err != nil {
			return err
		}
		return tx.Where("flow_id = ?", id).Delete(&models.FlowEdge{}).Error
	})
}

// ListReferences returns one reference list of an organization by name.
func (s *FlowStore) ListReferences(ctx context.Context, kind, organizationID string) ([]models.Reference, error) {
	var refs []models.Reference
	err := s.db.WithContext(ctx).
		Where("kind = ? AND organization_id = ?", kind, organizationID).
		Order("name ASC").
		Find(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *FlowStore) CreateReference(ctx context.Context, ref *models.Reference) error {
	if ref.ID == "" {
		ref.ID = s.newID()
	}
	return s.db.WithContext(ctx).Create(ref).Error
}

func (s *FlowStore) DeleteReference(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reference{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *FlowStore) CreateUpload(ctx context.Context, up *models.Upload) error {
	if up.Token == "" {
		up.Token = s.newID()
	}
	return s.db.WithContext(ctx).Create(up).Error
}

func (s *FlowStore) GetUpload(ctx context.Context, token string) (*models.Upload, error) {
	var up models.Upload
	err := s.db.WithContext(ctx).First(&up, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &up, nil
}

func fromFlow(f *flow.Flow) (models.Flow, error) {
	row := models.Flow{
		ID:             f.ID,
		OrganizationID: f.OrganizationID,
		Name:           f.Name,
		Description:    f.Description,
		Channel:        f.Channel,
		Active:         f.Active,
		OwnerUserID:    f.OwnerUserID,
		Nodes:          make([]models.FlowNode, len(f.Nodes)),
		Edges:          make([]models.FlowEdge, len(f.Edges)),
	}
	for i, n := range f.Nodes {
		cfg := n.Data.Config
		if cfg == nil {
			cfg = flow.Config{}
		}
		configJSON, err := json.Marshal(cfg)
		if err != nil {
			return models.Flow{}, fmt.Errorf("node %s config: %w", n.ID, err)
		}
		row.Nodes[i] = models.FlowNode{
			FlowID:    f.ID,
			Seq:       i,
			NodeID:    n.ID,
			Type:      n.Type,
			PositionX: n.Position.X,
			PositionY: n.Position.Y,
			Label:     n.Data.Label,
			Config:    string(configJSON),
		}
	}
	for i, e := range f.Edges {
		row.Edges[i] = models.FlowEdge{
			FlowID:       f.ID,
			Seq:          i,
			EdgeID:       e.ID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
			Type:         e.Type,
		}
	}
	return row, nil
}

func toFlow(row models.Flow) (*flow.Flow, error) {
	f := &flow.Flow{
		ID:             row.ID,
		Name:           row.Name,
		Description:    row.Description,
		Active:         row.Active,
		Channel:        row.Channel,
		OrganizationID: row.OrganizationID,
		OwnerUserID:    row.OwnerUserID,
		Nodes:          make([]flow.Node, len(row.Nodes)),
		Edges:          make([]flow.Edge, len(row.Edges)),
	}
	for i, n := range row.Nodes {
		cfg := flow.Config{}
		if n.Config != "" {
			if err := json.Unmarshal([]byte(n.Config), &cfg); err != nil {
				return nil, fmt.Errorf("flow %s node %s config: %w", row.ID, n.NodeID, err)
			}
		}
		f.Nodes[i] = flow.Node{
			ID:       n.NodeID,
			Type:     n.Type,
			Position: flow.Position{X: n.PositionX, Y: n.PositionY},
			Data:     flow.NodeData{Label: n.Label, Config: cfg},
		}
	}
	for i, e := range row.Edges {
		f.Edges[i] = flow.Edge{
			ID:           e.EdgeID,
			Source:       e.Source,
			Target:       e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
			Label:        e.Label,
			Type:         e.Type,
		}
	}
	return f, nil
}
