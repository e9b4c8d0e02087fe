package database

import (
	"fmt"
	"log"

	"whatsapp-flow-editor/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CopyAll copies every table from src into dst, one transaction per table.
// It is used to move a development sqlite database into postgres.
func CopyAll(src, dst *gorm.DB) error {
	steps := []struct {
		table string
		rows  any
	}{
		{"flows", &[]models.Flow{}},
		{"flow_nodes", &[]models.FlowNode{}},
		{"flow_edges", &[]models.FlowEdge{}},
		{"reference_items", &[]models.Reference{}},
		{"uploads", &[]models.Upload{}},
	}

	for _, s := range steps {
		log.Printf("Migrating table: %s", s.table)
		if err := copyTable(src, dst, s.rows); err != nil {
			return fmt.Errorf("migrate %s: %w", s.table, err)
		}
		log.Printf("Successfully migrated %s", s.table)
	}
	return nil
}

func copyTable(src, dst *gorm.DB, rows any) error {
	res := src.Find(rows)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return nil
	}
	// Flows must not re-insert their nodes and edges; those tables follow.
	return dst.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).CreateInBatches(rows, 200).Error
	})
}

// SequenceTables have serial ids that must be resynced after a copy.
var SequenceTables = []string{"flow_nodes", "flow_edges"}

// SyncSequences moves each postgres serial sequence past the current max id.
func SyncSequences(db *gorm.DB) error {
	var failed []string
	for _, table := range SequenceTables {
		query := "SELECT setval(pg_get_serial_sequence('" + table + "', 'id'), coalesce(max(id), 0) + 1, false) FROM " + table
		if err := db.Exec(query).Error; err != nil {
			log.Printf("Error syncing sequence for %s: %v", table, err)
			failed = append(failed, table)
		} else {
			log.Printf("Successfully synced sequence for %s", table)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("sequence sync failed for %v", failed)
	}
	return nil
}
