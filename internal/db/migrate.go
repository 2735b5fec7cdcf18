package db

import (
	"fmt"

	"gorm.io/gorm"
)

type MigrateOptions struct {
	// VectorLists is the ivfflat "lists" parameter; <= 0 skips the ANN index.
	VectorLists int
}

// Migrate creates or updates all tables.
//
// On PostgreSQL it also installs the pgvector extension before the tables
// (the embedding column depends on it) and builds the ANN index afterwards.
func Migrate(db *gorm.DB, opts MigrateOptions) error {
	if IsPostgres(db) {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
			return fmt.Errorf("failed to create vector extension: %w", err)
		}
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return err
	}

	if IsPostgres(db) && opts.VectorLists > 0 {
		stmt := fmt.Sprintf(`
			CREATE INDEX IF NOT EXISTS idx_profiles_embedding
			ON profiles
			USING ivfflat (embedding vector_cosine_ops)
			WITH (lists = %d)`, opts.VectorLists)
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create embedding index: %w", err)
		}
	}

	return nil
}
