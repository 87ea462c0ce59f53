package engine

import (
	"fmt"
	"os"
	"time"

	"recstore/src/helpers"
)

// TableMetadata is the BSON document stored next to a table's record file.
// It carries everything needed to reopen the table after a restart.
type TableMetadata struct {
	TableID      string    `bson:"table_id"`
	Name         string    `bson:"name"`
	Schema       Schema    `bson:"schema"`
	NoScriptTags bool      `bson:"no_script_tags"`
	CreatedAt    time.Time `bson:"created_at"`
}

func SaveTableMetadata(path string, meta TableMetadata) error {
	data, err := helpers.EncodeBSON(meta)
	if err != nil {
		return fmt.Errorf("error encoding table metadata for %s: %w", meta.Name, err)
	}
	return helpers.WriteFileAtomic(path, data, 0644)
}

func LoadTableMetadata(path string) (TableMetadata, error) {
	var meta TableMetadata

	data, err := os.ReadFile(path)
	if err != nil {
		return meta, fmt.Errorf("error reading table metadata %s: %w", path, err)
	}
	if err := helpers.DecodeBSON(data, &meta); err != nil {
		return meta, fmt.Errorf("error decoding table metadata %s: %w", path, err)
	}
	return meta, nil
}
