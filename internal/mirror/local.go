package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/JoaChP/talentbridge-backend/internal/store"
)

// documentKey is the single key under which the snapshot lives.
const documentKey = "talentbridge-snapshot"

type snapshotDocument struct {
	Key              string         `gorm:"column:key;primaryKey;size:190;not null"`
	Document         datatypes.JSON `gorm:"column:document;not null"`
	UpdatedAtSeconds int64          `gorm:"column:updated_at_s;not null"`
}

func (snapshotDocument) TableName() string {
	return "snapshot_documents"
}

// LocalMirror persists the snapshot synchronously in a device-local
// SQLite database under a single key.
type LocalMirror struct {
	db     *gorm.DB
	logger *zap.Logger
}

// OpenLocal establishes the SQLite connection and performs schema
// migration.
func OpenLocal(path string, logger *zap.Logger) (*LocalMirror, error) {
	if path == "" {
		return nil, fmt.Errorf("mirror: database path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&snapshotDocument{}); err != nil {
		return nil, err
	}

	logger.Info("local mirror initialized", zap.String("path", path))
	return &LocalMirror{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (m *LocalMirror) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Load reads the stored snapshot. The second return is false when no
// document has ever been written.
func (m *LocalMirror) Load(ctx context.Context) (store.Snapshot, bool, error) {
	var record snapshotDocument
	err := m.db.WithContext(ctx).Where("key = ?", documentKey).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(record.Document, &snapshot); err != nil {
		return store.Snapshot{}, false, err
	}
	return snapshot, true, nil
}

// Save writes the snapshot under the fixed key, replacing any previous
// document.
func (m *LocalMirror) Save(ctx context.Context, snapshot store.Snapshot, updatedAt int64) error {
	document, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}
	record := snapshotDocument{
		Key:              documentKey,
		Document:         datatypes.JSON(document),
		UpdatedAtSeconds: updatedAt,
	}
	return m.db.WithContext(ctx).Save(&record).Error
}
