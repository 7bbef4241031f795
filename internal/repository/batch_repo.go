package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/marco/formflow/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BatchRepository persists batch history records.
type BatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *BatchRepository: repository instance bound to db.
func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Record inserts or updates a batch trace keyed by batch id.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - record: batch record to persist; ID is assigned if empty.
// Returns:
//   - error: non-nil if the upsert fails.
func (r *BatchRepository) Record(ctx context.Context, record *domain.BatchRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "batch_id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// GetByBatchID retrieves one batch record.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - batchID: backend-assigned batch identifier.
// Returns:
//   - *domain.BatchRecord: record if found.
//   - error: non-nil if lookup fails.
func (r *BatchRepository) GetByBatchID(ctx context.Context, batchID string) (*domain.BatchRecord, error) {
	var record domain.BatchRecord
	if err := r.db.WithContext(ctx).First(&record, "batch_id = ?", batchID).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// List returns recent batch records, newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum records to return; <=0 uses 50.
// Returns:
//   - []domain.BatchRecord: matching records.
//   - error: non-nil if the query fails.
func (r *BatchRepository) List(ctx context.Context, limit int) ([]domain.BatchRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []domain.BatchRecord
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	return records, err
}
