package domain

import "time"

// BatchRecord is the persisted trace of one successful submission, kept
// for the history listing. One row per batch.
type BatchRecord struct {
	ID           string       `gorm:"type:text;primaryKey" json:"id"`
	BatchID      string       `gorm:"type:text;not null;uniqueIndex:idx_batches_batch_id" json:"batch_id"`
	TemplateID   string       `gorm:"type:text;not null;index:idx_batches_template" json:"template_id"`
	TemplateName string       `gorm:"type:text" json:"template_name"`
	TemplateType TemplateType `gorm:"type:text" json:"template_type"`
	DatasetName  string       `gorm:"type:text" json:"dataset_name"`
	RowCount     int          `gorm:"default:0" json:"row_count"`
	SuccessCount int          `gorm:"default:0" json:"success_count"`
	SuccessRate  string       `gorm:"type:text" json:"success_rate"`
	FileCount    int          `gorm:"default:0" json:"file_count"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// TableName returns the database table name for BatchRecord.
func (BatchRecord) TableName() string {
	return "batches"
}
