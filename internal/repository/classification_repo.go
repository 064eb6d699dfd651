package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/email-classifier-api/internal/models"
)

// ErrRecordNotFound is returned when a classification record does not exist.
var ErrRecordNotFound = errors.New("classification record not found")

// ClassificationFilter narrows history queries.
type ClassificationFilter struct {
	Page     int
	PageSize int
	Category string
}

// ClassificationRepository persists classification audit records.
type ClassificationRepository interface {
	Create(ctx context.Context, record *models.ClassificationRecord) error
	GetByReference(ctx context.Context, referenceID string) (models.ClassificationRecord, error)
	List(ctx context.Context, filter ClassificationFilter) ([]models.ClassificationRecord, int64, error)
	CountByCategory(ctx context.Context) (map[string]int64, error)
}

type classificationRepository struct {
	db *gorm.DB
}

// NewClassificationRepository constructs a repository backed by GORM.
func NewClassificationRepository(db *gorm.DB) ClassificationRepository {
	return &classificationRepository{db: db}
}

func (r *classificationRepository) Create(ctx context.Context, record *models.ClassificationRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *classificationRepository) GetByReference(ctx context.Context, referenceID string) (models.ClassificationRecord, error) {
	var record models.ClassificationRecord
	err := r.db.WithContext(ctx).Where("reference_id = ?", referenceID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ClassificationRecord{}, ErrRecordNotFound
	}
	return record, err
}

func (r *classificationRepository) List(ctx context.Context, filter ClassificationFilter) ([]models.ClassificationRecord, int64, error) {
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	query := r.db.WithContext(ctx).Model(&models.ClassificationRecord{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.ClassificationRecord
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *classificationRepository) CountByCategory(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Category string
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.ClassificationRecord{}).
		Select("category, COUNT(*) AS total").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Category] = row.Total
	}
	return out, nil
}
