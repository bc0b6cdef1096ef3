package repository

import (
	"gorm.io/gorm"

	"github.com/khotba/khotba_server/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(analysis *model.Analysis) error {
	return r.db.Create(analysis).Error
}

func (r *AnalysisRepository) GetByID(id string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.Where("id = ?", id).First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// List returns one page of records, newest first, and the total count.
func (r *AnalysisRepository) List(page, limit int) ([]*model.Analysis, int64, error) {
	var analyses []*model.Analysis
	var total int64

	query := r.db.Model(&model.Analysis{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&analyses).Error; err != nil {
		return nil, 0, err
	}

	return analyses, total, nil
}

// UpdateFields writes only the given columns. Timelines are normalized before writing.
func (r *AnalysisRepository) UpdateFields(id string, fields map[string]interface{}) error {
	if segs, ok := fields["segments_json"].(model.SegmentTimeline); ok {
		normalized := model.SegmentTimeline{}
		for lang, s := range segs {
			normalized.Set(lang, s)
		}
		fields["segments_json"] = normalized
	}

	result := r.db.Model(&model.Analysis{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *AnalysisRepository) Delete(id string) error {
	result := r.db.Where("id = ?", id).Delete(&model.Analysis{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ExistingIDs filters ids down to those that still have a record.
func (r *AnalysisRepository) ExistingIDs(ids []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}
	var found []string
	if err := r.db.Model(&model.Analysis{}).Where("id IN ?", ids).Pluck("id", &found).Error; err != nil {
		return nil, err
	}
	for _, id := range found {
		existing[id] = true
	}
	return existing, nil
}

// ReferencedUploadIDs lists every upload id still referenced by a record.
func (r *AnalysisRepository) ReferencedUploadIDs() (map[string]bool, error) {
	var ids []string
	err := r.db.Model(&model.Analysis{}).
		Where("upload_id <> ?", "").
		Distinct().Pluck("upload_id", &ids).Error
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(ids))
	for _, id := range ids {
		refs[id] = true
	}
	return refs, nil
}

// CountByUploadID counts the records built from one upload.
func (r *AnalysisRepository) CountByUploadID(uploadID string) (int64, error) {
	var count int64
	err := r.db.Model(&model.Analysis{}).Where("upload_id = ?", uploadID).Count(&count).Error
	return count, err
}
