package db

import (
	"context"
	"errors"
	"time"

	"veritas/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type MediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) *MediaRepository {
	return &MediaRepository{db: db}
}

func (r *MediaRepository) Create(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	if r.db == nil {
		return domain.MediaRecord{}, errDBUnavailable
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	model := mediaRecordToModel(rec)
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.MediaRecord{}, err
	}
	return rec, nil
}

func (r *MediaRepository) UpdateTrustScore(ctx context.Context, id string, score int) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Model(&MediaRecordModel{}).
		Where("id = ?", id).
		Update("trust_score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FindByFingerprint returns records for one content root hash, newest first.
func (r *MediaRepository) FindByFingerprint(ctx context.Context, fingerprint string) ([]domain.MediaRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []MediaRecordModel
	err := r.db.WithContext(ctx).
		Where("fingerprint = ?", fingerprint).
		Order("created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	records := make([]domain.MediaRecord, 0, len(models))
	for _, m := range models {
		records = append(records, mediaRecordFromModel(m))
	}
	return records, nil
}

func mediaRecordToModel(rec domain.MediaRecord) MediaRecordModel {
	return MediaRecordModel{
		ID:             rec.ID,
		Fingerprint:    rec.Fingerprint,
		Status:         string(rec.Status),
		Reason:         string(rec.Reason),
		HardwareBacked: rec.HardwareBacked,
		TrustScore:     rec.TrustScore,
		CaptureTime:    rec.CaptureTime,
		UploadTime:     rec.UploadTime,
		Latitude:       rec.Latitude,
		Longitude:      rec.Longitude,
		Azimuth:        rec.Azimuth,
		Pitch:          rec.Pitch,
		Roll:           rec.Roll,
		CreatedAt:      rec.CreatedAt,
	}
}

func mediaRecordFromModel(m MediaRecordModel) domain.MediaRecord {
	return domain.MediaRecord{
		ID:             m.ID,
		Fingerprint:    m.Fingerprint,
		Status:         domain.VerificationStatus(m.Status),
		Reason:         domain.Reason(m.Reason),
		HardwareBacked: m.HardwareBacked,
		TrustScore:     m.TrustScore,
		CaptureTime:    m.CaptureTime,
		UploadTime:     m.UploadTime,
		Latitude:       m.Latitude,
		Longitude:      m.Longitude,
		Azimuth:        m.Azimuth,
		Pitch:          m.Pitch,
		Roll:           m.Roll,
		CreatedAt:      m.CreatedAt,
	}
}
