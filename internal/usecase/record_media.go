package usecase

import (
	"context"
	"time"

	"veritas/internal/domain"
)

// RecordMedia persists the outcome of one verification together with its
// trust score. Repo may be nil in no-db mode, in which case recording is a
// no-op. Re-submitting the same bytes with the same outcome does not create a
// duplicate row: the existing record is returned, rescored upward if the new
// submission demonstrates a shorter capture-to-upload gap.
type RecordMedia struct {
	Repo MediaRepository
	Now  func() time.Time
}

func (uc *RecordMedia) Execute(ctx context.Context, result domain.VerificationResult, meta domain.CaptureMetadata) (*domain.MediaRecord, error) {
	if uc.Repo == nil {
		return nil, nil
	}
	now := time.Now().UTC()
	if uc.Now != nil {
		now = uc.Now()
	}
	score := TrustScore(meta.CaptureTime, now)
	if result.Fingerprint != "" {
		existing, err := uc.Repo.FindByFingerprint(ctx, result.Fingerprint)
		if err != nil {
			return nil, err
		}
		for i := range existing {
			prev := &existing[i]
			if prev.Status != result.Status || prev.HardwareBacked != result.HardwareBacked {
				continue
			}
			if score > prev.TrustScore {
				if err := uc.Repo.UpdateTrustScore(ctx, prev.ID, score); err != nil {
					return nil, err
				}
				prev.TrustScore = score
			}
			return prev, nil
		}
	}
	rec := domain.MediaRecord{
		Fingerprint:    result.Fingerprint,
		Status:         result.Status,
		Reason:         result.Reason,
		HardwareBacked: result.HardwareBacked,
		TrustScore:     score,
		CaptureTime:    meta.CaptureTime,
		UploadTime:     now,
		Latitude:       meta.Latitude,
		Longitude:      meta.Longitude,
		Azimuth:        meta.Azimuth,
		Pitch:          meta.Pitch,
		Roll:           meta.Roll,
	}
	created, err := uc.Repo.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return &created, nil
}
