package usecase

import (
	"context"
	"testing"
	"time"

	"veritas/internal/domain"

	"github.com/google/uuid"
)

type fakeMediaRepo struct {
	created []domain.MediaRecord
}

func (r *fakeMediaRepo) Create(_ context.Context, rec domain.MediaRecord) (domain.MediaRecord, error) {
	rec.ID = uuid.NewString()
	r.created = append(r.created, rec)
	return rec, nil
}

func (r *fakeMediaRepo) FindByFingerprint(_ context.Context, fingerprint string) ([]domain.MediaRecord, error) {
	var out []domain.MediaRecord
	for _, rec := range r.created {
		if rec.Fingerprint == fingerprint {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeMediaRepo) UpdateTrustScore(_ context.Context, id string, score int) error {
	for i := range r.created {
		if r.created[i].ID == id {
			r.created[i].TrustScore = score
			return nil
		}
	}
	return domain.ErrNotFound
}

func TestRecordMediaPersistsOutcomeWithTrustScore(t *testing.T) {
	repo := &fakeMediaRepo{}
	capture := time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)
	upload := capture.Add(15 * time.Minute)
	uc := &RecordMedia{Repo: repo, Now: func() time.Time { return upload }}

	result := domain.VerificationResult{
		Status:         domain.StatusVerified,
		HardwareBacked: true,
		Fingerprint:    "abc123",
	}
	meta := domain.CaptureMetadata{CaptureTime: capture, Latitude: 1.5, Longitude: 2.5}

	rec, err := uc.Execute(context.Background(), result, meta)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rec == nil || rec.ID == "" {
		t.Fatal("expected a persisted record with an ID")
	}
	if rec.TrustScore != 85 {
		t.Fatalf("trust score = %d, want 85", rec.TrustScore)
	}
	if rec.Status != domain.StatusVerified || !rec.HardwareBacked {
		t.Fatalf("record does not carry the verification outcome: %+v", rec)
	}

	found, err := repo.FindByFingerprint(context.Background(), "abc123")
	if err != nil || len(found) != 1 {
		t.Fatalf("FindByFingerprint: %v, %d records", err, len(found))
	}
}

func TestRecordMediaResubmission(t *testing.T) {
	repo := &fakeMediaRepo{}
	capture := time.Date(2025, 8, 14, 12, 0, 0, 0, time.UTC)
	result := domain.VerificationResult{Status: domain.StatusVerified, Fingerprint: "abc123"}
	meta := domain.CaptureMetadata{CaptureTime: capture, Latitude: 1.5, Longitude: 2.5}

	uc := &RecordMedia{Repo: repo, Now: func() time.Time { return capture.Add(30 * time.Minute) }}
	first, err := uc.Execute(context.Background(), result, meta)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if first.TrustScore != 70 {
		t.Fatalf("trust score = %d, want 70", first.TrustScore)
	}

	// A later re-upload of the same bytes never lowers the score.
	uc.Now = func() time.Time { return capture.Add(2 * time.Hour) }
	later, err := uc.Execute(context.Background(), result, meta)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if later.ID != first.ID || later.TrustScore != 70 {
		t.Fatalf("re-upload record = %+v, want id %s score 70", later, first.ID)
	}

	// An earlier-seen copy of the same capture raises it.
	uc.Now = func() time.Time { return capture.Add(10 * time.Minute) }
	sooner, err := uc.Execute(context.Background(), result, meta)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if sooner.ID != first.ID || sooner.TrustScore != 90 {
		t.Fatalf("rescored record = %+v, want id %s score 90", sooner, first.ID)
	}
	if len(repo.created) != 1 {
		t.Fatalf("repo rows = %d, want 1", len(repo.created))
	}

	// A different outcome for the same bytes is a new row.
	uc.Now = func() time.Time { return capture.Add(30 * time.Minute) }
	hw := result
	hw.HardwareBacked = true
	other, err := uc.Execute(context.Background(), hw, meta)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if other.ID == first.ID || len(repo.created) != 2 {
		t.Fatalf("expected a second row, got id %s rows %d", other.ID, len(repo.created))
	}
}

func TestRecordMediaNoDBMode(t *testing.T) {
	uc := &RecordMedia{}
	rec, err := uc.Execute(context.Background(), domain.VerificationResult{}, domain.CaptureMetadata{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if rec != nil {
		t.Fatal("no-db mode must not produce a record")
	}
}
