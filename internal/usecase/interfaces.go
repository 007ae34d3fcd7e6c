package usecase

import (
	"context"
	"io"
	"time"

	"veritas/internal/domain"
)

type ContentHasher interface {
	Digest(r io.Reader) (domain.MediaDigest, error)
}

type MetadataHasher interface {
	Digest(meta domain.CaptureMetadata) ([]byte, error)
}

type SignatureVerifier interface {
	Verify(publicKeyDER, signatureDER, mediaHash, metadataHash []byte) (bool, error)
}

// ChainValidator runs the attestation chain state machine against one trust
// snapshot.
type ChainValidator interface {
	ValidateChain(ctx context.Context, chain [][]byte, snapshot *domain.TrustSnapshot, signingKey, challenge []byte) domain.ChainOutcome
}

// TrustSource yields the current trust snapshot. The orchestrator captures
// one reference at the start of a verification and uses it throughout.
type TrustSource interface {
	Current() *domain.TrustSnapshot
}

type MediaRepository interface {
	Create(ctx context.Context, rec domain.MediaRecord) (domain.MediaRecord, error)
	FindByFingerprint(ctx context.Context, fingerprint string) ([]domain.MediaRecord, error)
	UpdateTrustScore(ctx context.Context, id string, score int) error
}

type VerificationCache interface {
	Get(ctx context.Context, key string) (*domain.VerificationResult, bool, error)
	Put(ctx context.Context, key string, value domain.VerificationResult, ttl time.Duration) error
}

// AcceptancePolicy gates an already-verified result. It can only narrow
// acceptance.
type AcceptancePolicy interface {
	Evaluate(ctx context.Context, input domain.PolicyInput) (domain.PolicyResult, error)
}
