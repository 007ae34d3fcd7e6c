package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"io"
	"log"
	"time"

	"veritas/internal/domain"
)

const defaultCacheTTL = 10 * time.Minute

type VerifyMediaRequest struct {
	Content   io.Reader
	Metadata  domain.CaptureMetadata
	Signature []byte
	PublicKey []byte
	Chain     [][]byte
	Challenge []byte
}

// VerifyMedia runs the full verification pipeline for one upload: content
// digest, canonical metadata digest, device signature check, then the
// optional attestation chain and acceptance policy. The trust snapshot is
// captured once at the start so a refresh mid-verification cannot change the
// anchors this run sees.
type VerifyMedia struct {
	Hasher    ContentHasher
	Metadata  MetadataHasher
	Signature SignatureVerifier
	Chain     ChainValidator
	Trust     TrustSource
	Policy    AcceptancePolicy
	Cache     VerificationCache
	CacheTTL  time.Duration
	Now       func() time.Time
}

func (uc *VerifyMedia) Execute(ctx context.Context, req VerifyMediaRequest) (domain.VerificationResult, domain.MediaDigest, error) {
	digest, err := uc.Hasher.Digest(req.Content)
	if err != nil {
		if errors.Is(err, domain.ErrFileTooLarge) {
			return unverified(domain.ReasonFileTooLarge), domain.MediaDigest{}, nil
		}
		return domain.VerificationResult{}, domain.MediaDigest{}, err
	}
	fingerprint := hex.EncodeToString(digest.RootHash)

	metadataHash, err := uc.Metadata.Digest(req.Metadata)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedMetadata) {
			return unverifiedWithFingerprint(domain.ReasonMalformedMetadata, fingerprint), digest, nil
		}
		return domain.VerificationResult{}, digest, err
	}

	snapshot := uc.currentSnapshot()
	cacheKey := uc.cacheKey(digest.RootHash, metadataHash, req, snapshot)
	if uc.Cache != nil {
		cached, ok, err := uc.Cache.Get(ctx, cacheKey)
		if err != nil {
			log.Printf("verify: cache get failed: %v", err)
		} else if ok {
			return *cached, digest, nil
		}
	}

	result, err := uc.verify(ctx, digest, metadataHash, req, snapshot)
	if err != nil {
		return domain.VerificationResult{}, digest, err
	}
	result.Fingerprint = fingerprint

	if uc.Cache != nil {
		ttl := uc.CacheTTL
		if ttl <= 0 {
			ttl = defaultCacheTTL
		}
		if err := uc.Cache.Put(ctx, cacheKey, result, ttl); err != nil {
			log.Printf("verify: cache put failed: %v", err)
		}
	}
	return result, digest, nil
}

func (uc *VerifyMedia) verify(ctx context.Context, digest domain.MediaDigest, metadataHash []byte, req VerifyMediaRequest, snapshot *domain.TrustSnapshot) (domain.VerificationResult, error) {
	ok, err := uc.Signature.Verify(req.PublicKey, req.Signature, digest.RootHash, metadataHash)
	if err != nil {
		if reason, mapped := signatureErrorReason(err); mapped {
			return unverified(reason), nil
		}
		return domain.VerificationResult{}, err
	}
	if !ok {
		return unverified(domain.ReasonSignatureInvalid), nil
	}

	result := domain.VerificationResult{Status: domain.StatusVerified}
	if len(req.Chain) > 0 {
		outcome := uc.Chain.ValidateChain(ctx, req.Chain, snapshot, req.PublicKey, req.Challenge)
		if !outcome.Accepted {
			return unverified(outcome.Reason), nil
		}
		result.HardwareBacked = outcome.HardwareBacked
	}

	if uc.Policy != nil {
		input := domain.PolicyInput{
			Status:          result.Status,
			Reason:          result.Reason,
			HardwareBacked:  result.HardwareBacked,
			ChainSupplied:   len(req.Chain) > 0,
			TrustScore:      TrustScore(req.Metadata.CaptureTime, uc.now()),
			SnapshotVersion: snapshot.Version,
		}
		policy, err := uc.Policy.Evaluate(ctx, input)
		if err != nil {
			return domain.VerificationResult{}, err
		}
		if !policy.Allow {
			return unverified(domain.ReasonPolicyDenied), nil
		}
	}
	return result, nil
}

func signatureErrorReason(err error) (domain.Reason, bool) {
	switch {
	case errors.Is(err, domain.ErrMalformedKey):
		return domain.ReasonMalformedKey, true
	case errors.Is(err, domain.ErrMalformedSignature):
		return domain.ReasonMalformedSignature, true
	case errors.Is(err, domain.ErrUnsupportedKeyType):
		return domain.ReasonUnsupportedKeyType, true
	}
	return domain.ReasonNone, false
}

func (uc *VerifyMedia) currentSnapshot() *domain.TrustSnapshot {
	if uc.Trust != nil {
		if snap := uc.Trust.Current(); snap != nil {
			return snap
		}
	}
	return &domain.TrustSnapshot{}
}

func (uc *VerifyMedia) now() time.Time {
	if uc.Now != nil {
		return uc.Now()
	}
	return time.Now()
}

// cacheKey is a digest of everything that can change the outcome, including
// the snapshot version so a trust refresh invalidates prior entries. Every
// field is length-delimited so no two requests share a key by splitting the
// same bytes differently.
func (uc *VerifyMedia) cacheKey(mediaHash, metadataHash []byte, req VerifyMediaRequest, snapshot *domain.TrustSnapshot) string {
	h := sha256.New()
	field := func(b []byte) {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(b)))
		h.Write(n[:])
		h.Write(b)
	}
	field(mediaHash)
	field(metadataHash)
	field(req.Signature)
	field(req.PublicKey)
	var count [8]byte
	binary.BigEndian.PutUint64(count[:], uint64(len(req.Chain)))
	h.Write(count[:])
	for _, cert := range req.Chain {
		field(cert)
	}
	field(req.Challenge)
	var version [8]byte
	binary.BigEndian.PutUint64(version[:], snapshot.Version)
	h.Write(version[:])
	return hex.EncodeToString(h.Sum(nil))
}

func unverified(reason domain.Reason) domain.VerificationResult {
	return domain.VerificationResult{Status: domain.StatusUnverified, Reason: reason}
}

func unverifiedWithFingerprint(reason domain.Reason, fingerprint string) domain.VerificationResult {
	result := unverified(reason)
	result.Fingerprint = fingerprint
	return result
}
