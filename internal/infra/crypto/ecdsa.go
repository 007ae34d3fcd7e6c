// Package crypto verifies device signatures over the fixed 64-byte payload
// media_hash || metadata_hash. The engine accepts exactly one curve/digest
// combination, NIST P-256 with SHA-256 and DER-encoded signatures; there is
// no negotiation path.
package crypto

import (
	stdecdsa "crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/x509"
	"encoding/asn1"
	"fmt"
	"math/big"

	"veritas/internal/domain"
)

const PayloadSize = 2 * sha256.Size

type ecdsaSignature struct {
	R, S *big.Int
}

// ParsePublicKey strictly decodes a DER SPKI public key and requires it to be
// an ECDSA key on P-256.
func ParsePublicKey(der []byte) (*stdecdsa.PublicKey, error) {
	if len(der) == 0 {
		return nil, fmt.Errorf("empty public key: %w", domain.ErrMalformedKey)
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %v: %w", err, domain.ErrMalformedKey)
	}
	pub, ok := parsed.(*stdecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T: %w", parsed, domain.ErrUnsupportedKeyType)
	}
	if pub.Curve != elliptic.P256() {
		return nil, fmt.Errorf("curve %s: %w", pub.Curve.Params().Name, domain.ErrUnsupportedKeyType)
	}
	return pub, nil
}

// ParseSignature strictly decodes a DER ECDSA signature. Trailing bytes and
// non-positive components are rejected.
func ParseSignature(der []byte) (r, s *big.Int, err error) {
	if len(der) == 0 {
		return nil, nil, fmt.Errorf("empty signature: %w", domain.ErrMalformedSignature)
	}
	var sig ecdsaSignature
	rest, err := asn1.Unmarshal(der, &sig)
	if err != nil {
		return nil, nil, fmt.Errorf("parse signature: %v: %w", err, domain.ErrMalformedSignature)
	}
	if len(rest) != 0 {
		return nil, nil, fmt.Errorf("trailing signature bytes: %w", domain.ErrMalformedSignature)
	}
	if sig.R == nil || sig.S == nil || sig.R.Sign() <= 0 || sig.S.Sign() <= 0 {
		return nil, nil, fmt.Errorf("non-positive signature component: %w", domain.ErrMalformedSignature)
	}
	return sig.R, sig.S, nil
}

// Service implements signature verification for the orchestrator.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Verify checks signatureDER over mediaHash || metadataHash under the DER
// SPKI key. Malformed encodings return a typed error; a well-formed
// signature that simply does not verify returns (false, nil), never a panic.
func (s *Service) Verify(publicKeyDER, signatureDER, mediaHash, metadataHash []byte) (bool, error) {
	if len(mediaHash) != sha256.Size || len(metadataHash) != sha256.Size {
		return false, fmt.Errorf("payload hashes must be %d bytes", sha256.Size)
	}
	pub, err := ParsePublicKey(publicKeyDER)
	if err != nil {
		return false, err
	}
	r, sc, err := ParseSignature(signatureDER)
	if err != nil {
		return false, err
	}

	payload := make([]byte, 0, PayloadSize)
	payload = append(payload, mediaHash...)
	payload = append(payload, metadataHash...)
	digest := sha256.Sum256(payload)
	return stdecdsa.Verify(pub, digest[:], r, sc), nil
}
