package crypto

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"errors"
	"testing"

	"veritas/internal/domain"
)

func signPayload(t *testing.T, priv *ecdsa.PrivateKey, mediaHash, metadataHash []byte) []byte {
	t.Helper()
	payload := append(append([]byte(nil), mediaHash...), metadataHash...)
	digest := sha256.Sum256(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, priv, digest[:])
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return sig
}

func testKeypair(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	return priv, der
}

func TestVerifyValidSignature(t *testing.T) {
	priv, pubDER := testKeypair(t)
	mediaHash := sha256.Sum256([]byte("media bytes"))
	metadataHash := sha256.Sum256([]byte("canonical metadata"))
	sig := signPayload(t, priv, mediaHash[:], metadataHash[:])

	svc := NewService()
	ok, err := svc.Verify(pubDER, sig, mediaHash[:], metadataHash[:])
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected valid signature to verify")
	}
}

func TestVerifySingleBitFlips(t *testing.T) {
	priv, pubDER := testKeypair(t)
	mediaHash := sha256.Sum256([]byte("media bytes"))
	metadataHash := sha256.Sum256([]byte("canonical metadata"))
	sig := signPayload(t, priv, mediaHash[:], metadataHash[:])
	svc := NewService()

	flippedMedia := append([]byte(nil), mediaHash[:]...)
	flippedMedia[0] ^= 0x01
	if ok, err := svc.Verify(pubDER, sig, flippedMedia, metadataHash[:]); err != nil || ok {
		t.Fatalf("flipped media hash: ok=%v err=%v", ok, err)
	}

	flippedMeta := append([]byte(nil), metadataHash[:]...)
	flippedMeta[31] ^= 0x80
	if ok, err := svc.Verify(pubDER, sig, mediaHash[:], flippedMeta); err != nil || ok {
		t.Fatalf("flipped metadata hash: ok=%v err=%v", ok, err)
	}

	otherPriv, _ := testKeypair(t)
	otherSig := signPayload(t, otherPriv, mediaHash[:], metadataHash[:])
	if ok, err := svc.Verify(pubDER, otherSig, mediaHash[:], metadataHash[:]); err != nil || ok {
		t.Fatalf("wrong key signature: ok=%v err=%v", ok, err)
	}
}

func TestVerifyMalformedSignature(t *testing.T) {
	_, pubDER := testKeypair(t)
	mediaHash := sha256.Sum256([]byte("a"))
	metadataHash := sha256.Sum256([]byte("b"))
	svc := NewService()

	for _, sig := range [][]byte{nil, {0x30}, {0xde, 0xad, 0xbe, 0xef}} {
		if _, err := svc.Verify(pubDER, sig, mediaHash[:], metadataHash[:]); !errors.Is(err, domain.ErrMalformedSignature) {
			t.Fatalf("expected ErrMalformedSignature for %x, got %v", sig, err)
		}
	}
}

func TestVerifyTrailingSignatureBytes(t *testing.T) {
	priv, pubDER := testKeypair(t)
	mediaHash := sha256.Sum256([]byte("a"))
	metadataHash := sha256.Sum256([]byte("b"))
	sig := signPayload(t, priv, mediaHash[:], metadataHash[:])
	sig = append(sig, 0x00)

	svc := NewService()
	if _, err := svc.Verify(pubDER, sig, mediaHash[:], metadataHash[:]); !errors.Is(err, domain.ErrMalformedSignature) {
		t.Fatalf("expected ErrMalformedSignature, got %v", err)
	}
}

func TestParsePublicKeyRejectsMalformed(t *testing.T) {
	if _, err := ParsePublicKey([]byte{0x01, 0x02}); !errors.Is(err, domain.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
	if _, err := ParsePublicKey(nil); !errors.Is(err, domain.ErrMalformedKey) {
		t.Fatalf("expected ErrMalformedKey, got %v", err)
	}
}

func TestParsePublicKeyRejectsUnsupportedTypes(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate rsa key: %v", err)
	}
	rsaDER, err := x509.MarshalPKIXPublicKey(&rsaKey.PublicKey)
	if err != nil {
		t.Fatalf("marshal rsa key: %v", err)
	}
	if _, err := ParsePublicKey(rsaDER); !errors.Is(err, domain.ErrUnsupportedKeyType) {
		t.Fatalf("expected ErrUnsupportedKeyType for rsa, got %v", err)
	}

	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("generate p384 key: %v", err)
	}
	p384DER, err := x509.MarshalPKIXPublicKey(&p384.PublicKey)
	if err != nil {
		t.Fatalf("marshal p384 key: %v", err)
	}
	if _, err := ParsePublicKey(p384DER); !errors.Is(err, domain.ErrUnsupportedKeyType) {
		t.Fatalf("expected ErrUnsupportedKeyType for p384, got %v", err)
	}
}
