// Package attesttest builds throwaway attestation chains for tests.
package attesttest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"

	"veritas/internal/domain"
)

var keyAttestationOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 1, 17}

type keyDescriptionASN1 struct {
	AttestationVersion       int
	AttestationSecurityLevel asn1.Enumerated
	KeymasterVersion         int
	KeymasterSecurityLevel   asn1.Enumerated
	AttestationChallenge     []byte
	UniqueID                 []byte
	SoftwareEnforced         asn1.RawValue
	TEEEnforced              asn1.RawValue
}

// CA is a certificate authority usable for signing children.
type CA struct {
	Cert *x509.Certificate
	DER  []byte
	Key  *ecdsa.PrivateKey
}

// Chain is a complete leaf-first attestation chain with its signing keypair.
type Chain struct {
	Root         *CA
	Intermediate *CA
	LeafDER      []byte
	LeafKey      *ecdsa.PrivateKey
	LeafKeyDER   []byte
}

// ChainOptions controls the generated chain shape.
type ChainOptions struct {
	Challenge           []byte
	SecurityLevel       int
	OmitExtension       bool
	NotBefore           time.Time
	NotAfter            time.Time
	IntermediateExpired bool
}

func mustKey() *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("attesttest: generate key: %v", err))
	}
	return key
}

func serial() *big.Int {
	s, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
	if err != nil {
		panic(fmt.Sprintf("attesttest: serial: %v", err))
	}
	return s
}

// NewCA creates a self-signed CA certificate.
func NewCA(commonName string, notBefore, notAfter time.Time) *CA {
	key := mustKey()
	template := &x509.Certificate{
		SerialNumber:          serial(),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		panic(fmt.Sprintf("attesttest: create ca: %v", err))
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(fmt.Sprintf("attesttest: parse ca: %v", err))
	}
	return &CA{Cert: cert, DER: der, Key: key}
}

// NewChildCA issues an intermediate CA under parent.
func NewChildCA(parent *CA, commonName string, notBefore, notAfter time.Time) *CA {
	key := mustKey()
	template := &x509.Certificate{
		SerialNumber:          serial(),
		Subject:               pkix.Name{CommonName: commonName},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent.Cert, &key.PublicKey, parent.Key)
	if err != nil {
		panic(fmt.Sprintf("attesttest: create child ca: %v", err))
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(fmt.Sprintf("attesttest: parse child ca: %v", err))
	}
	return &CA{Cert: cert, DER: der, Key: key}
}

// AttestationExtensionValue encodes a key attestation record.
func AttestationExtensionValue(challenge []byte, securityLevel int) []byte {
	emptyList := asn1.RawValue{Class: asn1.ClassUniversal, Tag: asn1.TagSequence, IsCompound: true}
	value, err := asn1.Marshal(keyDescriptionASN1{
		AttestationVersion:       4,
		AttestationSecurityLevel: asn1.Enumerated(securityLevel),
		KeymasterVersion:         41,
		KeymasterSecurityLevel:   asn1.Enumerated(securityLevel),
		AttestationChallenge:     challenge,
		UniqueID:                 []byte{},
		SoftwareEnforced:         emptyList,
		TEEEnforced:              emptyList,
	})
	if err != nil {
		panic(fmt.Sprintf("attesttest: marshal key description: %v", err))
	}
	return value
}

// NewChain builds root -> intermediate -> leaf with the leaf carrying a key
// attestation extension (unless omitted).
func NewChain(opts ChainOptions) *Chain {
	now := time.Now()
	notBefore := opts.NotBefore
	if notBefore.IsZero() {
		notBefore = now.Add(-time.Hour)
	}
	notAfter := opts.NotAfter
	if notAfter.IsZero() {
		notAfter = now.Add(24 * time.Hour)
	}
	level := opts.SecurityLevel
	if level == 0 && !opts.OmitExtension {
		level = 1 // TEE
	}

	root := NewCA("Veritas Test Attestation Root", notBefore, notAfter.Add(24*time.Hour))
	interNotAfter := notAfter
	interNotBefore := notBefore
	if opts.IntermediateExpired {
		interNotBefore = now.Add(-48 * time.Hour)
		interNotAfter = now.Add(-24 * time.Hour)
	}
	intermediate := NewChildCA(root, "Veritas Test Attestation CA", interNotBefore, interNotAfter)

	leafKey := mustKey()
	template := &x509.Certificate{
		SerialNumber: serial(),
		Subject:      pkix.Name{CommonName: "Veritas Test Device Key"},
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	if !opts.OmitExtension {
		template.ExtraExtensions = []pkix.Extension{{
			Id:    keyAttestationOID,
			Value: AttestationExtensionValue(opts.Challenge, level),
		}}
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, template, intermediate.Cert, &leafKey.PublicKey, intermediate.Key)
	if err != nil {
		panic(fmt.Sprintf("attesttest: create leaf: %v", err))
	}
	leafKeyDER, err := x509.MarshalPKIXPublicKey(&leafKey.PublicKey)
	if err != nil {
		panic(fmt.Sprintf("attesttest: marshal leaf key: %v", err))
	}
	return &Chain{
		Root:         root,
		Intermediate: intermediate,
		LeafDER:      leafDER,
		LeafKey:      leafKey,
		LeafKeyDER:   leafKeyDER,
	}
}

// Snapshot builds a trust snapshot anchored on the given CAs.
func Snapshot(version uint64, roots ...*CA) *domain.TrustSnapshot {
	snapshot := &domain.TrustSnapshot{Version: version, FetchedAt: time.Now()}
	for _, ca := range roots {
		snapshot.Roots = append(snapshot.Roots, domain.TrustedRoot{
			Subject:              ca.Cert.Subject.String(),
			RawSubject:           ca.Cert.RawSubject,
			SubjectPublicKeyInfo: ca.Cert.RawSubjectPublicKeyInfo,
			NotBefore:            ca.Cert.NotBefore,
			NotAfter:             ca.Cert.NotAfter,
			Certificate:          ca.Cert,
		})
	}
	return snapshot
}

// DER returns the leaf-first chain, excluding the root.
func (c *Chain) DER() [][]byte {
	return [][]byte{c.LeafDER, c.Intermediate.DER}
}

// DERWithRoot returns the leaf-first chain including the root.
func (c *Chain) DERWithRoot() [][]byte {
	return [][]byte{c.LeafDER, c.Intermediate.DER, c.Root.DER}
}
