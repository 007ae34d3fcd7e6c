package attestation

import (
	"crypto/x509"
	"encoding/asn1"
	"fmt"
)

// KeyAttestationOID is the vendor key-attestation extension carried by the
// leaf certificate (Android key attestation, 1.3.6.1.4.1.11129.2.1.17).
var KeyAttestationOID = asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 11129, 2, 1, 17}

type SecurityLevel int

const (
	SecurityLevelSoftware  SecurityLevel = 0
	SecurityLevelTEE       SecurityLevel = 1
	SecurityLevelStrongBox SecurityLevel = 2
)

func (l SecurityLevel) HardwareEnforced() bool {
	return l == SecurityLevelTEE || l == SecurityLevelStrongBox
}

// KeyDescription is the decoded attestation record. The enforced
// authorization lists are retained raw; the engine's claims are the security
// level and the challenge.
type KeyDescription struct {
	AttestationVersion       int
	AttestationSecurityLevel SecurityLevel
	KeymasterVersion         int
	KeymasterSecurityLevel   SecurityLevel
	AttestationChallenge     []byte
	UniqueID                 []byte
	SoftwareEnforced         asn1.RawValue
	TEEEnforced              asn1.RawValue
}

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

// ParseKeyDescription strictly decodes the extension value. Declared lengths
// are validated against the remaining buffer by the DER decoder; trailing
// bytes are rejected here.
func ParseKeyDescription(value []byte) (*KeyDescription, error) {
	var raw keyDescriptionASN1
	rest, err := asn1.Unmarshal(value, &raw)
	if err != nil {
		return nil, fmt.Errorf("parse key description: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing bytes after key description")
	}
	return &KeyDescription{
		AttestationVersion:       raw.AttestationVersion,
		AttestationSecurityLevel: SecurityLevel(raw.AttestationSecurityLevel),
		KeymasterVersion:         raw.KeymasterVersion,
		KeymasterSecurityLevel:   SecurityLevel(raw.KeymasterSecurityLevel),
		AttestationChallenge:     raw.AttestationChallenge,
		UniqueID:                 raw.UniqueID,
		SoftwareEnforced:         raw.SoftwareEnforced,
		TEEEnforced:              raw.TEEEnforced,
	}, nil
}

// ExtractKeyDescription finds and decodes the attestation extension on cert.
// Returns nil when the certificate carries no attestation extension.
func ExtractKeyDescription(cert *x509.Certificate) (*KeyDescription, error) {
	for _, ext := range cert.Extensions {
		if !ext.Id.Equal(KeyAttestationOID) {
			continue
		}
		return ParseKeyDescription(ext.Value)
	}
	return nil, nil
}
