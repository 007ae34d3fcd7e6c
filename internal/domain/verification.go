package domain

type VerificationStatus string

const (
	StatusVerified   VerificationStatus = "verified"
	StatusUnverified VerificationStatus = "unverified"
)

// Reason is the coarse, machine-readable rejection code surfaced to callers.
// Parse-level diagnostics stay in the logs so a forged chain cannot probe for
// the exact byte that failed.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonSignatureInvalid        Reason = "SIGNATURE_INVALID"
	ReasonMalformedMetadata       Reason = "MALFORMED_METADATA"
	ReasonMalformedKey            Reason = "MALFORMED_KEY"
	ReasonMalformedSignature      Reason = "MALFORMED_SIGNATURE"
	ReasonUnsupportedKeyType      Reason = "UNSUPPORTED_KEY_TYPE"
	ReasonMalformedCertificate    Reason = "MALFORMED_CERTIFICATE"
	ReasonUntrustedRoot           Reason = "UNTRUSTED_ROOT"
	ReasonExpiredCertificate      Reason = "EXPIRED_CERTIFICATE"
	ReasonRevokedCertificate      Reason = "REVOKED_CERTIFICATE"
	ReasonRevocationUnavailable   Reason = "REVOCATION_UNAVAILABLE"
	ReasonAttestationMismatch     Reason = "ATTESTATION_MISMATCH"
	ReasonKeyMismatch             Reason = "KEY_MISMATCH"
	ReasonChainTooLong            Reason = "CHAIN_TOO_LONG"
	ReasonFileTooLarge            Reason = "FILE_TOO_LARGE"
	ReasonPolicyDenied            Reason = "POLICY_DENIED"
	ReasonInternalValidationError Reason = "INTERNAL_VALIDATION_ERROR"
)

// VerificationResult is produced once per upload and never mutated.
type VerificationResult struct {
	Status         VerificationStatus `json:"status"`
	Reason         Reason             `json:"reason,omitempty"`
	HardwareBacked bool               `json:"hardware_backed"`
	Fingerprint    string             `json:"fingerprint"`
}

// ChainOutcome is the terminal state of the attestation chain validator.
type ChainOutcome struct {
	Accepted       bool
	Reason         Reason
	HardwareBacked bool
}
