package domain

// PolicyInput is the fact set an acceptance policy evaluates after the
// cryptographic pipeline has produced its result.
type PolicyInput struct {
	Status          VerificationStatus `json:"status"`
	Reason          Reason             `json:"reason"`
	HardwareBacked  bool               `json:"hardware_backed"`
	ChainSupplied   bool               `json:"chain_supplied"`
	TrustScore      int                `json:"trust_score"`
	SnapshotVersion uint64             `json:"snapshot_version"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}
