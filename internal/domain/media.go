package domain

import "time"

// MediaDigest is the verifiable digest of one content stream. For chunked
// content RootHash is the combined hash of ChunkHashes; for single-chunk
// content it equals the plain content hash and ChunkHashes is empty.
// Immutable once computed.
type MediaDigest struct {
	Algorithm   string
	RootHash    []byte
	ChunkHashes [][]byte
}

// Chunked reports whether the digest was built from a multi-chunk tree.
func (d MediaDigest) Chunked() bool {
	return len(d.ChunkHashes) > 1
}

// CaptureMetadata is the fixed field set covered by the device signature.
// Orientation fields are optional and nil when the device did not report them.
type CaptureMetadata struct {
	CaptureTime time.Time
	Latitude    float64
	Longitude   float64
	Azimuth     *float64
	Pitch       *float64
	Roll        *float64
}

// MediaRecord is the persisted outcome of one verified upload.
type MediaRecord struct {
	ID             string
	Fingerprint    string
	Status         VerificationStatus
	Reason         Reason
	HardwareBacked bool
	TrustScore     int
	CaptureTime    time.Time
	UploadTime     time.Time
	Latitude       float64
	Longitude      float64
	Azimuth        *float64
	Pitch          *float64
	Roll           *float64
	CreatedAt      time.Time
}
