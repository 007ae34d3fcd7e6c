// Package canonical fixes the byte encoding of capture metadata that signing
// devices and the server must agree on. The serialization below is the
// contract: fields in the order capture_time, latitude, longitude, azimuth,
// pitch, roll, joined by '|'; timestamps as UTC RFC 3339 with second
// precision; floats with exactly 6 decimal digits; absent orientation fields
// as the sentinel '-'. Any deviation silently invalidates every device
// signature, so changes here are breaking protocol changes.
package canonical

import (
	"crypto/sha256"
	"fmt"
	"math"
	"strconv"
	"strings"

	"veritas/internal/domain"
)

const (
	TimeLayout     = "2006-01-02T15:04:05Z"
	FloatPrecision = 6
	Separator      = "|"
	MissingField   = "-"
)

// Serialize produces the canonical byte encoding of meta, or
// domain.ErrMalformedMetadata when a required field is absent or out of its
// declared bound.
func Serialize(meta domain.CaptureMetadata) ([]byte, error) {
	if meta.CaptureTime.IsZero() {
		return nil, fmt.Errorf("capture_time is required: %w", domain.ErrMalformedMetadata)
	}
	if err := checkFinite("latitude", meta.Latitude); err != nil {
		return nil, err
	}
	if err := checkFinite("longitude", meta.Longitude); err != nil {
		return nil, err
	}
	if meta.Latitude < -90 || meta.Latitude > 90 {
		return nil, fmt.Errorf("latitude %v out of range: %w", meta.Latitude, domain.ErrMalformedMetadata)
	}
	if meta.Longitude < -180 || meta.Longitude > 180 {
		return nil, fmt.Errorf("longitude %v out of range: %w", meta.Longitude, domain.ErrMalformedMetadata)
	}
	for _, opt := range []struct {
		name  string
		value *float64
	}{
		{"azimuth", meta.Azimuth},
		{"pitch", meta.Pitch},
		{"roll", meta.Roll},
	} {
		if opt.value == nil {
			continue
		}
		if err := checkFinite(opt.name, *opt.value); err != nil {
			return nil, err
		}
	}

	fields := []string{
		meta.CaptureTime.UTC().Format(TimeLayout),
		formatFloat(meta.Latitude),
		formatFloat(meta.Longitude),
		formatOptional(meta.Azimuth),
		formatOptional(meta.Pitch),
		formatOptional(meta.Roll),
	}
	return []byte(strings.Join(fields, Separator)), nil
}

// Digest returns the SHA-256 of the canonical serialization.
func Digest(meta domain.CaptureMetadata) ([]byte, error) {
	canonical, err := Serialize(meta)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(canonical)
	return sum[:], nil
}

// Service adapts the package functions to the orchestrator's
// MetadataHasher dependency.
type Service struct{}

func (Service) Digest(meta domain.CaptureMetadata) ([]byte, error) {
	return Digest(meta)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', FloatPrecision, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return MissingField
	}
	return formatFloat(*v)
}

func checkFinite(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%s is not finite: %w", name, domain.ErrMalformedMetadata)
	}
	return nil
}
