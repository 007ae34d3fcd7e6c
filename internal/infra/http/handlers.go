package http

import (
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"log"
	"net/http"
	"time"

	"veritas/internal/domain"
	"veritas/internal/usecase"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type metadataInput struct {
	CaptureTime string   `json:"capture_time"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Azimuth     *float64 `json:"azimuth,omitempty"`
	Pitch       *float64 `json:"pitch,omitempty"`
	Roll        *float64 `json:"roll,omitempty"`
}

type verifyMediaResponse struct {
	Status         domain.VerificationStatus `json:"status"`
	Reason         domain.Reason             `json:"reason,omitempty"`
	HardwareBacked bool                      `json:"hardware_backed"`
	Fingerprint    string                    `json:"fingerprint"`
	TrustScore     int                       `json:"trust_score"`
	RecordID       string                    `json:"record_id,omitempty"`
}

type mediaRecordResponse struct {
	ID             string  `json:"id"`
	Fingerprint    string  `json:"fingerprint"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason,omitempty"`
	HardwareBacked bool    `json:"hardware_backed"`
	TrustScore     int     `json:"trust_score"`
	CaptureTime    string  `json:"capture_time"`
	UploadTime     string  `json:"upload_time"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

type trustSnapshotResponse struct {
	Version   uint64              `json:"version"`
	FetchedAt string              `json:"fetched_at"`
	Roots     []trustRootResponse `json:"roots"`
}

type trustRootResponse struct {
	Subject   string `json:"subject"`
	NotBefore string `json:"not_before"`
	NotAfter  string `json:"not_after"`
}

func (s *Server) handleVerifyMedia(c *gin.Context) {
	if !s.enforceRateLimit(c) {
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_FILE", "file part is required")
		return
	}
	defer file.Close()

	meta, ok := parseMetadataField(c)
	if !ok {
		return
	}
	signature, ok := decodeBase64Field(c, "signature", true)
	if !ok {
		return
	}
	publicKey, ok := decodeBase64Field(c, "public_key", true)
	if !ok {
		return
	}
	challenge, ok := decodeBase64Field(c, "challenge", false)
	if !ok {
		return
	}
	chain, ok := parseChainField(c)
	if !ok {
		return
	}

	result, _, err := s.verifyUC.Execute(c.Request.Context(), usecase.VerifyMediaRequest{
		Content:   file,
		Metadata:  meta,
		Signature: signature,
		PublicKey: publicKey,
		Chain:     chain,
		Challenge: challenge,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	resp := verifyMediaResponse{
		Status:         result.Status,
		Reason:         result.Reason,
		HardwareBacked: result.HardwareBacked,
		Fingerprint:    result.Fingerprint,
		TrustScore:     usecase.TrustScore(meta.CaptureTime, time.Now().UTC()),
	}
	if s.recordUC != nil {
		rec, err := s.recordUC.Execute(c.Request.Context(), result, meta)
		if err != nil {
			log.Printf("http: media record not persisted: %v", err)
		} else if rec != nil {
			resp.RecordID = rec.ID
			resp.TrustScore = rec.TrustScore
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetMediaRecords(c *gin.Context) {
	if s.media == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	records, err := s.media.FindByFingerprint(c.Request.Context(), c.Param("fingerprint"))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(records) == 0 {
		writeError(c, domain.ErrNotFound)
		return
	}
	out := make([]mediaRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, mediaRecordResponse{
			ID:             rec.ID,
			Fingerprint:    rec.Fingerprint,
			Status:         string(rec.Status),
			Reason:         string(rec.Reason),
			HardwareBacked: rec.HardwareBacked,
			TrustScore:     rec.TrustScore,
			CaptureTime:    rec.CaptureTime.UTC().Format(time.RFC3339),
			UploadTime:     rec.UploadTime.UTC().Format(time.RFC3339),
			Latitude:       rec.Latitude,
			Longitude:      rec.Longitude,
		})
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

func (s *Server) handleTrustSnapshot(c *gin.Context) {
	if s.trust == nil {
		writeError(c, domain.ErrNotFound)
		return
	}
	snap := s.trust.Current()
	roots := make([]trustRootResponse, 0, len(snap.Roots))
	for _, root := range snap.Roots {
		roots = append(roots, trustRootResponse{
			Subject:   root.Subject,
			NotBefore: root.NotBefore.UTC().Format(time.RFC3339),
			NotAfter:  root.NotAfter.UTC().Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, trustSnapshotResponse{
		Version:   snap.Version,
		FetchedAt: snap.FetchedAt.UTC().Format(time.RFC3339),
		Roots:     roots,
	})
}

func (s *Server) handleRefreshTrust(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	if s.refresh == nil {
		writeErrorCode(c, http.StatusServiceUnavailable, "FEED_UNAVAILABLE", "no trust feed configured")
		return
	}
	if err := s.refresh.Refresh(c.Request.Context()); err != nil {
		if errors.Is(err, domain.ErrFeedUnavailable) {
			writeErrorCode(c, http.StatusBadGateway, "FEED_UNAVAILABLE", err.Error())
			return
		}
		writeError(c, err)
		return
	}
	s.handleTrustSnapshot(c)
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func parseMetadataField(c *gin.Context) (domain.CaptureMetadata, bool) {
	raw := c.PostForm("metadata")
	if raw == "" {
		writeErrorCode(c, http.StatusBadRequest, "MISSING_METADATA", "metadata part is required")
		return domain.CaptureMetadata{}, false
	}
	var in metadataInput
	if err := json.Unmarshal([]byte(raw), &in); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "metadata is not valid json")
		return domain.CaptureMetadata{}, false
	}
	if in.Latitude == nil || in.Longitude == nil || in.CaptureTime == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_METADATA", "capture_time, latitude and longitude are required")
		return domain.CaptureMetadata{}, false
	}
	captureTime, err := time.Parse(time.RFC3339, in.CaptureTime)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_METADATA", "capture_time must be RFC 3339")
		return domain.CaptureMetadata{}, false
	}
	return domain.CaptureMetadata{
		CaptureTime: captureTime,
		Latitude:    *in.Latitude,
		Longitude:   *in.Longitude,
		Azimuth:     in.Azimuth,
		Pitch:       in.Pitch,
		Roll:        in.Roll,
	}, true
}

func decodeBase64Field(c *gin.Context, name string, required bool) ([]byte, bool) {
	raw := c.PostForm(name)
	if raw == "" {
		if required {
			writeErrorCode(c, http.StatusBadRequest, "MISSING_FIELD", name+" part is required")
			return nil, false
		}
		return nil, true
	}
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_ENCODING", name+" is not valid base64")
		return nil, false
	}
	return decoded, true
}

// parseChainField reads the optional attestation_chain part as a PEM bundle,
// leaf certificate first.
func parseChainField(c *gin.Context) ([][]byte, bool) {
	raw := c.PostForm("attestation_chain")
	if raw == "" {
		return nil, true
	}
	var chain [][]byte
	rest := []byte(raw)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		chain = append(chain, block.Bytes)
	}
	if len(chain) == 0 {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_CHAIN", "attestation_chain contains no certificates")
		return nil, false
	}
	return chain, true
}

func (s *Server) requireAdmin(c *gin.Context) bool {
	if s.adminAPIKey == "" {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "admin key required")
		return false
	}
	key := c.GetHeader("X-Admin-Key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.adminAPIKey)) != 1 {
		writeErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "invalid admin key")
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrMalformedMetadata):
		status, code = http.StatusBadRequest, "MALFORMED_METADATA"
	case errors.Is(err, domain.ErrFileTooLarge):
		status, code = http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE"
	case errors.Is(err, domain.ErrFeedUnavailable):
		status, code = http.StatusBadGateway, "FEED_UNAVAILABLE"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusUnauthorized, "UNAUTHORIZED"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
