package usecase

import "time"

// TrustScore rates capture freshness on a 0-100 scale: 100 at the moment of
// capture, minus one point per full minute between capture and upload. A
// zero capture time or an upload that precedes capture scores 0.
func TrustScore(captureTime, uploadTime time.Time) int {
	if captureTime.IsZero() || uploadTime.Before(captureTime) {
		return 0
	}
	minutes := int(uploadTime.Sub(captureTime) / time.Minute)
	score := 100 - minutes
	if score < 0 {
		return 0
	}
	return score
}
