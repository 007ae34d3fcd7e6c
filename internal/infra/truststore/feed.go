package truststore

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
	"net/http"
	"time"

	"veritas/internal/domain"
)

const (
	defaultFetchTimeout  = 10 * time.Second
	defaultRetryAttempts = 3
	defaultRetryBase     = 200 * time.Millisecond
	defaultRetryMax      = 2 * time.Second

	maxFeedBytes = 4 << 20
)

// Feed fetches a PEM bundle of root certificates over HTTP.
type Feed struct {
	url          string
	httpClient   *http.Client
	fetchTimeout time.Duration
	retryBase    time.Duration
	retryMax     time.Duration
}

func NewFeed(url string, httpClient *http.Client) *Feed {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Feed{
		url:          url,
		httpClient:   httpClient,
		fetchTimeout: defaultFetchTimeout,
		retryBase:    defaultRetryBase,
		retryMax:     defaultRetryMax,
	}
}

// Fetch downloads the bundle, retrying transient failures with capped
// exponential backoff. All failures surface as ErrFeedUnavailable so the
// refresher treats them uniformly.
func (f *Feed) Fetch(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.fetchTimeout)
	defer cancel()

	delay := f.retryBase
	var lastErr error
	for attempt := 0; attempt < defaultRetryAttempts; attempt++ {
		if attempt > 0 {
			if err := sleepWithContext(ctx, delay); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
			}
			delay *= 2
			if delay > f.retryMax {
				delay = f.retryMax
			}
		}
		data, err := f.fetchOnce(ctx)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, lastErr)
}

func (f *Feed) fetchOnce(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("trust feed returned status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRoots decodes every CERTIFICATE block in the bundle. The whole bundle
// is rejected if any block fails to parse or is not currently valid, so a
// bad feed can never partially replace a good snapshot.
func ParseRoots(pemBundle []byte, now time.Time) ([]domain.TrustedRoot, error) {
	var roots []domain.TrustedRoot
	rest := pemBundle
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse root certificate %d: %w", len(roots), err)
		}
		if now.Before(cert.NotBefore) || now.After(cert.NotAfter) {
			return nil, fmt.Errorf("root certificate %q is outside its validity window", cert.Subject.CommonName)
		}
		roots = append(roots, domain.TrustedRoot{
			Subject:              cert.Subject.String(),
			RawSubject:           cert.RawSubject,
			SubjectPublicKeyInfo: cert.RawSubjectPublicKeyInfo,
			NotBefore:            cert.NotBefore,
			NotAfter:             cert.NotAfter,
			Certificate:          cert,
		})
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("trust bundle contains no certificates")
	}
	return roots, nil
}
