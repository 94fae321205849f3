package password

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // HIBP's k-anonymity API is specified over SHA-1 hex digests.
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/wardengate/authcore/internal/domain"
)

// BreachCheckerConfig tunes the HIBP range-query retry policy.
type BreachCheckerConfig struct {
	BaseURL        string
	MaxElapsedTime time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultBreachCheckerConfig points at the public HIBP range endpoint with a
// short, bounded retry budget.
func DefaultBreachCheckerConfig() BreachCheckerConfig {
	return BreachCheckerConfig{
		BaseURL:        "https://api.pwnedpasswords.com/range",
		MaxElapsedTime: 3 * time.Second,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
	}
}

// BreachChecker probes the Have I Been Pwned range API using k-anonymity:
// only the first five hex characters of the password's SHA-1 digest ever
// leave the process.
type BreachChecker struct {
	cfg    BreachCheckerConfig
	client *http.Client
}

// NewBreachChecker builds a BreachChecker with the given retry config and
// HTTP client (pass http.DefaultClient unless a test needs otherwise).
func NewBreachChecker(cfg BreachCheckerConfig, client *http.Client) *BreachChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &BreachChecker{cfg: cfg, client: client}
}

// IsBreached reports whether the password appears in a known breach
// corpus. A transport failure after retries returns ErrUnavailable rather
// than a false negative; callers must treat that as non-fatal to the
// calling flow (sign-up still proceeds).
func (b *BreachChecker) IsBreached(ctx context.Context, r *Raw) (bool, error) {
	defer r.Clear()
	sum := sha1.Sum([]byte(r.Expose())) //nolint:gosec // see import comment
	hexDigest := strings.ToUpper(hex.EncodeToString(sum[:]))
	prefix, suffix := hexDigest[:5], hexDigest[5:]

	var body string
	op := func() error {
		reqCtx, cancel := context.WithTimeout(ctx, b.cfg.MaxBackoff*4)
		defer cancel()
		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, fmt.Sprintf("%s/%s", b.cfg.BaseURL, prefix), nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := b.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("hibp: unexpected status %d", resp.StatusCode)
		}
		sb := &strings.Builder{}
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			sb.WriteString(scanner.Text())
			sb.WriteByte('\n')
		}
		body = sb.String()
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = b.cfg.InitialBackoff
	bo.MaxInterval = b.cfg.MaxBackoff
	bo.MaxElapsedTime = b.cfg.MaxElapsedTime

	if err := backoff.Retry(op, bo); err != nil {
		return false, domain.ErrUnavailable
	}

	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(parts[0], suffix) {
			return true, nil
		}
	}
	return false, nil
}
