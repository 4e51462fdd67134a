// Package prober performs the bounded HTTP GET probe described in
// spec section 4.1: one request per call, a timeout covering connect,
// TLS handshake and body read, and a capped body read.
package prober

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ferreiragah-dev/gentrack/pkg/clock"
)

// MaxBodyBytes is the hard cap on bytes read from a probed response
// body; bytes beyond this are discarded silently.
const MaxBodyBytes = 1_000_000

// Kind classifies how a probe concluded.
type Kind string

const (
	KindHTTPStatus Kind = "http_status"
	KindTimeout    Kind = "timeout"
	KindDNS        Kind = "dns"
	KindTLS        Kind = "tls"
	KindConnection Kind = "connection"
	KindUnknown    Kind = "unknown"
)

// Outcome is the raw result of one probe attempt, before classification.
type Outcome struct {
	StartedAt  time.Time
	LatencyMs  int64
	Kind       Kind
	StatusCode int
	BodyBytes  []byte
	RawError   string
}

// Target is the minimal shape the prober needs from a registered target.
type Target struct {
	URL            string
	TimeoutSeconds int
}

// Prober issues GET requests against targets.
type Prober struct {
	clock clock.Clock
}

// New returns a Prober using the given clock for latency measurement.
func New(c clock.Clock) *Prober {
	return &Prober{clock: c}
}

// Probe performs a single bounded GET request against target.URL.
func (p *Prober) Probe(ctx context.Context, target Target) Outcome {
	started := p.clock.Monotonic()
	wallStarted := p.clock.Now()

	timeout := time.Duration(target.TimeoutSeconds) * time.Second
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, target.URL, nil)
	if err != nil {
		return p.finish(wallStarted, started, KindUnknown, 0, nil, err)
	}
	req.Header.Set("User-Agent", "GenTrack/1.0")
	req.Header.Set("Accept", "*/*")

	client := &http.Client{Timeout: timeout}

	resp, err := client.Do(req)
	if err != nil {
		return p.finish(wallStarted, started, classifyTransportErr(err), 0, nil, err)
	}
	defer resp.Body.Close()

	body, err := readCapped(resp.Body, MaxBodyBytes)
	if err != nil {
		return p.finish(wallStarted, started, classifyTransportErr(err), resp.StatusCode, body, err)
	}

	return p.finish(wallStarted, started, KindHTTPStatus, resp.StatusCode, body, nil)
}

func (p *Prober) finish(wallStarted, monoStarted time.Time, kind Kind, statusCode int, body []byte, err error) Outcome {
	elapsed := p.clock.Monotonic().Sub(monoStarted)
	o := Outcome{
		StartedAt:  wallStarted,
		LatencyMs:  int64(elapsed.Round(time.Millisecond) / time.Millisecond),
		Kind:       kind,
		StatusCode: statusCode,
		BodyBytes:  body,
	}
	if err != nil {
		o.RawError = err.Error()
	}
	return o
}

// readCapped reads up to max bytes from r and discards the rest.
func readCapped(r io.Reader, max int64) ([]byte, error) {
	limited := io.LimitReader(r, max)
	body, err := io.ReadAll(limited)
	if err != nil {
		return body, err
	}
	// Read and discard at most 4096 further bytes, without retaining
	// them, so a body only slightly over the cap can still leave the
	// connection reusable; anything beyond that is left unread.
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 4096))
	return body, nil
}

// classifyTransportErr maps a transport-layer error to the taxonomy
// spec section 4.1/4.2 expects, by unwrapping the standard library's
// error chain.
func classifyTransportErr(err error) Kind {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return KindTimeout
		}
		err = urlErr.Err
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindDNS
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return KindTLS
	}
	var unknownAuthErr x509.UnknownAuthorityError
	if errors.As(err, &unknownAuthErr) {
		return KindTLS
	}
	var hostnameErr x509.HostnameError
	if errors.As(err, &hostnameErr) {
		return KindTLS
	}
	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return KindTLS
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return KindTimeout
		}
		if opErr.Op == "dial" || opErr.Op == "read" || opErr.Op == "write" {
			return KindConnection
		}
		return KindConnection
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindUnknown
}
