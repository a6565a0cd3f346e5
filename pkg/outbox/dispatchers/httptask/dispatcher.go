// Package httptask delivers outbox messages as authenticated HTTP POSTs, the
// way a push task queue would.
package httptask

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"

	"github.com/iota-uz/sentencing-etl/pkg/outbox"
)

// maxErrorBody caps how much of a failed response ends up in last_error.
const maxErrorBody = 512

type Dispatcher struct {
	url    string
	client *http.Client
}

// New posts to url with bearer tokens from ts. A nil ts sends no
// Authorization header.
func New(url string, ts oauth2.TokenSource) *Dispatcher {
	client := &http.Client{}
	if ts != nil {
		client.Transport = &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: http.DefaultTransport}
	}
	return &Dispatcher{url: url, client: client}
}

// NewWithIDToken signs requests with a Google ID token for audience, taken from
// the ambient service account credentials.
func NewWithIDToken(ctx context.Context, url, audience string) (*Dispatcher, error) {
	ts, err := idtoken.NewTokenSource(ctx, audience)
	if err != nil {
		return nil, fmt.Errorf("httptask: id token source: %w", err)
	}
	return New(url, ts), nil
}

func (d *Dispatcher) Dispatch(ctx context.Context, msg outbox.Delivery) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(msg.Payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Outbox-Event-Id", msg.Meta.EventID.String())
	req.Header.Set("X-Outbox-Attempt", strconv.Itoa(msg.Meta.Attempts))
	if msg.Meta.TraceParent != "" {
		req.Header.Set("traceparent", msg.Meta.TraceParent)
		if msg.Meta.TraceState != "" {
			req.Header.Set("tracestate", msg.Meta.TraceState)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("httptask: post %s: %w", d.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("httptask: %s returned %d: %s", d.url, resp.StatusCode, bytes.TrimSpace(body))
}
