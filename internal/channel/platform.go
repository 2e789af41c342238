// Package channel connects the catalogue to the external commerce platform:
// completed ranges are announced on Kafka, and a listener pushes them to the
// platform and the search index.
package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fekuna/omnipos-backoffice/internal/apperr"
	catdto "github.com/fekuna/omnipos-backoffice/internal/catalogue/dto"
)

const DefaultPlatformTimeout = 30 * time.Second

// Platform is the external commerce platform. Calls may take seconds.
type Platform interface {
	PushRange(ctx context.Context, detail *catdto.RangeDetail) error
	// Bays returns the platform's snapshot of warehouse bays.
	Bays(ctx context.Context) ([]Bay, error)
}

type Bay struct {
	Name      string `json:"name"`
	Warehouse string `json:"warehouse"`
}

// NopPlatform is used when no platform is configured.
type NopPlatform struct{}

func (NopPlatform) PushRange(context.Context, *catdto.RangeDetail) error { return nil }

func (NopPlatform) Bays(context.Context) ([]Bay, error) { return nil, nil }

// HTTPPlatform talks to the platform's JSON API.
type HTTPPlatform struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPPlatform(baseURL string, timeout time.Duration) *HTTPPlatform {
	if timeout <= 0 {
		timeout = DefaultPlatformTimeout
	}
	return &HTTPPlatform{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (p *HTTPPlatform) PushRange(ctx context.Context, detail *catdto.RangeDetail) error {
	body, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("marshal range: %w", err)
	}
	return p.do(ctx, "channel.PushRange", http.MethodPut, "/ranges/"+url.PathEscape(detail.Range.ID), body, nil)
}

func (p *HTTPPlatform) Bays(ctx context.Context) ([]Bay, error) {
	var out struct {
		Bays []Bay `json:"bays"`
	}
	if err := p.do(ctx, "channel.Bays", http.MethodGet, "/bays", nil, &out); err != nil {
		return nil, err
	}
	return out.Bays, nil
}

// do sends one request. Transport failures and non-2xx responses are
// Upstream errors carrying the platform's message.
func (p *HTTPPlatform) do(ctx context.Context, op, method, path string, body []byte, dest any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.Upstream, op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.Wrap(apperr.Upstream, op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(data))
		if msg == "" {
			msg = resp.Status
		}
		return apperr.Newf(apperr.Upstream, op, "platform returned %d: %s", resp.StatusCode, msg)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return apperr.Wrap(apperr.Upstream, op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
