// Package advisory asks the external demand-advisory service whether an item
// is in seasonal or market demand. Every failure means "no advisory".
package advisory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"blocknex-supply-api-server/config"

	"github.com/rs/zerolog/log"
)

type Kind string

const (
	Seasonal Kind = "seasonal"
	Market   Kind = "market"
	List     Kind = "list"
)

type Verdict struct {
	Demand         bool   `json:"demand"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

type Suggestion struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Advisor never returns errors; ok is false when no advisory is available.
type Advisor interface {
	Advise(ctx context.Context, item string, kind Kind) (v Verdict, ok bool)
	Suggestions(ctx context.Context) []Suggestion
}

// Cache stores raw advisory responses.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
}

type Client struct {
	baseURL string
	http    *http.Client
	cache   Cache
	ttl     time.Duration
}

// NewClient returns nil when no endpoint is configured; a nil *Client gives no advisories.
func NewClient(cfg config.AdvisoryConfig, cache Cache, ttl time.Duration) *Client {
	if cfg.BaseURL == "" {
		return nil
	}
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		ttl:     ttl,
	}
}

type verdictResponse struct {
	Demand         *bool  `json:"demand"`
	Reason         string `json:"reason"`
	Recommendation string `json:"recommendation"`
}

func (c *Client) Advise(ctx context.Context, item string, kind Kind) (Verdict, bool) {
	if c == nil || item == "" {
		return Verdict{}, false
	}
	body, ok := c.fetch(ctx, item, kind)
	if !ok {
		return Verdict{}, false
	}
	var resp verdictResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Demand == nil {
		log.Debug().Str("item", item).Str("type", string(kind)).Msg("malformed advisory response")
		return Verdict{}, false
	}
	return Verdict{Demand: *resp.Demand, Reason: resp.Reason, Recommendation: resp.Recommendation}, true
}

func (c *Client) Suggestions(ctx context.Context) []Suggestion {
	if c == nil {
		return nil
	}
	body, ok := c.fetch(ctx, "", List)
	if !ok {
		return nil
	}
	var resp struct {
		Items []Suggestion `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		log.Debug().Err(err).Msg("malformed advisory list response")
		return nil
	}
	return resp.Items
}

func cacheKey(item string, kind Kind) string {
	return fmt.Sprintf("advisory:%s:%s", kind, strings.ToLower(strings.TrimSpace(item)))
}

// fetch returns a 2xx JSON body, from cache when possible.
func (c *Client) fetch(ctx context.Context, item string, kind Kind) ([]byte, bool) {
	key := cacheKey(item, kind)
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, key); ok {
			return body, true
		}
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		log.Warn().Err(err).Msg("invalid advisory base URL")
		return nil, false
	}
	q := u.Query()
	if item != "" {
		q.Set("item", item)
	}
	q.Set("type", string(kind))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("type", string(kind)).Msg("advisory service unavailable")
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug().Int("status", resp.StatusCode).Str("type", string(kind)).Msg("advisory service returned error status")
		return nil, false
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, false
	}
	if c.cache != nil {
		c.cache.Set(ctx, key, raw, c.ttl)
	}
	return raw, true
}
