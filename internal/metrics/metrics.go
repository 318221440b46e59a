// Package metrics looks up follower and subscriber counts per platform.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

type Result struct {
	Count     int64     `json:"count"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Fetcher returns the audience size for one profile on one platform.
// profileRef is whatever the influencer typed: a profile URL, @handle or id.
type Fetcher interface {
	Fetch(ctx context.Context, profileRef string) (Result, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, profileRef string) (Result, error)

func (f FetcherFunc) Fetch(ctx context.Context, profileRef string) (Result, error) {
	return f(ctx, profileRef)
}

// PolicyBlockedFetcher stands in for platforms whose API access is not
// contracted. It never performs I/O.
type PolicyBlockedFetcher struct{}

func (PolicyBlockedFetcher) Fetch(context.Context, string) (Result, error) {
	return Result{}, appErrors.ErrPolicyBlocked
}

// Capability describes how a platform's count is obtained.
type Capability struct {
	Platform  model.Platform `json:"platform"`
	Label     string         `json:"label"`
	AutoFetch bool           `json:"auto_fetch"`
	Reason    string         `json:"reason,omitempty"`
}

// Registry dispatches a platform identifier to its Fetcher.
type Registry struct {
	fetchers map[model.Platform]Fetcher
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{fetchers: map[model.Platform]Fetcher{}, now: time.Now}
}

func (r *Registry) Register(p model.Platform, f Fetcher) *Registry {
	r.fetchers[p] = f
	return r
}

// Fetch resolves platformID case-insensitively and delegates to its fetcher.
// Unknown or unregistered platforms fail with ErrUnsupportedPlatform.
func (r *Registry) Fetch(ctx context.Context, platformID, profileRef string) (Result, error) {
	p, ok := model.ParsePlatform(platformID)
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", appErrors.ErrUnsupportedPlatform, platformID)
	}
	f, ok := r.fetchers[p]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", appErrors.ErrUnsupportedPlatform, platformID)
	}

	res, err := f.Fetch(ctx, profileRef)
	if err != nil {
		logger.GetLogger().WithFields(map[string]interface{}{
			"platform": p,
			"error":    err,
		}).Warn("⚠️ Metrics fetch failed")
		return Result{}, err
	}
	if res.FetchedAt.IsZero() {
		res.FetchedAt = r.now().UTC()
	}
	return res, nil
}

// Capabilities lists every supported platform in display order.
func (r *Registry) Capabilities() []Capability {
	out := make([]Capability, 0, len(model.SupportedPlatforms))
	for _, p := range model.SupportedPlatforms {
		c := Capability{Platform: p, Label: p.Label()}
		switch r.fetchers[p].(type) {
		case nil:
			c.Reason = "automatic fetch is not configured"
		case PolicyBlockedFetcher, *PolicyBlockedFetcher:
			c.Reason = appErrors.ErrPolicyBlocked.Error()
		default:
			c.AutoFetch = true
		}
		out = append(out, c)
	}
	return out
}

// ====== profile references ======

// pathHandle pulls the handle out of a profile URL for the given hosts, or
// treats the reference itself as the handle. Leading @ and trailing slashes
// are removed.
func pathHandle(ref string, hosts ...string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("empty profile reference")
	}
	if !strings.Contains(ref, "/") {
		return strings.TrimPrefix(ref, "@"), nil
	}
	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse profile url: %w", err)
	}
	if !hostMatches(u.Hostname(), hosts) {
		return "", fmt.Errorf("profile url host %q is not one of %v", u.Hostname(), hosts)
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", fmt.Errorf("profile url %q has no handle", ref)
	}
	return strings.TrimPrefix(segments[0], "@"), nil
}

func hostMatches(host string, hosts []string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.TrimPrefix(host, "m.")
	for _, h := range hosts {
		if host == h {
			return true
		}
	}
	return false
}
