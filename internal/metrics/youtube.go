package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// YouTubeFetcher reads channel subscriber counts from the YouTube Data API v3.
type YouTubeFetcher struct {
	service *youtube.Service
}

// NewYouTubeFetcher builds an API-key client. Extra options are appended
// after the key so tests can point it at another endpoint.
func NewYouTubeFetcher(ctx context.Context, apiKey string, opts ...option.ClientOption) (*YouTubeFetcher, error) {
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service with API key: %w", err)
	}
	return &YouTubeFetcher{service: service}, nil
}

type channelSelector int

const (
	byHandle channelSelector = iota
	byID
	byUsername
)

type channelRef struct {
	selector channelSelector
	value    string
}

// parseChannelRef accepts @handle, a UC... channel id, or a youtube.com URL
// in the /@handle, /channel/<id>, /user/<name> or /c/<name> forms.
func parseChannelRef(ref string) (channelRef, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return channelRef{}, errors.New("empty channel reference")
	}
	if !strings.Contains(ref, "/") {
		if isChannelID(ref) {
			return channelRef{byID, ref}, nil
		}
		return channelRef{byHandle, strings.TrimPrefix(ref, "@")}, nil
	}
	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return channelRef{}, fmt.Errorf("parse channel url: %w", err)
	}
	if !hostMatches(u.Hostname(), []string{"youtube.com"}) {
		return channelRef{}, fmt.Errorf("channel url host %q is not youtube.com", u.Hostname())
	}
	seg := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case strings.HasPrefix(seg[0], "@"):
		return channelRef{byHandle, strings.TrimPrefix(seg[0], "@")}, nil
	case len(seg) >= 2 && seg[0] == "channel":
		return channelRef{byID, seg[1]}, nil
	case len(seg) >= 2 && seg[0] == "user":
		return channelRef{byUsername, seg[1]}, nil
	case len(seg) >= 2 && seg[0] == "c":
		return channelRef{byHandle, seg[1]}, nil
	}
	return channelRef{}, fmt.Errorf("unrecognized channel url %q", ref)
}

func isChannelID(s string) bool {
	return len(s) == 24 && strings.HasPrefix(s, "UC")
}

func (f *YouTubeFetcher) Fetch(ctx context.Context, profileRef string) (Result, error) {
	ref, err := parseChannelRef(profileRef)
	if err != nil {
		return Result{}, err
	}

	call := f.service.Channels.List([]string{"statistics"})
	switch ref.selector {
	case byID:
		call = call.Id(ref.value)
	case byUsername:
		call = call.ForUsername(ref.value)
	default:
		call = call.ForHandle(ref.value)
	}
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("youtube channels.list: %w", err)
	}
	if len(resp.Items) == 0 {
		return Result{}, fmt.Errorf("youtube channel %q not found", ref.value)
	}
	stats := resp.Items[0].Statistics
	if stats == nil || stats.HiddenSubscriberCount {
		return Result{}, fmt.Errorf("youtube channel %q hides its subscriber count", ref.value)
	}
	return Result{Count: int64(stats.SubscriberCount), FetchedAt: time.Now().UTC()}, nil
}
