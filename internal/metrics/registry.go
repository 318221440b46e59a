package metrics

import (
	"context"
	"net/http"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

// NewRegistryFromConfig registers a live fetcher for every platform whose
// credentials are configured. X is always policy blocked.
func NewRegistryFromConfig(ctx context.Context, cfg config.Metrics) (*Registry, error) {
	client := &http.Client{Timeout: cfg.Timeout}
	r := NewRegistry().Register(model.PlatformX, PolicyBlockedFetcher{})

	if cfg.YouTubeAPIKey != "" {
		yt, err := NewYouTubeFetcher(ctx, cfg.YouTubeAPIKey)
		if err != nil {
			return nil, err
		}
		r.Register(model.PlatformYouTube, yt)
	} else {
		logger.GetLogger().Warn("YouTube API key not set - YouTube follower fetch disabled")
	}

	if cfg.InstagramAccessToken != "" && cfg.InstagramBusinessID != "" {
		r.Register(model.PlatformInstagram, NewInstagramFetcher(cfg.InstagramBusinessID, cfg.InstagramAccessToken, client))
	} else {
		logger.GetLogger().Warn("Instagram Graph credentials not set - Instagram follower fetch disabled")
	}

	if cfg.TikTokAccessToken != "" {
		r.Register(model.PlatformTikTok, NewTikTokFetcher(ctx, cfg.TikTokAccessToken, client))
	} else {
		logger.GetLogger().Warn("TikTok access token not set - TikTok follower fetch disabled")
	}
	return r, nil
}
