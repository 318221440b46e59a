package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
	"golang.org/x/oauth2"
)

const defaultTikTokBaseURL = "https://open.tiktokapis.com/v2"

// TikTokFetcher queries the TikTok research API user info endpoint.
type TikTokFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewTikTokFetcher authenticates every request with a client access token.
// base, when non-nil, is the transport-level client the token is layered on.
func NewTikTokFetcher(ctx context.Context, accessToken string, base *http.Client) *TikTokFetcher {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
	return &TikTokFetcher{
		BaseURL: defaultTikTokBaseURL,
		Client:  oauth2.NewClient(ctx, src),
	}
}

type tiktokParams struct {
	Fields string `url:"fields"`
}

type tiktokResponse struct {
	Data struct {
		FollowerCount *int64 `json:"follower_count"`
	} `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *TikTokFetcher) Fetch(ctx context.Context, profileRef string) (Result, error) {
	username, err := pathHandle(profileRef, "tiktok.com")
	if err != nil {
		return Result{}, err
	}

	params, err := query.Values(tiktokParams{Fields: "follower_count"})
	if err != nil {
		return Result{}, fmt.Errorf("encode tiktok params: %w", err)
	}
	payload, err := json.Marshal(map[string]string{"username": username})
	if err != nil {
		return Result{}, err
	}
	endpoint := fmt.Sprintf("%s/research/user/info/?%s", f.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var body tiktokResponse
	if err := doJSON(f.Client, req, &body); err != nil {
		return Result{}, fmt.Errorf("tiktok user info: %w", err)
	}
	if body.Error.Code != "" && body.Error.Code != "ok" {
		return Result{}, fmt.Errorf("tiktok user info: %s: %s", body.Error.Code, body.Error.Message)
	}
	if body.Data.FollowerCount == nil {
		return Result{}, fmt.Errorf("tiktok account %q not found", username)
	}
	return Result{Count: *body.Data.FollowerCount, FetchedAt: time.Now().UTC()}, nil
}
