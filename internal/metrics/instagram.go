package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/go-querystring/query"
)

const defaultGraphBaseURL = "https://graph.facebook.com/v19.0"

// InstagramFetcher uses Graph API business discovery, which resolves public
// business and creator accounts by username through our own business account.
type InstagramFetcher struct {
	BaseURL     string
	BusinessID  string
	AccessToken string
	Client      *http.Client
}

func NewInstagramFetcher(businessID, accessToken string, client *http.Client) *InstagramFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &InstagramFetcher{
		BaseURL:     defaultGraphBaseURL,
		BusinessID:  businessID,
		AccessToken: accessToken,
		Client:      client,
	}
}

type graphParams struct {
	Fields      string `url:"fields"`
	AccessToken string `url:"access_token"`
}

type graphResponse struct {
	BusinessDiscovery *struct {
		FollowersCount int64  `json:"followers_count"`
		Username       string `json:"username"`
	} `json:"business_discovery"`
	Error *graphError `json:"error"`
}

type graphError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

func (f *InstagramFetcher) Fetch(ctx context.Context, profileRef string) (Result, error) {
	username, err := pathHandle(profileRef, "instagram.com", "instagr.am")
	if err != nil {
		return Result{}, err
	}

	params, err := query.Values(graphParams{
		Fields:      fmt.Sprintf("business_discovery.username(%s){followers_count,username}", username),
		AccessToken: f.AccessToken,
	})
	if err != nil {
		return Result{}, fmt.Errorf("encode graph params: %w", err)
	}
	endpoint := fmt.Sprintf("%s/%s?%s", f.BaseURL, f.BusinessID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}

	var body graphResponse
	if err := doJSON(f.Client, req, &body); err != nil {
		return Result{}, fmt.Errorf("instagram business discovery: %w", err)
	}
	if body.Error != nil {
		return Result{}, fmt.Errorf("instagram business discovery: %s (code %d)", body.Error.Message, body.Error.Code)
	}
	if body.BusinessDiscovery == nil {
		return Result{}, fmt.Errorf("instagram account %q not found", username)
	}
	return Result{Count: body.BusinessDiscovery.FollowersCount, FetchedAt: time.Now().UTC()}, nil
}

// doJSON sends req and decodes the body into out. Non-2xx responses are
// decoded too when they carry JSON, so callers can surface API messages.
func doJSON(client *http.Client, req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	decodeErr := json.NewDecoder(resp.Body).Decode(out)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil {
			return nil
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	return nil
}
