package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/handler"
	"github.com/unclebandit/partnerconnex-backend/internal/metrics"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
	"github.com/unclebandit/partnerconnex-backend/internal/service"
	"github.com/unclebandit/partnerconnex-backend/internal/upload"
	"github.com/unclebandit/partnerconnex-backend/internal/wizard"
)

type fixture struct {
	router http.Handler
	subs   *repository.MemorySubmissionRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := repository.NewMemoryCampaignRepository(model.DemoCampaigns()...)
	subs := &repository.MemorySubmissionRepository{}
	registry := metrics.NewRegistry().
		Register(model.PlatformInstagram, metrics.FetcherFunc(func(_ context.Context, ref string) (metrics.Result, error) {
			return metrics.Result{Count: 4200}, nil
		})).
		Register(model.PlatformX, metrics.PolicyBlockedFetcher{})

	h := &handler.WizardHandler{
		Campaigns: &service.CampaignService{CampaignRepo: repo},
		Wizard: &wizard.Service{
			Campaigns: repo,
			Store:     wizard.NewMemoryStore(time.Hour),
			Submitter: &service.SubmissionService{CampaignRepo: repo, SubmissionRepo: subs},
			Metrics:   registry,
			Uploader: upload.NewUploader(upload.NewMemoryStore("https://storage.example.com", "attachments"), upload.Options{
				Folder:       "submissions",
				MaxBytes:     1 << 10,
				AllowedTypes: []string{"image/*", "application/pdf"},
				SignedURLTTL: time.Hour,
			}),
		},
		Platforms: registry,
	}

	r := chi.NewRouter()
	r.Get("/platforms", h.ListPlatforms)
	r.Route("/i/{token}", h.Routes)
	return &fixture{router: r, subs: subs}
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

type sessionView struct {
	ID   string `json:"id"`
	Step struct {
		Number   int    `json:"number"`
		Name     string `json:"name"`
		Accepted *bool  `json:"accepted"`
	} `json:"step"`
	NDAViewed   bool                  `json:"nda_viewed"`
	Draft       model.SubmissionDraft `json:"draft"`
	Errors      map[string]string     `json:"errors"`
	Attachments []string              `json:"attachments"`
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) sessionView {
	t.Helper()
	var s sessionView
	require.NoError(t, json.NewDecoder(w.Body).Decode(&s))
	return s
}

// start opens a session and walks it to the submission step.
func (f *fixture) start(t *testing.T, accept bool) string {
	t.Helper()
	w := f.do(t, http.MethodPost, "/i/demo-token/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid := decodeSession(t, w).ID
	base := "/i/demo-token/sessions/" + sid

	w = f.do(t, http.MethodPost, base+"/nda/scroll", map[string]float64{"scroll_top": 960, "client_height": 40, "scroll_height": 1000})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeSession(t, w).NDAViewed)

	w = f.do(t, http.MethodPost, base+"/nda/agree", map[string]bool{"agreed": true})
	require.Equal(t, http.StatusOK, w.Code)

	next := "/decline"
	if accept {
		next = "/accept"
	}
	w = f.do(t, http.MethodPost, base+next, nil)
	require.Equal(t, http.StatusOK, w.Code)
	s := decodeSession(t, w)
	assert.Equal(t, 3, s.Step.Number)
	require.NotNil(t, s.Step.Accepted)
	assert.Equal(t, accept, *s.Step.Accepted)
	return sid
}

func TestGetCampaign(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/i/demo-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var c handler.PublicCampaign
	require.NoError(t, json.NewDecoder(w.Body).Decode(&c))
	assert.Equal(t, "demo-campaign-1", c.ID)
	require.Len(t, c.Platforms, 2)
	assert.Equal(t, "Instagram", c.Platforms[0].Label)

	w = f.do(t, http.MethodGet, "/i/summer-fashion-2025", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Body.String(), "pr@fashion-brand.com")

	w = f.do(t, http.MethodGet, "/i/DEMO-TOKEN", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "tokens match exactly")
}

func TestStartSession_ClosedCampaign(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/i/summer-fashion-2025/sessions", nil)
	assert.Equal(t, http.StatusGone, w.Code)
}

func TestAgreeNDA_Unchecked(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/i/demo-token/sessions", nil)
	sid := decodeSession(t, w).ID

	w = f.do(t, http.MethodPost, "/i/demo-token/sessions/"+sid+"/nda/agree", map[string]bool{"agreed": false})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"nda"`)
}

func TestInvalidTransition(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodPost, "/i/demo-token/sessions", nil)
	sid := decodeSession(t, w).ID

	w = f.do(t, http.MethodPost, "/i/demo-token/sessions/"+sid+"/accept", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = f.do(t, http.MethodGet, "/i/demo-token/sessions/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubmit_ValidationThenSuccess(t *testing.T) {
	f := newFixture(t)
	sid := f.start(t, true)
	base := "/i/demo-token/sessions/" + sid

	w := f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var verr struct {
		Fields  map[string]string `json:"fields"`
		Session sessionView       `json:"session"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&verr))
	assert.Contains(t, verr.Fields, "activityName")
	assert.Contains(t, verr.Fields, "contact")
	assert.Equal(t, verr.Fields, verr.Session.Errors)
	assert.Empty(t, f.subs.Submissions)

	draft := model.NewSubmissionDraft()
	draft.ActivityName = "Tester"
	draft.MainSNS = "Instagram"
	draft.MainAccount = "@tester"
	draft.ContactEmail = "a@b.com"
	w = f.do(t, http.MethodPut, base+"/draft", draft)
	require.Equal(t, http.StatusOK, w.Code)
	s := decodeSession(t, w)
	assert.NotContains(t, s.Errors, "activityName")
	assert.NotContains(t, s.Errors, "contact")

	w = f.do(t, http.MethodPost, base+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s = decodeSession(t, w)
	assert.Equal(t, "thanks", s.Step.Name)

	require.Len(t, f.subs.Submissions, 1)
	got := f.subs.Submissions[0]
	assert.Equal(t, "demo-campaign-1", got.CampaignID)
	assert.Equal(t, "Tester", got.ActivityName)
	assert.Equal(t, "a@b.com", got.Contact.Email)

	w = f.do(t, http.MethodPost, base+"/reset", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nda", decodeSession(t, w).Step.Name)
}

func TestOptIn(t *testing.T) {
	f := newFixture(t)
	sid := f.start(t, false)
	base := "/i/demo-token/sessions/" + sid

	w := f.do(t, http.MethodPut, base+"/optin", model.OptInDraft{ContactLineID: "tester_line"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/optin", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s := decodeSession(t, w)
	assert.Equal(t, "thanks", s.Step.Name)
	require.NotNil(t, s.Step.Accepted)
	assert.False(t, *s.Step.Accepted)
	require.Len(t, f.subs.OptIns, 1)
}

func TestFetchMetrics(t *testing.T) {
	f := newFixture(t)
	sid := f.start(t, true)
	base := "/i/demo-token/sessions/" + sid

	draft := model.NewSubmissionDraft()
	draft.SocialAccounts = []model.SocialAccount{
		{Platform: "instagram", URL: "https://instagram.com/tester"},
		{Platform: "X", URL: "https://x.com/tester"},
	}
	w := f.do(t, http.MethodPut, base+"/draft", draft)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, base+"/accounts/0/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(4200), decodeSession(t, w).Draft.SocialAccounts[0].Followers)

	w = f.do(t, http.MethodPost, base+"/accounts/1/metrics", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), appErrors.ErrPolicyBlocked.Error())

	w = f.do(t, http.MethodPost, base+"/accounts/zero/metrics", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, ct := range files {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="files"; filename="`+name+`"`)
		hdr.Set("Content-Type", ct)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadAndDelete(t *testing.T) {
	f := newFixture(t)
	sid := f.start(t, true)
	base := "/i/demo-token/sessions/" + sid

	body, ct := multipartBody(t, map[string]string{"reach.png": "image/png", "notes.txt": "text/plain"})
	req := httptest.NewRequest(http.MethodPost, base+"/uploads", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res struct {
		URLs    []string        `json:"urls"`
		Results []upload.Result `json:"results"`
		Session sessionView     `json:"session"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res.URLs, 1)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, res.URLs, res.Session.Attachments)

	w = f.do(t, http.MethodDelete, base+"/uploads?ref="+url.QueryEscape(res.URLs[0]), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, decodeSession(t, w).Attachments)

	w = f.do(t, http.MethodDelete, base+"/uploads?ref="+url.QueryEscape(res.URLs[0]), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodDelete, base+"/uploads", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListPlatforms(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/platforms", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Data []metrics.Capability `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	require.Len(t, res.Data, len(model.SupportedPlatforms))
	for _, c := range res.Data {
		switch c.Platform {
		case model.PlatformInstagram:
			assert.True(t, c.AutoFetch)
		case model.PlatformX:
			assert.False(t, c.AutoFetch)
			assert.Equal(t, appErrors.ErrPolicyBlocked.Error(), c.Reason)
		default:
			assert.False(t, c.AutoFetch)
		}
	}
}
