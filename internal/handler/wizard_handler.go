// internal/handler/wizard_handler.go
package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/metrics"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/upload"
	"github.com/unclebandit/partnerconnex-backend/internal/wizard"
)

type CampaignLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Campaign, error)
}

type CapabilityLister interface {
	Capabilities() []metrics.Capability
}

// WizardHandler serves the influencer-facing routes under /i/{token}.
type WizardHandler struct {
	Campaigns CampaignLookup
	Wizard    *wizard.Service
	Platforms CapabilityLister
	// MaxUploadBytes caps the whole multipart body of one upload request.
	MaxUploadBytes int64
}

// PublicCampaign is what an influencer sees. Creator and report data stay admin-only.
type PublicCampaign struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Slug         string          `json:"slug"`
	Summary      string          `json:"summary"`
	Requirements string          `json:"requirements"`
	Restrictions string          `json:"restrictions"`
	Platforms    []PlatformLabel `json:"platforms"`
	Deadline     time.Time       `json:"deadline"`
	NDAURL       string          `json:"nda_url,omitempty"`
	ContactEmail string          `json:"contact_email"`
	Status       string          `json:"status"`
}

type PlatformLabel struct {
	ID    model.Platform `json:"id"`
	Label string         `json:"label"`
}

func newPublicCampaign(c *model.Campaign) PublicCampaign {
	platforms := make([]PlatformLabel, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		platforms = append(platforms, PlatformLabel{ID: p, Label: p.Label()})
	}
	return PublicCampaign{
		ID:           c.ID,
		Title:        c.Title,
		Slug:         c.Slug,
		Summary:      c.Summary,
		Requirements: c.Requirements,
		Restrictions: c.Restrictions,
		Platforms:    platforms,
		Deadline:     c.Deadline,
		NDAURL:       c.NDAURL,
		ContactEmail: c.ContactEmail,
		Status:       string(c.Status),
	}
}

// Routes mounts the wizard under the caller's /i/{token} route.
func (h *WizardHandler) Routes(r chi.Router) {
	r.Get("/", h.GetCampaign)
	r.Post("/sessions", h.StartSession)
	r.Route("/sessions/{sid}", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/nda/scroll", h.RecordNDAScroll)
		r.Post("/nda/loaded", h.transition((*wizard.Service).MarkNDADocumentLoaded))
		r.Post("/nda/agree", h.AgreeNDA)
		r.Post("/accept", h.transition((*wizard.Service).Accept))
		r.Post("/decline", h.transition((*wizard.Service).Decline))
		r.Post("/back", h.transition((*wizard.Service).Back))
		r.Post("/reset", h.transition((*wizard.Service).BackToStart))
		r.Put("/draft", h.UpdateDraft)
		r.Put("/optin", h.UpdateOptIn)
		r.Post("/accounts/{index}/metrics", h.FetchMetrics)
		r.Post("/submit", h.transition((*wizard.Service).Submit))
		r.Post("/optin", h.transition((*wizard.Service).SubmitOptIn))
		r.Post("/uploads", h.Upload)
		r.Delete("/uploads", h.DeleteUpload)
	})
}

// ====== campaign view ======

// GetCampaign resolves the distribution token. A closed campaign answers 410
// with the contact address so the influencer can still reach the brand.
func (h *WizardHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	c, err := h.Campaigns.GetByToken(r.Context(), token)
	if err != nil {
		WriteError(w, err)
		return
	}
	if !c.IsOpen() {
		WriteJSON(w, http.StatusGone, map[string]interface{}{
			"error":         "Recruitment for this campaign has ended",
			"code":          "campaign_closed",
			"title":         c.Title,
			"contact_email": c.ContactEmail,
		})
		return
	}
	WriteJSON(w, http.StatusOK, newPublicCampaign(c))
}

// ListPlatforms lists the selectable platforms and whether followers can be fetched.
func (h *WizardHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]interface{}{"data": h.Platforms.Capabilities()})
}

// ====== session ======

func (h *WizardHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Wizard.Start(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, sess)
}

func (h *WizardHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Wizard.Get(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, sess)
}

type transitionFunc func(s *wizard.Service, ctx context.Context, token, sessionID string) (*wizard.Session, error)

// transition adapts a body-less wizard operation to a handler.
func (h *WizardHandler) transition(fn transitionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := fn(h.Wizard, r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"))
		h.respond(w, sess, err)
	}
}

// respond writes the session, or the error with the session attached when
// the failure left state the client should render.
func (h *WizardHandler) respond(w http.ResponseWriter, sess *wizard.Session, err error) {
	if err == nil {
		WriteJSON(w, http.StatusOK, sess)
		return
	}
	var verr *appErrors.ValidationError
	if errors.As(err, &verr) && sess != nil {
		WriteJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   "validation failed",
			"code":    "validation_failed",
			"fields":  verr.Fields,
			"session": sess,
		})
		return
	}
	WriteError(w, err)
}

func (h *WizardHandler) RecordNDAScroll(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ScrollTop    float64 `json:"scroll_top"`
		ClientHeight float64 `json:"client_height"`
		ScrollHeight float64 `json:"scroll_height"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		BadRequest(w, "invalid body")
		return
	}
	sess, err := h.Wizard.RecordNDAScroll(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"),
		body.ScrollTop, body.ClientHeight, body.ScrollHeight)
	h.respond(w, sess, err)
}

func (h *WizardHandler) AgreeNDA(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Agreed bool `json:"agreed"`
	}
	if err := DecodeJSON(r, &body); err != nil {
		BadRequest(w, "invalid body")
		return
	}
	sess, err := h.Wizard.AgreeNDA(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), body.Agreed)
	h.respond(w, sess, err)
}

func (h *WizardHandler) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	var draft model.SubmissionDraft
	if err := DecodeJSON(r, &draft); err != nil {
		BadRequest(w, "invalid body")
		return
	}
	sess, err := h.Wizard.UpdateDraft(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), draft)
	h.respond(w, sess, err)
}

func (h *WizardHandler) UpdateOptIn(w http.ResponseWriter, r *http.Request) {
	var draft model.OptInDraft
	if err := DecodeJSON(r, &draft); err != nil {
		BadRequest(w, "invalid body")
		return
	}
	sess, err := h.Wizard.UpdateOptIn(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), draft)
	h.respond(w, sess, err)
}

// ====== metrics ======

// FetchMetrics runs one follower lookup. Upstream API failures answer 502.
func (h *WizardHandler) FetchMetrics(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		BadRequest(w, "invalid account index")
		return
	}
	sess, err := h.Wizard.FetchMetrics(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), index)
	if err == nil {
		WriteJSON(w, http.StatusOK, sess)
		return
	}
	var verr *appErrors.ValidationError
	if errors.As(err, &verr) {
		h.respond(w, sess, err)
		return
	}
	writeErrorWithFallback(w, err, http.StatusBadGateway, "metrics_unavailable")
}

// ====== uploads ======

const multipartMemory = 32 << 20

func (h *WizardHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			WriteError(w, appErrors.ErrFileTooLarge)
			return
		}
		BadRequest(w, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		BadRequest(w, "no files")
		return
	}

	files := make([]upload.File, 0, len(headers))
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			BadRequest(w, "unreadable file "+fh.Filename)
			return
		}
		closers = append(closers, f)
		files = append(files, upload.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	sess, results, err := h.Wizard.Upload(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), files)
	if err != nil {
		WriteError(w, err)
		return
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"session_id": sess.ID,
		"files":      len(files),
		"stored":     len(upload.URLs(results)),
	}).Info("📎 Attachments uploaded")

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"urls":    upload.URLs(results),
		"results": results,
		"session": sess,
	})
}

func (h *WizardHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("ref")
	if ref == "" {
		BadRequest(w, "ref is required")
		return
	}
	sess, err := h.Wizard.DeleteAttachment(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "sid"), ref)
	h.respond(w, sess, err)
}
