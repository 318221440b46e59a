package wizard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/metrics"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/upload"
)

type CampaignLookup interface {
	GetBySlug(ctx context.Context, slug string) (*model.Campaign, error)
}

// Submitter is the persistence collaborator for both branches.
type Submitter interface {
	Submit(ctx context.Context, campaignID string, draft model.SubmissionDraft, attachments []string) (*model.Submission, error)
	OptIn(ctx context.Context, campaignID string, draft model.OptInDraft) (*model.OptIn, error)
}

type MetricsFetcher interface {
	Fetch(ctx context.Context, platformID, profileRef string) (metrics.Result, error)
}

type FileUploader interface {
	UploadFiles(ctx context.Context, files []upload.File) []upload.Result
	ObjectKey(ref string) (string, error)
	Delete(ctx context.Context, ref string) error
}

// Service loads a session, applies one transition and saves it.
//
// Fetches and uploads run outside the session lock under a context owned by
// the session. Any step change cancels those contexts, and a result that
// arrives after the step changed is discarded with ErrStaleSession.
type Service struct {
	Campaigns      CampaignLookup
	Store          Store
	Submitter      Submitter
	Metrics        MetricsFetcher
	Uploader       FileUploader
	RequireNDAView bool
	NewID          func() string

	locks keyedMutex

	mu         sync.Mutex
	nextCall   uint64
	inflight   map[string]map[uint64]context.CancelFunc
	submitting map[string]bool
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

// ====== lifecycle ======

// Start opens a session for the campaign behind token. Closed campaigns do
// not accept new sessions.
func (s *Service) Start(ctx context.Context, token string) (*Session, error) {
	c, err := s.Campaigns.GetBySlug(ctx, token)
	if err != nil {
		return nil, err
	}
	if !c.IsOpen() {
		return nil, appErrors.ErrCampaignClosed
	}
	sess := NewSession(s.newID(), c, s.RequireNDAView)
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"session_id":  sess.ID,
		"campaign_id": c.ID,
	}).Debug("Wizard session started")
	return sess, nil
}

// Get returns the session if it belongs to token and the campaign still resolves.
func (s *Service) Get(ctx context.Context, token, sessionID string) (*Session, error) {
	if _, err := s.Campaigns.GetBySlug(ctx, token); err != nil {
		return nil, err
	}
	return s.load(ctx, token, sessionID)
}

func (s *Service) load(ctx context.Context, token, sessionID string) (*Session, error) {
	sess, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.CampaignSlug != token {
		return nil, appErrors.NewSessionNotFound(sessionID)
	}
	return sess, nil
}

// mutate runs fn on the stored session under the session lock and saves the
// result. A step change cancels the session's pending calls.
func (s *Service) mutate(ctx context.Context, token, sessionID string, fn func(*Session) error) (*Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if s.isSubmitting(sessionID) {
		return sess, appErrors.ErrSubmitInFlight
	}
	gen := sess.Generation
	if err := fn(sess); err != nil {
		return sess, err
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	if sess.Generation != gen {
		s.cancelPending(sessionID)
	}
	return sess, nil
}

// ====== transitions ======

func (s *Service) RecordNDAScroll(ctx context.Context, token, sessionID string, scrollTop, clientHeight, scrollHeight float64) (*Session, error) {
	return s.mutate(ctx, token, sessionID, func(sess *Session) error {
		_, err := sess.RecordNDAScroll(scrollTop, clientHeight, scrollHeight)
		return err
	})
}

func (s *Service) MarkNDADocumentLoaded(ctx context.Context, token, sessionID string) (*Session, error) {
	return s.mutate(ctx, token, sessionID, (*Session).MarkNDADocumentLoaded)
}

func (s *Service) AgreeNDA(ctx context.Context, token, sessionID string, agreed bool) (*Session, error) {
	return s.mutate(ctx, token, sessionID, func(sess *Session) error {
		return sess.AgreeNDA(agreed)
	})
}

func (s *Service) Accept(ctx context.Context, token, sessionID string) (*Session, error) {
	return s.mutate(ctx, token, sessionID, (*Session).Accept)
}

func (s *Service) Decline(ctx context.Context, token, sessionID string) (*Session, error) {
	return s.mutate(ctx, token, sessionID, (*Session).Decline)
}

func (s *Service) Back(ctx context.Context, token, sessionID string) (*Session, error) {
	return s.mutate(ctx, token, sessionID, (*Session).Back)
}

// BackToStart resets a finished session. Attachments that never made it into
// a stored submission are removed from storage.
func (s *Service) BackToStart(ctx context.Context, token, sessionID string) (*Session, error) {
	var orphaned []string
	sess, err := s.mutate(ctx, token, sessionID, func(sess *Session) error {
		if sess.SubmissionID == "" || !acceptedThanks(sess.Step) {
			orphaned = append([]string(nil), sess.Attachments...)
		}
		return sess.BackToStart()
	})
	if err != nil {
		return sess, err
	}
	s.discardUploads(ctx, orphaned)
	return sess, nil
}

func acceptedThanks(step Step) bool {
	st, ok := step.(StepThanks)
	return ok && st.Accepted
}

func (s *Service) UpdateDraft(ctx context.Context, token, sessionID string, draft model.SubmissionDraft) (*Session, error) {
	return s.mutate(ctx, token, sessionID, func(sess *Session) error {
		return sess.UpdateDraft(draft)
	})
}

func (s *Service) UpdateOptIn(ctx context.Context, token, sessionID string, draft model.OptInDraft) (*Session, error) {
	return s.mutate(ctx, token, sessionID, func(sess *Session) error {
		return sess.UpdateOptIn(draft)
	})
}

// ====== submit ======

// Submit sends the accept-path draft. A second call while one is pending gets
// ErrSubmitInFlight. Validation errors are stored on the session; any failure
// leaves the draft untouched.
func (s *Service) Submit(ctx context.Context, token, sessionID string) (*Session, error) {
	sess, err := s.beginSubmit(ctx, token, sessionID, true)
	if err != nil {
		return sess, err
	}
	draft := sess.Draft
	attachments := append([]string(nil), sess.Attachments...)

	record, submitErr := s.Submitter.Submit(ctx, sess.CampaignID, draft, attachments)
	return s.finishSubmit(ctx, token, sessionID, submitErr, func() string { return record.ID })
}

// SubmitOptIn sends the decline-path form.
func (s *Service) SubmitOptIn(ctx context.Context, token, sessionID string) (*Session, error) {
	sess, err := s.beginSubmit(ctx, token, sessionID, false)
	if err != nil {
		return sess, err
	}
	record, submitErr := s.Submitter.OptIn(ctx, sess.CampaignID, sess.OptIn)
	return s.finishSubmit(ctx, token, sessionID, submitErr, func() string { return record.ID })
}

func (s *Service) beginSubmit(ctx context.Context, token, sessionID string, accepted bool) (*Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()

	sess, err := s.load(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	if st, ok := sess.Step.(StepSubmission); !ok || st.Accepted != accepted {
		return sess, appErrors.ErrInvalidTransition
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting == nil {
		s.submitting = map[string]bool{}
	}
	if s.submitting[sessionID] {
		return sess, appErrors.ErrSubmitInFlight
	}
	s.submitting[sessionID] = true
	return sess, nil
}

func (s *Service) finishSubmit(ctx context.Context, token, sessionID string, submitErr error, recordID func() string) (*Session, error) {
	unlock := s.locks.Lock(sessionID)
	defer unlock()
	defer func() {
		s.mu.Lock()
		delete(s.submitting, sessionID)
		s.mu.Unlock()
	}()

	sess, err := s.load(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}

	if submitErr != nil {
		var verr *appErrors.ValidationError
		if errors.As(submitErr, &verr) {
			sess.Errors = verr.Fields
			sess.UpdatedAt = time.Now().UTC()
			if err := s.Store.Save(ctx, sess); err != nil {
				return nil, err
			}
		} else {
			logger.GetLogger().WithFields(map[string]interface{}{
				"session_id":  sessionID,
				"campaign_id": sess.CampaignID,
				"error":       submitErr,
			}).Warn("⚠️ Submission failed, draft kept for retry")
		}
		return sess, submitErr
	}

	if err := sess.SubmitSucceeded(recordID()); err != nil {
		return sess, err
	}
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.cancelPending(sessionID)
	return sess, nil
}

func (s *Service) isSubmitting(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting[sessionID]
}

// ====== metrics ======

// FetchMetrics looks up followers for one account row and writes the count
// back if the session has not moved on and the row still names the same profile.
func (s *Service) FetchMetrics(ctx context.Context, token, sessionID string, index int) (*Session, error) {
	var row model.SocialAccount
	var gen uint64
	_, err := s.mutate(ctx, token, sessionID, func(sess *Session) error {
		if st, ok := sess.Step.(StepSubmission); !ok || !st.Accepted {
			return appErrors.ErrInvalidTransition
		}
		if index < 0 || index >= len(sess.Draft.SocialAccounts) {
			return appErrors.NewValidationError(map[string]string{"socialAccounts": "No such account row"})
		}
		row = sess.Draft.SocialAccounts[index]
		if row.Platform == "" || row.URL == "" {
			return appErrors.NewValidationError(map[string]string{"socialAccounts": "Select a platform and enter the account URL first"})
		}
		sess.Draft.SocialAccounts[index].IsLoading = true
		gen = sess.Generation
		return nil
	})
	if err != nil {
		return nil, err
	}

	callCtx, release := s.track(ctx, sessionID)
	result, fetchErr := s.Metrics.Fetch(callCtx, row.Platform, row.URL)
	release()

	unlock := s.locks.Lock(sessionID)
	defer unlock()
	sess, err := s.load(ctx, token, sessionID)
	if err != nil {
		return nil, err
	}
	matches := index < len(sess.Draft.SocialAccounts) && sameAccount(sess.Draft.SocialAccounts[index], row)
	if matches {
		sess.Draft.SocialAccounts[index].IsLoading = false
	}
	switch {
	case sess.Generation != gen || !matches:
		fetchErr = appErrors.ErrStaleSession
	case fetchErr == nil:
		fetched := result.FetchedAt
		sess.Draft.SocialAccounts[index].Followers = result.Count
		sess.Draft.SocialAccounts[index].FetchedAt = &fetched
	}
	sess.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, err
	}
	return sess, fetchErr
}

// ====== attachments ======

// Upload stores files one at a time and attaches the successful ones. The
// per-file results are returned either way.
func (s *Service) Upload(ctx context.Context, token, sessionID string, files []upload.File) (*Session, []upload.Result, error) {
	var gen uint64
	if _, err := s.mutate(ctx, token, sessionID, func(sess *Session) error {
		if st, ok := sess.Step.(StepSubmission); !ok || !st.Accepted {
			return appErrors.ErrInvalidTransition
		}
		gen = sess.Generation
		return nil
	}); err != nil {
		return nil, nil, err
	}

	callCtx, release := s.track(ctx, sessionID)
	results := s.Uploader.UploadFiles(callCtx, files)
	release()
	urls := upload.URLs(results)

	unlock := s.locks.Lock(sessionID)
	defer unlock()
	sess, err := s.load(ctx, token, sessionID)
	if err != nil {
		return nil, results, err
	}
	if sess.Generation != gen {
		s.discardUploads(ctx, urls)
		return sess, results, appErrors.ErrStaleSession
	}
	sess.Attachments = append(sess.Attachments, urls...)
	sess.UpdatedAt = time.Now().UTC()
	if err := s.Store.Save(ctx, sess); err != nil {
		return nil, results, err
	}
	return sess, results, nil
}

func (s *Service) discardUploads(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if err := s.Uploader.Delete(context.WithoutCancel(ctx), ref); err != nil {
			logger.GetLogger().WithFields(map[string]interface{}{
				"object": ref,
				"error":  err,
			}).Warn("⚠️ Failed to remove upload from abandoned step")
		}
	}
}

// DeleteAttachment removes one of the session's own attachments. ref may be
// the stored URL or its object path; both resolve to the same key. A ref the
// session does not hold is not found and storage is left alone.
func (s *Service) DeleteAttachment(ctx context.Context, token, sessionID, ref string) (*Session, error) {
	return s.mutate(ctx, token, sessionID, func(sess *Session) error {
		if st, ok := sess.Step.(StepSubmission); !ok || !st.Accepted {
			return appErrors.ErrInvalidTransition
		}
		key, err := s.Uploader.ObjectKey(ref)
		if err != nil {
			return err
		}
		match := -1
		for i, a := range sess.Attachments {
			if k, err := s.Uploader.ObjectKey(a); err == nil && k == key {
				match = i
				break
			}
		}
		if match < 0 {
			return appErrors.NewAttachmentNotFound(ref)
		}
		if err := s.Uploader.Delete(ctx, sess.Attachments[match]); err != nil {
			return err
		}
		sess.Attachments = append(sess.Attachments[:match], sess.Attachments[match+1:]...)
		sess.UpdatedAt = time.Now().UTC()
		return nil
	})
}

// ====== cancellation scopes ======

func (s *Service) track(ctx context.Context, sessionID string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.inflight == nil {
		s.inflight = map[string]map[uint64]context.CancelFunc{}
	}
	s.nextCall++
	id := s.nextCall
	if s.inflight[sessionID] == nil {
		s.inflight[sessionID] = map[uint64]context.CancelFunc{}
	}
	s.inflight[sessionID][id] = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		delete(s.inflight[sessionID], id)
		if len(s.inflight[sessionID]) == 0 {
			delete(s.inflight, sessionID)
		}
		s.mu.Unlock()
		cancel()
	}
}

func (s *Service) cancelPending(sessionID string) {
	s.mu.Lock()
	pending := s.inflight[sessionID]
	delete(s.inflight, sessionID)
	s.mu.Unlock()
	for _, cancel := range pending {
		cancel()
	}
}

// PendingCalls reports how many fetches or uploads are running for a session.
func (s *Service) PendingCalls(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight[sessionID])
}

// keyedMutex serializes load-modify-save per session id.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = map[string]*refMutex{}
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
