package wizard

import (
	"encoding/json"
	"time"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/validator"
)

// NDAViewThreshold is the fraction of the NDA text that must be scrolled past
// before the agreement checkbox unlocks.
const NDAViewThreshold = 0.95

// Session is one influencer's pass through the wizard for one campaign.
type Session struct {
	ID             string
	CampaignID     string
	CampaignSlug   string
	HasNDADocument bool
	RequireNDAView bool

	Step       Step
	NDAViewed  bool
	NDAAgreed  bool
	ScrollTop  int
	Generation uint64

	Draft       model.SubmissionDraft
	OptIn       model.OptInDraft
	Errors      map[string]string
	Attachments []string

	SubmissionID string
	UpdatedAt    time.Time
}

// NewSession starts at the NDA step with an empty draft.
func NewSession(id string, c *model.Campaign, requireNDAView bool) *Session {
	return &Session{
		ID:             id,
		CampaignID:     c.ID,
		CampaignSlug:   c.Slug,
		HasNDADocument: c.NDAURL != "",
		RequireNDAView: requireNDAView,
		Step:           StepNDA{},
		Draft:          model.NewSubmissionDraft(),
		Errors:         map[string]string{},
		UpdatedAt:      time.Now().UTC(),
	}
}

func (s *Session) moveTo(next Step) {
	s.Step = next
	s.ScrollTop = 0
	s.Generation++
	s.UpdatedAt = time.Now().UTC()
}

// ====== NDA ======

// RecordNDAScroll marks the NDA as viewed once the visible bottom edge reaches
// the threshold. Returns whether the NDA is now viewed.
func (s *Session) RecordNDAScroll(scrollTop, clientHeight, scrollHeight float64) (bool, error) {
	if _, ok := s.Step.(StepNDA); !ok {
		return false, appErrors.ErrInvalidTransition
	}
	if scrollHeight <= 0 || (scrollTop+clientHeight)/scrollHeight >= NDAViewThreshold {
		s.NDAViewed = true
	}
	return s.NDAViewed, nil
}

// MarkNDADocumentLoaded counts an embedded NDA document as viewed once it has loaded.
func (s *Session) MarkNDADocumentLoaded() error {
	if _, ok := s.Step.(StepNDA); !ok {
		return appErrors.ErrInvalidTransition
	}
	if !s.HasNDADocument {
		return appErrors.ErrInvalidTransition
	}
	s.NDAViewed = true
	return nil
}

// AgreeNDA advances to Details. It requires the checkbox and, when the view
// guard is on, a completed read of the document.
func (s *Session) AgreeNDA(agreed bool) error {
	if _, ok := s.Step.(StepNDA); !ok {
		return appErrors.ErrInvalidTransition
	}
	if !agreed {
		return appErrors.NewValidationError(map[string]string{"nda": "You must agree to the NDA to continue"})
	}
	if s.RequireNDAView && !s.NDAViewed {
		return appErrors.NewValidationError(map[string]string{"nda": "Please read the NDA to the end before agreeing"})
	}
	s.NDAAgreed = true
	s.moveTo(StepDetails{})
	return nil
}

// ====== Details ======

func (s *Session) Accept() error {
	if _, ok := s.Step.(StepDetails); !ok {
		return appErrors.ErrInvalidTransition
	}
	s.moveTo(StepSubmission{Accepted: true})
	return nil
}

func (s *Session) Decline() error {
	if _, ok := s.Step.(StepDetails); !ok {
		return appErrors.ErrInvalidTransition
	}
	s.moveTo(StepSubmission{Accepted: false})
	return nil
}

// Back moves Details -> NDA or Submission -> Details. Returning to the NDA
// shows a fresh agreement, so the read and agree flags are cleared.
func (s *Session) Back() error {
	switch s.Step.(type) {
	case StepDetails:
		s.NDAViewed = false
		s.NDAAgreed = false
		s.moveTo(StepNDA{})
	case StepSubmission:
		s.moveTo(StepDetails{})
	default:
		return appErrors.ErrInvalidTransition
	}
	return nil
}

// ====== Submission ======

// SubmitSucceeded records the persisted id and moves to Thanks.
func (s *Session) SubmitSucceeded(recordID string) error {
	st, ok := s.Step.(StepSubmission)
	if !ok {
		return appErrors.ErrInvalidTransition
	}
	s.SubmissionID = recordID
	s.Errors = map[string]string{}
	s.moveTo(StepThanks{Accepted: st.Accepted})
	return nil
}

// UpdateDraft replaces the accept-path form. Error keys whose fields changed
// are cleared; the rest stay until the next submit. A ratio edit keeps the
// pair summing to 100, with male taking precedence when both changed.
func (s *Session) UpdateDraft(next model.SubmissionDraft) error {
	if st, ok := s.Step.(StepSubmission); !ok || !st.Accepted {
		return appErrors.ErrInvalidTransition
	}
	prev := s.Draft
	switch {
	case next.GenderRatio.Male != prev.GenderRatio.Male:
		next.GenderRatio.SetMale(next.GenderRatio.Male)
	case next.GenderRatio.Female != prev.GenderRatio.Female:
		next.GenderRatio.SetFemale(next.GenderRatio.Female)
	}

	changed := map[string]bool{
		validator.KeyActivityName: next.ActivityName != prev.ActivityName,
		validator.KeyMainSNS:      next.MainSNS != prev.MainSNS,
		validator.KeyMainAccount:  next.MainAccount != prev.MainAccount,
		validator.KeyEmail:        next.ContactEmail != prev.ContactEmail,
		"lineId":                  next.ContactLineID != prev.ContactLineID,
		validator.KeyGenderRatio:  next.GenderRatio != prev.GenderRatio,
	}
	for field, ok := range changed {
		if !ok {
			continue
		}
		for _, key := range validator.ClearedBy(field) {
			delete(s.Errors, key)
		}
	}

	// loading flags belong to the server
	for i := range next.SocialAccounts {
		next.SocialAccounts[i].IsLoading = i < len(prev.SocialAccounts) &&
			prev.SocialAccounts[i].IsLoading &&
			sameAccount(prev.SocialAccounts[i], next.SocialAccounts[i])
	}
	s.Draft = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateOptIn replaces the decline-path form.
func (s *Session) UpdateOptIn(next model.OptInDraft) error {
	if st, ok := s.Step.(StepSubmission); !ok || st.Accepted {
		return appErrors.ErrInvalidTransition
	}
	if next.ContactEmail != s.OptIn.ContactEmail {
		delete(s.Errors, validator.KeyContact)
		delete(s.Errors, validator.KeyEmail)
	}
	if next.ContactLineID != s.OptIn.ContactLineID {
		delete(s.Errors, validator.KeyContact)
	}
	s.OptIn = next
	s.UpdatedAt = time.Now().UTC()
	return nil
}

// ====== Thanks ======

// BackToStart resets the session to its initial NDA state.
func (s *Session) BackToStart() error {
	if _, ok := s.Step.(StepThanks); !ok {
		return appErrors.ErrInvalidTransition
	}
	s.NDAViewed = false
	s.NDAAgreed = false
	s.Draft = model.NewSubmissionDraft()
	s.OptIn = model.OptInDraft{}
	s.Errors = map[string]string{}
	s.Attachments = nil
	s.SubmissionID = ""
	s.moveTo(StepNDA{})
	return nil
}

func sameAccount(a, b model.SocialAccount) bool {
	return a.Platform == b.Platform && a.URL == b.URL
}

// ====== encoding ======

type sessionWire struct {
	ID             string                `json:"id"`
	CampaignID     string                `json:"campaign_id"`
	CampaignSlug   string                `json:"campaign_slug"`
	HasNDADocument bool                  `json:"has_nda_document"`
	RequireNDAView bool                  `json:"require_nda_view"`
	Step           stepWire              `json:"step"`
	NDAViewed      bool                  `json:"nda_viewed"`
	NDAAgreed      bool                  `json:"nda_agreed"`
	ScrollTop      int                   `json:"scroll_top"`
	Generation     uint64                `json:"generation"`
	Draft          model.SubmissionDraft `json:"draft"`
	OptIn          model.OptInDraft      `json:"opt_in"`
	Errors         map[string]string     `json:"errors"`
	Attachments    []string              `json:"attachments"`
	SubmissionID   string                `json:"submission_id,omitempty"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

func (s Session) MarshalJSON() ([]byte, error) {
	errs := s.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	attachments := s.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return json.Marshal(sessionWire{
		ID:             s.ID,
		CampaignID:     s.CampaignID,
		CampaignSlug:   s.CampaignSlug,
		HasNDADocument: s.HasNDADocument,
		RequireNDAView: s.RequireNDAView,
		Step:           encodeStep(s.Step),
		NDAViewed:      s.NDAViewed,
		NDAAgreed:      s.NDAAgreed,
		ScrollTop:      s.ScrollTop,
		Generation:     s.Generation,
		Draft:          s.Draft,
		OptIn:          s.OptIn,
		Errors:         errs,
		Attachments:    attachments,
		SubmissionID:   s.SubmissionID,
		UpdatedAt:      s.UpdatedAt,
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	step, err := decodeStep(w.Step)
	if err != nil {
		return err
	}
	if w.Errors == nil {
		w.Errors = map[string]string{}
	}
	*s = Session{
		ID:             w.ID,
		CampaignID:     w.CampaignID,
		CampaignSlug:   w.CampaignSlug,
		HasNDADocument: w.HasNDADocument,
		RequireNDAView: w.RequireNDAView,
		Step:           step,
		NDAViewed:      w.NDAViewed,
		NDAAgreed:      w.NDAAgreed,
		ScrollTop:      w.ScrollTop,
		Generation:     w.Generation,
		Draft:          w.Draft,
		OptIn:          w.OptIn,
		Errors:         w.Errors,
		Attachments:    w.Attachments,
		SubmissionID:   w.SubmissionID,
		UpdatedAt:      w.UpdatedAt,
	}
	return nil
}
