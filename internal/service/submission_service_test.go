package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/queue"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
	"github.com/unclebandit/partnerconnex-backend/internal/service"
	"github.com/unclebandit/partnerconnex-backend/internal/validator"
)

// MockSubmissionRepo records every payload it is handed.
type MockSubmissionRepo struct {
	mu          sync.Mutex
	Submissions []model.Submission
	OptIns      []model.OptIn
	Err         error
}

func (m *MockSubmissionRepo) SaveSubmission(_ context.Context, s *model.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Submissions = append(m.Submissions, *s)
	if m.Err != nil {
		return m.Err
	}
	s.ID = "sub-1"
	return nil
}

func (m *MockSubmissionRepo) SaveOptIn(_ context.Context, o *model.OptIn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OptIns = append(m.OptIns, *o)
	if m.Err != nil {
		return m.Err
	}
	o.ID = "opt-1"
	return nil
}

func (m *MockSubmissionRepo) GetCampaignStats(context.Context, string) (map[string]int, error) {
	return map[string]int{}, nil
}

// MockQueue captures published events.
type MockQueue struct {
	mu        sync.Mutex
	Published []any
	Err       error
}

func (q *MockQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Published = append(q.Published, payload)
	return q.Err
}

func (q *MockQueue) Subscribe(string, func(any) error) error { return nil }

func newSubmissionService() (*service.SubmissionService, *MockSubmissionRepo, *MockQueue) {
	repo := &MockSubmissionRepo{}
	q := &MockQueue{}
	return &service.SubmissionService{
		CampaignRepo:   repository.NewMemoryCampaignRepository(model.DemoCampaigns()...),
		SubmissionRepo: repo,
		Queue:          q,
	}, repo, q
}

func testerDraft() model.SubmissionDraft {
	d := model.NewSubmissionDraft()
	d.ActivityName = "Tester"
	d.MainSNS = "Instagram"
	d.MainAccount = "@tester"
	d.GenderRatio = model.GenderRatio{Male: 50, Female: 50}
	d.ContactEmail = "a@b.com"
	return d
}

func TestSubmit_EndToEnd(t *testing.T) {
	svc, repo, q := newSubmissionService()
	d := testerDraft()

	require.Empty(t, validator.ValidateSubmission(d))

	sub, err := svc.Submit(context.Background(), "demo-campaign-1", d, nil)
	require.NoError(t, err)
	assert.Equal(t, "sub-1", sub.ID)

	require.Len(t, repo.Submissions, 1)
	assert.Equal(t, model.Submission{
		CampaignID:     "demo-campaign-1",
		ActivityName:   "Tester",
		MainSNS:        "Instagram",
		MainAccount:    "@tester",
		SocialAccounts: []model.SocialAccount{},
		GenderRatio:    model.GenderRatio{Male: 50, Female: 50},
		Contact:        model.Contact{Email: "a@b.com"},
	}, repo.Submissions[0])

	require.Len(t, q.Published, 1)
	ev := q.Published[0].(queue.SubmissionEvent)
	assert.Equal(t, queue.KindSubmission, ev.Kind)
	assert.Equal(t, "sub-1", ev.RecordID)
	assert.Equal(t, "partnership@cosmetics-brand-a.com", ev.CampaignContact)
}

func TestSubmit_KeepsFilledAccountsAndAttachments(t *testing.T) {
	svc, repo, _ := newSubmissionService()
	fetched := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	d := testerDraft()
	d.ActivityName = "  Tester  "
	d.Memo = "  hello  "
	d.SocialAccounts = []model.SocialAccount{
		{Platform: "Instagram", URL: "https://instagram.com/tester", Followers: 1200, FetchedAt: &fetched, IsLoading: true},
		{Platform: "TikTok"},
		{URL: "https://example.com"},
	}

	_, err := svc.Submit(context.Background(), "demo-campaign-1", d, []string{"submissions/1-abc.png"})
	require.NoError(t, err)

	got := repo.Submissions[0]
	assert.Equal(t, "Tester", got.ActivityName)
	assert.Equal(t, "hello", got.Memo)
	require.Len(t, got.SocialAccounts, 1)
	assert.False(t, got.SocialAccounts[0].IsLoading)
	assert.Equal(t, int64(1200), got.SocialAccounts[0].Followers)
	assert.Equal(t, []string{"submissions/1-abc.png"}, got.Attachments)
}

func TestSubmit_ValidationFailureStoresNothing(t *testing.T) {
	svc, repo, q := newSubmissionService()
	d := testerDraft()
	d.ContactEmail = ""
	d.GenderRatio = model.GenderRatio{Male: 70, Female: 20}

	_, err := svc.Submit(context.Background(), "demo-campaign-1", d, nil)
	var verr *appErrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, validator.KeyContact)
	assert.Contains(t, verr.Fields, validator.KeyGenderRatio)
	assert.Empty(t, repo.Submissions)
	assert.Empty(t, q.Published)
}

func TestSubmit_ClosedCampaign(t *testing.T) {
	svc, repo, _ := newSubmissionService()

	_, err := svc.Submit(context.Background(), "demo-campaign-2", testerDraft(), nil)
	require.ErrorIs(t, err, appErrors.ErrCampaignClosed)
	assert.Empty(t, repo.Submissions)
}

func TestSubmit_PersistenceFailure(t *testing.T) {
	svc, repo, q := newSubmissionService()
	repo.Err = errors.New("connection reset")

	_, err := svc.Submit(context.Background(), "demo-campaign-1", testerDraft(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Empty(t, q.Published)
}

func TestSubmit_PublishFailureDoesNotFailSubmit(t *testing.T) {
	svc, repo, q := newSubmissionService()
	q.Err = errors.New("broker down")

	_, err := svc.Submit(context.Background(), "demo-campaign-1", testerDraft(), nil)
	require.NoError(t, err)
	assert.Len(t, repo.Submissions, 1)
}

func TestOptIn(t *testing.T) {
	svc, repo, q := newSubmissionService()

	o, err := svc.OptIn(context.Background(), "demo-campaign-1", model.OptInDraft{ActivityName: " Tester ", ContactLineID: "tester_line"})
	require.NoError(t, err)
	assert.Equal(t, "opt-1", o.ID)
	require.Len(t, repo.OptIns, 1)
	assert.Equal(t, "Tester", repo.OptIns[0].ActivityName)
	require.Len(t, q.Published, 1)
	assert.Equal(t, queue.KindOptIn, q.Published[0].(queue.SubmissionEvent).Kind)

	_, err = svc.OptIn(context.Background(), "demo-campaign-1", model.OptInDraft{})
	var verr *appErrors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, repo.OptIns, 1)
}
