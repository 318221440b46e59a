package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

// SubmissionRepositoryInterface is the persistence collaborator for wizard results.
type SubmissionRepositoryInterface interface {
	SaveSubmission(ctx context.Context, s *model.Submission) error
	SaveOptIn(ctx context.Context, o *model.OptIn) error
	GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error)
}

type SubmissionRepository struct {
	DB  *sql.DB
	Now func() time.Time
}

func (r *SubmissionRepository) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// SaveSubmission assigns ID and CreatedAt and inserts the record.
func (r *SubmissionRepository) SaveSubmission(ctx context.Context, s *model.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = r.now()

	accounts, err := json.Marshal(s.SocialAccounts)
	if err != nil {
		return fmt.Errorf("encode social accounts: %w", err)
	}

	query := `
        INSERT INTO submissions
        (id, campaign_id, activity_name, main_sns, main_account, social_accounts,
         gender_male, gender_female, contact_email, contact_line_id, memo, attachments, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `
	_, err = r.DB.ExecContext(ctx, query,
		s.ID, s.CampaignID, s.ActivityName, s.MainSNS, s.MainAccount, accounts,
		s.GenderRatio.Male, s.GenderRatio.Female,
		nullable(s.Contact.Email), nullable(s.Contact.LineID), nullable(s.Memo),
		pq.Array(nonNil(s.Attachments)), s.CreatedAt,
	)
	return err
}

func (r *SubmissionRepository) SaveOptIn(ctx context.Context, o *model.OptIn) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = r.now()

	query := `
        INSERT INTO opt_ins (id, campaign_id, activity_name, contact_email, contact_line_id, memo, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.ExecContext(ctx, query,
		o.ID, o.CampaignID, nullable(o.ActivityName),
		nullable(o.Contact.Email), nullable(o.Contact.LineID), nullable(o.Memo), o.CreatedAt,
	)
	return err
}

// GetCampaignStats counts submissions and opt-ins for a campaign.
func (r *SubmissionRepository) GetCampaignStats(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `
        SELECT
            (SELECT COUNT(*) FROM submissions WHERE campaign_id=$1),
            (SELECT COUNT(*) FROM opt_ins WHERE campaign_id=$1)
    `
	var submissions, optIns int
	if err := r.DB.QueryRowContext(ctx, query, campaignID).Scan(&submissions, &optIns); err != nil {
		return nil, err
	}
	return map[string]int{
		"submissions": submissions,
		"opt_ins":     optIns,
		"total":       submissions + optIns,
	}, nil
}

// nonNil keeps lib/pq from binding an empty list as NULL.
func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// MemorySubmissionRepository keeps records in process; used when no database is configured.
type MemorySubmissionRepository struct {
	mu          sync.Mutex
	Submissions []model.Submission
	OptIns      []model.OptIn
}

func (r *MemorySubmissionRepository) SaveSubmission(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = time.Now().UTC()
	r.Submissions = append(r.Submissions, *s)
	return nil
}

func (r *MemorySubmissionRepository) SaveOptIn(_ context.Context, o *model.OptIn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	o.CreatedAt = time.Now().UTC()
	r.OptIns = append(r.OptIns, *o)
	return nil
}

func (r *MemorySubmissionRepository) GetCampaignStats(_ context.Context, campaignID string) (map[string]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := map[string]int{"submissions": 0, "opt_ins": 0, "total": 0}
	for _, s := range r.Submissions {
		if s.CampaignID == campaignID {
			stats["submissions"]++
			stats["total"]++
		}
	}
	for _, o := range r.OptIns {
		if o.CampaignID == campaignID {
			stats["opt_ins"]++
			stats["total"]++
		}
	}
	return stats, nil
}

var (
	_ SubmissionRepositoryInterface = (*SubmissionRepository)(nil)
	_ SubmissionRepositoryInterface = (*MemorySubmissionRepository)(nil)
)
