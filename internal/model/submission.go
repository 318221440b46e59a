// internal/model/submission.go
package model

import (
	"strings"
	"time"
)

type SocialAccount struct {
	Platform  string     `json:"platform"`
	URL       string     `json:"url"`
	Followers int64      `json:"followers"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
	IsLoading bool       `json:"is_loading,omitempty"`
}

// GenderRatio holds audience percentages. The setters keep Male+Female at 100.
type GenderRatio struct {
	Male   int `json:"male"`
	Female int `json:"female"`
}

func DefaultGenderRatio() GenderRatio {
	return GenderRatio{Male: 50, Female: 50}
}

func (g *GenderRatio) SetMale(v int) {
	g.Male = v
	g.Female = 100 - v
}

func (g *GenderRatio) SetFemale(v int) {
	g.Female = v
	g.Male = 100 - v
}

type Contact struct {
	Email  string `json:"email,omitempty"`
	LineID string `json:"line_id,omitempty"`
}

// SubmissionDraft is the editable accept-path form.
type SubmissionDraft struct {
	ActivityName   string          `json:"activity_name"`
	MainSNS        string          `json:"main_sns"`
	MainAccount    string          `json:"main_account"`
	SocialAccounts []SocialAccount `json:"social_accounts"`
	GenderRatio    GenderRatio     `json:"gender_ratio"`
	ContactEmail   string          `json:"contact_email"`
	ContactLineID  string          `json:"contact_line_id"`
	Memo           string          `json:"memo"`
}

// NewSubmissionDraft returns the initial form: one empty account row and a 50/50 ratio.
func NewSubmissionDraft() SubmissionDraft {
	return SubmissionDraft{
		SocialAccounts: []SocialAccount{{}},
		GenderRatio:    DefaultGenderRatio(),
	}
}

// Submission is the payload handed to the persistence collaborator. It is built
// fresh for every submit attempt and never mutated afterwards.
type Submission struct {
	ID             string          `db:"id" json:"id"`
	CampaignID     string          `db:"campaign_id" json:"campaign_id"`
	ActivityName   string          `db:"activity_name" json:"activity_name"`
	MainSNS        string          `db:"main_sns" json:"main_sns"`
	MainAccount    string          `db:"main_account" json:"main_account"`
	SocialAccounts []SocialAccount `db:"social_accounts" json:"social_accounts"`
	GenderRatio    GenderRatio     `db:"gender_ratio" json:"gender_ratio"`
	Contact        Contact         `db:"contact" json:"contact"`
	Memo           string          `db:"memo" json:"memo,omitempty"`
	Attachments    []string        `db:"attachments" json:"attachments,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Build produces the Submission for campaignID. Strings are trimmed, account rows
// without a platform or URL are dropped and loading flags are cleared.
func (d SubmissionDraft) Build(campaignID string) Submission {
	accounts := make([]SocialAccount, 0, len(d.SocialAccounts))
	for _, acc := range d.SocialAccounts {
		if acc.Platform == "" || acc.URL == "" {
			continue
		}
		acc.IsLoading = false
		accounts = append(accounts, acc)
	}
	return Submission{
		CampaignID:     campaignID,
		ActivityName:   strings.TrimSpace(d.ActivityName),
		MainSNS:        d.MainSNS,
		MainAccount:    strings.TrimSpace(d.MainAccount),
		SocialAccounts: accounts,
		GenderRatio:    d.GenderRatio,
		Contact: Contact{
			Email:  d.ContactEmail,
			LineID: d.ContactLineID,
		},
		Memo: strings.TrimSpace(d.Memo),
	}
}

// OptIn is the decline-path record: the influencer passes on this campaign but
// asks to be contacted for future ones.
type OptIn struct {
	ID           string    `db:"id" json:"id"`
	CampaignID   string    `db:"campaign_id" json:"campaign_id"`
	ActivityName string    `db:"activity_name" json:"activity_name,omitempty"`
	Contact      Contact   `db:"contact" json:"contact"`
	Memo         string    `db:"memo" json:"memo,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type OptInDraft struct {
	ActivityName  string `json:"activity_name"`
	ContactEmail  string `json:"contact_email"`
	ContactLineID string `json:"contact_line_id"`
	Memo          string `json:"memo"`
}

func (d OptInDraft) Build(campaignID string) OptIn {
	return OptIn{
		CampaignID:   campaignID,
		ActivityName: strings.TrimSpace(d.ActivityName),
		Contact: Contact{
			Email:  d.ContactEmail,
			LineID: d.ContactLineID,
		},
		Memo: strings.TrimSpace(d.Memo),
	}
}
