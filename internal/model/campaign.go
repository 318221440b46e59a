// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignOpen   CampaignStatus = "open"
	CampaignClosed CampaignStatus = "closed"
)

// CanTransition reports whether a campaign may move from s to the given status.
// The only transition is open -> closed; reopening is not supported.
func (s CampaignStatus) CanTransition(to CampaignStatus) bool {
	return s == CampaignOpen && to == CampaignClosed
}

func (s CampaignStatus) Valid() bool {
	return s == CampaignOpen || s == CampaignClosed
}

type Campaign struct {
	ID                 string         `db:"id" json:"id"`
	Title              string         `db:"title" json:"title"`
	Slug               string         `db:"slug" json:"slug"`
	Summary            string         `db:"summary" json:"summary"`
	Requirements       string         `db:"requirements" json:"requirements"`
	Restrictions       string         `db:"restrictions" json:"restrictions"`
	Platforms          []Platform     `db:"platforms" json:"platforms"`
	Deadline           time.Time      `db:"deadline" json:"deadline"`
	NDAURL             string         `db:"nda_url" json:"nda_url,omitempty"`
	Status             CampaignStatus `db:"status" json:"status"`
	ContactEmail       string         `db:"contact_email" json:"contact_email"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	Creators           []Creator      `json:"creators,omitempty"`
	ManagementSheetURL string         `db:"management_sheet_url" json:"management_sheet_url,omitempty"`
	ReportURL          string         `db:"report_url" json:"report_url,omitempty"`
}

func (c *Campaign) IsOpen() bool {
	return c.Status == CampaignOpen
}

// Creator is an influencer tie-up recorded when a campaign closes.
type Creator struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	AccountURL     string `db:"account_url" json:"account_url"`
	DeliverableURL string `db:"deliverable_url" json:"deliverable_url"`
}

// CampaignDraft is the admin input for a new campaign. ID and CreatedAt are
// assigned by the directory.
type CampaignDraft struct {
	Title              string         `json:"title"`
	Slug               string         `json:"slug"`
	Summary            string         `json:"summary"`
	Requirements       string         `json:"requirements"`
	Restrictions       string         `json:"restrictions"`
	Platforms          []Platform     `json:"platforms"`
	Deadline           time.Time      `json:"deadline"`
	NDAURL             string         `json:"nda_url,omitempty"`
	Status             CampaignStatus `json:"status,omitempty"`
	ContactEmail       string         `json:"contact_email"`
	ManagementSheetURL string         `json:"management_sheet_url,omitempty"`
	ReportURL          string         `json:"report_url,omitempty"`
}

// ToCampaign copies the draft into a Campaign with the given identity.
func (d CampaignDraft) ToCampaign(id string, createdAt time.Time) *Campaign {
	status := d.Status
	if status == "" {
		status = CampaignOpen
	}
	platforms := make([]Platform, len(d.Platforms))
	copy(platforms, d.Platforms)
	return &Campaign{
		ID:                 id,
		Title:              d.Title,
		Slug:               d.Slug,
		Summary:            d.Summary,
		Requirements:       d.Requirements,
		Restrictions:       d.Restrictions,
		Platforms:          platforms,
		Deadline:           d.Deadline,
		NDAURL:             d.NDAURL,
		Status:             status,
		ContactEmail:       d.ContactEmail,
		CreatedAt:          createdAt,
		ManagementSheetURL: d.ManagementSheetURL,
		ReportURL:          d.ReportURL,
	}
}
