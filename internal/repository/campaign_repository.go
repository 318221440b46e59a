package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/partnerconnex-backend/internal/errors"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

// CampaignRepositoryInterface is the campaign directory.
type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	GetBySlug(ctx context.Context, slug string) (*model.Campaign, error)
	ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	Close(ctx context.Context, id string, creators []model.Creator, sheetURL, reportURL string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

const uniqueViolation = "23505"

const campaignColumns = `id, title, slug, summary, requirements, restrictions, platforms, deadline,
        nda_url, status, contact_email, management_sheet_url, report_url, created_at`

// ====================== Campaign CRUD ======================

// Create inserts the campaign and its creators in one transaction.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaigns (` + campaignColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
    `
	_, err = tx.ExecContext(ctx, query,
		c.ID, c.Title, c.Slug, c.Summary, c.Requirements, c.Restrictions,
		pq.Array(platformStrings(c.Platforms)), c.Deadline, c.NDAURL, string(c.Status),
		c.ContactEmail, c.ManagementSheetURL, c.ReportURL, c.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return appErrors.ErrSlugTaken
		}
		return err
	}
	if err := r.insertCreators(ctx, tx, c.ID, c.Creators); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	if c.Creators, err = r.listCreators(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// GetBySlug matches the distribution token exactly.
func (r *CampaignRepository) GetBySlug(ctx context.Context, slug string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE slug=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, slug))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewTokenNotFound(slug)
		}
		return nil, err
	}
	if c.Creators, err = r.listCreators(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns returns campaigns in creation order.
func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// Close marks the campaign closed and records tie-up creators and report links
// in one transaction.
func (r *CampaignRepository) Close(ctx context.Context, id string, creators []model.Creator, sheetURL, reportURL string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM campaigns WHERE id=$1 FOR UPDATE`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewCampaignNotFound(id)
		}
		return err
	}
	if !model.CampaignStatus(status).CanTransition(model.CampaignClosed) {
		return appErrors.ErrInvalidStatusTransition
	}

	query := `
        UPDATE campaigns
        SET status=$1,
            management_sheet_url=COALESCE(NULLIF($2, ''), management_sheet_url),
            report_url=COALESCE(NULLIF($3, ''), report_url)
        WHERE id=$4
    `
	if _, err := tx.ExecContext(ctx, query, string(model.CampaignClosed), sheetURL, reportURL, id); err != nil {
		return err
	}
	if err := r.insertCreators(ctx, tx, id, creators); err != nil {
		return err
	}
	return tx.Commit()
}

// ====================== Creators ======================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (r *CampaignRepository) insertCreators(ctx context.Context, ex execer, campaignID string, creators []model.Creator) error {
	query := `
        INSERT INTO campaign_creators (id, campaign_id, name, account_url, deliverable_url, position)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	for i, cr := range creators {
		if cr.ID == "" {
			cr.ID = uuid.NewString()
		}
		if _, err := ex.ExecContext(ctx, query, cr.ID, campaignID, cr.Name, cr.AccountURL, cr.DeliverableURL, i); err != nil {
			return fmt.Errorf("insert creator %q: %w", cr.Name, err)
		}
	}
	return nil
}

func (r *CampaignRepository) listCreators(ctx context.Context, campaignID string) ([]model.Creator, error) {
	query := `
        SELECT id, name, account_url, deliverable_url
        FROM campaign_creators
        WHERE campaign_id=$1
        ORDER BY position
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creators []model.Creator
	for rows.Next() {
		var cr model.Creator
		if err := rows.Scan(&cr.ID, &cr.Name, &cr.AccountURL, &cr.DeliverableURL); err != nil {
			return nil, err
		}
		creators = append(creators, cr)
	}
	return creators, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var platforms pq.StringArray
	var status string
	err := row.Scan(
		&c.ID, &c.Title, &c.Slug, &c.Summary, &c.Requirements, &c.Restrictions,
		&platforms, &c.Deadline, &c.NDAURL, &status, &c.ContactEmail,
		&c.ManagementSheetURL, &c.ReportURL, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Status = model.CampaignStatus(status)
	c.Platforms = make([]model.Platform, len(platforms))
	for i, p := range platforms {
		c.Platforms[i] = model.Platform(p)
	}
	return &c, nil
}

func platformStrings(ps []model.Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
