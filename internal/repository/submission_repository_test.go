package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/partnerconnex-backend/internal/model"
)

func TestSubmissionRepository_SaveSubmission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, time.UTC)
	repo := &SubmissionRepository{DB: db, Now: func() time.Time { return now }}
	s := &model.Submission{
		CampaignID:   "demo-campaign-1",
		ActivityName: "Tester",
		MainSNS:      "Instagram",
		MainAccount:  "@tester",
		GenderRatio:  model.GenderRatio{Male: 50, Female: 50},
		Contact:      model.Contact{Email: "a@b.com"},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs(sqlmock.AnyArg(), "demo-campaign-1", "Tester", "Instagram", "@tester", sqlmock.AnyArg(),
			50, 50, "a@b.com", nil, nil, "{}", now).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.SaveSubmission(context.Background(), s))
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, now, s.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_SaveSubmission_Attachments(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &SubmissionRepository{DB: db}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).
		WithArgs(sqlmock.AnyArg(), "demo-campaign-1", "Tester", "Instagram", "@tester", sqlmock.AnyArg(),
			50, 50, nil, "line-id", nil, `{"submissions/1-abc.png","submissions/2-def.pdf"}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s := &model.Submission{
		CampaignID:   "demo-campaign-1",
		ActivityName: "Tester",
		MainSNS:      "Instagram",
		MainAccount:  "@tester",
		GenderRatio:  model.GenderRatio{Male: 50, Female: 50},
		Contact:      model.Contact{LineID: "line-id"},
		Attachments:  []string{"submissions/1-abc.png", "submissions/2-def.pdf"},
	}
	require.NoError(t, repo.SaveSubmission(context.Background(), s))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_SaveOptIn(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &SubmissionRepository{DB: db}
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO opt_ins")).
		WithArgs(sqlmock.AnyArg(), "demo-campaign-1", nil, nil, "line-id", nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	o := &model.OptIn{CampaignID: "demo-campaign-1", Contact: model.Contact{LineID: "line-id"}}
	require.NoError(t, repo.SaveOptIn(context.Background(), o))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepository_GetCampaignStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &SubmissionRepository{DB: db}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM submissions")).
		WithArgs("demo-campaign-1").
		WillReturnRows(sqlmock.NewRows([]string{"submissions", "opt_ins"}).AddRow(3, 2))

	stats, err := repo.GetCampaignStats(context.Background(), "demo-campaign-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"submissions": 3, "opt_ins": 2, "total": 5}, stats)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMemorySubmissionRepository_Stats(t *testing.T) {
	repo := &MemorySubmissionRepository{}
	ctx := context.Background()

	require.NoError(t, repo.SaveSubmission(ctx, &model.Submission{CampaignID: "a"}))
	require.NoError(t, repo.SaveOptIn(ctx, &model.OptIn{CampaignID: "a"}))
	require.NoError(t, repo.SaveSubmission(ctx, &model.Submission{CampaignID: "b"}))

	stats, err := repo.GetCampaignStats(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, stats["submissions"])
	assert.Equal(t, 1, stats["opt_ins"])
	assert.Equal(t, 2, stats["total"])
}
