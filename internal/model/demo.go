package model

import "time"

// DemoCampaigns returns the seed campaigns used by the in-memory directory and the seeder.
func DemoCampaigns() []*Campaign {
	return []*Campaign{
		{
			ID:      "demo-campaign-1",
			Title:   "Spring launch promotion - Cosmetics Brand A",
			Slug:    "demo-token",
			Summary: "Promotional posts for the new skincare line, with a natural and bright tone.",
			Requirements: "Deliverables:\n" +
				"- 1 feed post\n" +
				"- 2 or more stories\n" +
				"- show the product in actual use\n" +
				"- #gifted #PR hashtags are mandatory\n" +
				"- post content is reviewed before publishing",
			Restrictions: "Please note:\n" +
				"- no comparisons with competitor products\n" +
				"- no medicinal efficacy claims\n" +
				"- posts must stay up for at least 24 hours",
			Platforms:    []Platform{PlatformInstagram, PlatformTikTok},
			Deadline:     time.Date(2025, 9, 25, 0, 0, 0, 0, time.UTC),
			NDAURL:       "https://example.com/nda-cosmetics-spring-2025.pdf",
			Status:       CampaignOpen,
			ContactEmail: "partnership@cosmetics-brand-a.com",
			CreatedAt:    time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:      "demo-campaign-2",
			Title:   "Summer fashion collection",
			Slug:    "summer-fashion-2025",
			Summary: "Styling posts for the new summer items with on-trend coordination.",
			Requirements: "Deliverables:\n" +
				"- 1 feed post\n" +
				"- 1 reel\n" +
				"- 3 or more stories\n" +
				"- #gifted #fashion hashtags are mandatory",
			Restrictions: "Please note:\n" +
				"- do not mix in items from other brands\n" +
				"- posts must stay up for at least 48 hours",
			Platforms:    []Platform{PlatformInstagram, PlatformYouTube},
			Deadline:     time.Date(2025, 8, 15, 0, 0, 0, 0, time.UTC),
			NDAURL:       "https://example.com/nda-fashion-summer-2025.pdf",
			Status:       CampaignClosed,
			ContactEmail: "pr@fashion-brand.com",
			CreatedAt:    time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
			Creators: []Creator{
				{
					ID:             "creator-1",
					Name:           "Misaki Tanaka",
					AccountURL:     "https://instagram.com/misaki_fashion",
					DeliverableURL: "https://instagram.com/p/summer-collection-1",
				},
				{
					ID:             "creator-2",
					Name:           "Yuki Style",
					AccountURL:     "https://youtube.com/@yukistyle",
					DeliverableURL: "https://youtube.com/watch?v=summer-haul-2025",
				},
			},
			ManagementSheetURL: "https://docs.google.com/spreadsheets/d/summer-fashion-management",
			ReportURL:          "https://drive.google.com/file/d/summer-fashion-report-2025",
		},
	}
}
