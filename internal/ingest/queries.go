package ingest

import "github.com/feedpulse/feedpulse/internal/models"

// DefaultQueries is the standing query set for the Vietnamese-American
// community corpus. IDs are stable so per-query locks and logs stay
// meaningful across deploys.
func DefaultQueries() []models.SourceQuery {
	return []models.SourceQuery{
		{ID: "forum-voz-life", Query: "đời sống hải ngoại", Site: "voz.vn", Category: models.CategoryForum, Enabled: true},
		{ID: "forum-reddit-viet", Query: "vietnamese american community", Site: "reddit.com", Category: models.CategoryForum, Enabled: true},

		{ID: "news-little-saigon", Query: "little saigon news", Category: models.CategoryNews, Enabled: true},
		{ID: "news-nguoi-viet", Query: "tin cộng đồng", Site: "nguoi-viet.com", Category: models.CategoryNews, Enabled: true},
		{ID: "news-vietbao", Query: "tin tức người việt", Site: "vietbao.com", Category: models.CategoryNews, Enabled: true},

		{ID: "video-youtube-viet", Query: "người việt hải ngoại vlog", Site: "youtube.com", Category: models.CategoryVideo, Enabled: true},
		{ID: "video-tiktok-viet", Query: "little saigon food", Site: "tiktok.com", Category: models.CategoryVideo, Enabled: true},

		{ID: "deal-bank-bonus", Query: "bank account bonus direct deposit", Site: "doctorofcredit.com", Category: models.CategoryDeal, Enabled: true},
		{ID: "deal-grocery", Query: "h mart 99 ranch weekly deals", Category: models.CategoryDeal, Enabled: true},
		{ID: "deal-fast-food", Query: "mcdonalds starbucks app deals", Category: models.CategoryDeal, Enabled: true},

		{ID: "gossip-showbiz", Query: "sao việt hải ngoại scandal", Category: models.CategoryGossip, Enabled: true},
		{ID: "gossip-community", Query: "little saigon drama", Category: models.CategoryGossip, Enabled: true},
	}
}
