package model

import "time"

// UserRiskSummary is the per-author rollup of post-level risk.
// HighRiskPostCount never exceeds TotalPostCount.
type UserRiskSummary struct {
	Username          string  `json:"username"`
	UserRiskScore     float64 `json:"user_risk_score"`
	HighRiskPostCount int     `json:"high_risk_posts"`
	TotalPostCount    int     `json:"total_posts"`
	Explanation       string  `json:"explanation"`
}

// Alert is raised by the monitor when a flagged user posts something risky
type Alert struct {
	ID                   string             `json:"id"`
	Username             string             `json:"username"`
	PostID               string             `json:"post_id"`
	Subreddit            string             `json:"subreddit"`
	TextPreview          string             `json:"text_preview"`
	RiskScore            float64            `json:"risk_score"`
	ViolenceType         ViolenceType       `json:"violence_type"`
	ModerationFlagged    bool               `json:"moderation_flagged"`
	ModerationCategories map[string]float64 `json:"moderation_categories,omitempty"`
	Permalink            string             `json:"permalink"`
	AlertTime            time.Time          `json:"alert_time"`
}
