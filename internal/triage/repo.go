package triage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/analysis/risk"
	"github.com/ewjiang/mindbridge/internal/models"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) InsertChatLog(ctx context.Context, l *ChatLog) error {
	return r.db.WithContext(ctx).Create(l).Error
}

// ListChatLogsDesc returns the most recent chat logs, newest first.
func (r *Repo) ListChatLogsDesc(ctx context.Context, userID uint64, limit int) ([]ChatLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []ChatLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *Repo) InsertRiskScore(ctx context.Context, s *RiskScore) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ListRiskScoresSince returns risk scores newer than since, newest first.
func (r *Repo) ListRiskScoresSince(ctx context.Context, userID uint64, since time.Time) ([]RiskScore, error) {
	var scores []RiskScore
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

func (r *Repo) CreateAlert(ctx context.Context, a *Alert) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *Repo) GetAlertByID(ctx context.Context, id string) (*Alert, error) {
	var a Alert
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

type AlertFilter struct {
	Resolved *bool
	Level    risk.Level
	Since    time.Time
	Limit    int
}

func (r *Repo) ListAlerts(ctx context.Context, f AlertFilter) ([]Alert, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	q := r.db.WithContext(ctx).
		Where("created_at >= ?", f.Since).
		Order("created_at DESC").
		Limit(limit)
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}
	if f.Level != "" {
		q = q.Where("risk_level = ?", f.Level)
	}

	var alerts []Alert
	if err := q.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

func (r *Repo) CountUnresolvedAlerts(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Alert{}).
		Where("resolved = ?", false).
		Count(&n).Error
	return n, err
}

// ResolveAlert marks an alert resolved. Returns gorm.ErrRecordNotFound when
// no alert matches.
func (r *Repo) ResolveAlert(ctx context.Context, id string, notes *string) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":    true,
			"resolved_at": now,
			"notes":       notes,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) ReopenAlert(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Model(&Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":    false,
			"resolved_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) MarkAlertNotified(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&Alert{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"notified":    true,
			"notified_at": now,
		}).Error
}

type AlertStats struct {
	Total             int64            `json:"total_alerts"`
	Unresolved        int64            `json:"unresolved_alerts"`
	Resolved          int64            `json:"resolved_alerts"`
	Today             int64            `json:"alerts_today"`
	ThisWeek          int64            `json:"alerts_this_week"`
	ThisMonth         int64            `json:"alerts_this_month"`
	UnresolvedByLevel map[string]int64 `json:"unresolved_by_level"`
}

func (r *Repo) GetAlertStats(ctx context.Context) (*AlertStats, error) {
	now := time.Now().UTC()
	stats := &AlertStats{UnresolvedByLevel: make(map[string]int64)}

	m := r.db.WithContext(ctx).Model(&Alert{})
	if err := m.Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&Alert{}).
		Where("resolved = ?", false).Count(&stats.Unresolved).Error; err != nil {
		return nil, err
	}
	stats.Resolved = stats.Total - stats.Unresolved

	windows := []struct {
		since time.Time
		dst   *int64
	}{
		{now.AddDate(0, 0, -1), &stats.Today},
		{now.AddDate(0, 0, -7), &stats.ThisWeek},
		{now.AddDate(0, 0, -30), &stats.ThisMonth},
	}
	for _, w := range windows {
		if err := r.db.WithContext(ctx).Model(&Alert{}).
			Where("created_at >= ?", w.since).Count(w.dst).Error; err != nil {
			return nil, err
		}
	}

	for _, level := range []risk.Level{risk.LevelLow, risk.LevelMedium, risk.LevelHigh} {
		var n int64
		if err := r.db.WithContext(ctx).Model(&Alert{}).
			Where("risk_level = ? AND resolved = ?", level, false).
			Count(&n).Error; err != nil {
			return nil, err
		}
		stats.UnresolvedByLevel[string(level)] = n
	}
	return stats, nil
}

// ListRiskScoresDesc returns the most recent risk scores, newest first.
func (r *Repo) ListRiskScoresDesc(ctx context.Context, userID uint64, limit int) ([]RiskScore, error) {
	if limit <= 0 {
		limit = 30
	}
	var scores []RiskScore
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

// ListHighRiskScoresSince returns every HIGH score in the window across all
// users, for the clinician high-risk roster.
func (r *Repo) ListHighRiskScoresSince(ctx context.Context, since time.Time) ([]RiskScore, error) {
	var scores []RiskScore
	if err := r.db.WithContext(ctx).
		Where("level = ? AND created_at >= ?", risk.LevelHigh, since).
		Find(&scores).Error; err != nil {
		return nil, err
	}
	return scores, nil
}

// LatestRiskScore returns the newest score for a user, or nil when the user
// has none.
func (r *Repo) LatestRiskScore(ctx context.Context, userID uint64) (*RiskScore, error) {
	var s RiskScore
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) InsertMoodLog(ctx context.Context, m *MoodLog) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMoodLogsDesc returns the most recent mood logs, newest first.
func (r *Repo) ListMoodLogsDesc(ctx context.Context, userID uint64, limit int) ([]MoodLog, error) {
	if limit <= 0 {
		limit = 30
	}
	var logs []MoodLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// LatestMoodLog returns the newest mood log for a user, or nil when the user
// has none.
func (r *Repo) LatestMoodLog(ctx context.Context, userID uint64) (*MoodLog, error) {
	var m MoodLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) ListMoodLogsSince(ctx context.Context, userID uint64, since time.Time) ([]MoodLog, error) {
	var logs []MoodLog
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Order("created_at DESC").
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// ListUserEmotionsSince returns the emotion labels of a user's own messages
// within the window, for the analysis negativity ratio.
func (r *Repo) ListUserEmotionsSince(ctx context.Context, userID uint64, since time.Time) ([]string, error) {
	var emotions []string
	if err := r.db.WithContext(ctx).Model(&ChatLog{}).
		Where("user_id = ? AND role = ? AND created_at >= ? AND emotion IS NOT NULL", userID, "user", since).
		Pluck("emotion", &emotions).Error; err != nil {
		return nil, err
	}
	return emotions, nil
}

func (r *Repo) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (r *Repo) GetUserByID(ctx context.Context, id uint64) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repo) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var users []models.User
	if err := r.db.WithContext(ctx).
		Order("id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (r *Repo) CountActiveChatUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&ChatLog{}).
		Where("created_at >= ?", since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

func (r *Repo) CountHighRiskUsersSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&RiskScore{}).
		Where("level = ? AND created_at >= ?", risk.LevelHigh, since).
		Distinct("user_id").
		Count(&n).Error
	return n, err
}

func (r *Repo) RiskLevelDistributionSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	type row struct {
		Level string
		N     int64
	}
	var rows []row
	if err := r.db.WithContext(ctx).Model(&RiskScore{}).
		Select("level, COUNT(*) as n").
		Where("created_at >= ?", since).
		Group("level").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, rw := range rows {
		out[rw.Level] = rw.N
	}
	return out, nil
}
