package triage

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/ewjiang/mindbridge/internal/analysis/emotion"
	"github.com/ewjiang/mindbridge/internal/analysis/risk"
	"github.com/ewjiang/mindbridge/internal/analysis/sentiment"
	"github.com/ewjiang/mindbridge/internal/common"
	"github.com/ewjiang/mindbridge/internal/companion"
)

// ErrPersistence marks a pipeline run whose result was produced but not
// fully written. The caller still has a valid reply to return; the missing
// writes must be reported, not swallowed.
var ErrPersistence = errors.New("triage: persistence failure")

// AlertPublisher enqueues a notification job for a newly created alert. The
// full record travels with the job so consumers can route and log without a
// database read.
type AlertPublisher interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}

// RiskCache keeps the latest risk level per user for cheap dashboard reads.
type RiskCache interface {
	SetCurrentLevel(ctx context.Context, userID uint64, level string) error
}

type Service struct {
	repo          *Repo
	classifier    *emotion.Classifier
	analyzer      *sentiment.Analyzer
	generator     *companion.Generator
	publisher     AlertPublisher // optional
	cache         RiskCache      // optional
	historyWindow int
}

func NewService(repo *Repo, classifier *emotion.Classifier, analyzer *sentiment.Analyzer, generator *companion.Generator, publisher AlertPublisher, cache RiskCache, historyWindow int) *Service {
	if historyWindow <= 0 || historyWindow > 50 {
		historyWindow = 6
	}
	return &Service{
		repo:          repo,
		classifier:    classifier,
		analyzer:      analyzer,
		generator:     generator,
		publisher:     publisher,
		cache:         cache,
		historyWindow: historyWindow,
	}
}

// ProcessResult is the outcome of one pipeline run over a single message.
type ProcessResult struct {
	Emotion   emotion.Result
	Sentiment sentiment.Result
	Risk      risk.Assessment
	Reply     string
	AlertID   string // set when a HIGH-risk alert was created
	Timestamp time.Time
}

// ProcessMessage runs the full pipeline: emotion and sentiment (concurrent,
// they are independent), risk detection over both, response generation with
// recent history, then persistence of every signal. A HIGH assessment also
// creates an alert and enqueues its notification. Inference failures degrade
// to fallbacks inside the stages; only persistence failures surface.
func (s *Service) ProcessMessage(ctx context.Context, userID uint64, text string) (*ProcessResult, error) {
	now := time.Now().UTC()

	var (
		wg      sync.WaitGroup
		emoRes  emotion.Result
		sentRes sentiment.Result
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		emoRes = s.classifier.Classify(ctx, text)
	}()
	go func() {
		defer wg.Done()
		sentRes = s.analyzer.Analyze(ctx, text)
	}()
	wg.Wait()

	riskRes := risk.Detect(text, risk.Signals{
		Emotion:   emoRes.Emotion,
		Sentiment: &sentRes.Score,
	})

	history, err := s.recentTurns(ctx, userID)
	if err != nil {
		// Missing context degrades the reply, it does not block it.
		log.Printf("triage: load history failed user=%d err=%v", userID, err)
		history = nil
	}

	reply := s.generator.Generate(ctx, text, emoRes.Emotion, riskRes.Level, history)

	result := &ProcessResult{
		Emotion:   emoRes,
		Sentiment: sentRes,
		Risk:      riskRes,
		Reply:     reply,
		Timestamp: now,
	}

	var writeErrs []error

	userLog := &ChatLog{
		UserID:            userID,
		Role:              "user",
		Message:           text,
		Emotion:           &emoRes.Emotion,
		EmotionConfidence: &emoRes.Confidence,
		SentimentScore:    &sentRes.Score,
		SentimentPolarity: &sentRes.Polarity,
		CreatedAt:         now,
	}
	if err := s.repo.InsertChatLog(ctx, userLog); err != nil {
		writeErrs = append(writeErrs, fmt.Errorf("user chat log: %w", err))
	}

	aiLog := &ChatLog{
		UserID:    userID,
		Role:      "ai",
		Message:   reply,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.InsertChatLog(ctx, aiLog); err != nil {
		writeErrs = append(writeErrs, fmt.Errorf("ai chat log: %w", err))
	}

	score := &RiskScore{
		UserID:    userID,
		Level:     riskRes.Level,
		Score:     riskRes.Score,
		Factors:   riskRes.Factors,
		CreatedAt: now,
	}
	if riskRes.Level != risk.LevelLow {
		score.TriggerMessage = &text
	}
	if err := s.repo.InsertRiskScore(ctx, score); err != nil {
		writeErrs = append(writeErrs, fmt.Errorf("risk score: %w", err))
	}

	if riskRes.Level == risk.LevelHigh {
		alertID, err := s.createAlert(ctx, userID, text, now)
		if err != nil {
			writeErrs = append(writeErrs, fmt.Errorf("alert: %w", err))
		} else {
			result.AlertID = alertID
		}
	}

	if s.cache != nil {
		if err := s.cache.SetCurrentLevel(ctx, userID, string(riskRes.Level)); err != nil {
			log.Printf("triage: risk cache update failed user=%d err=%v", userID, err)
		}
	}

	if len(writeErrs) > 0 {
		return result, errors.Join(append([]error{ErrPersistence}, writeErrs...)...)
	}
	return result, nil
}

func (s *Service) createAlert(ctx context.Context, userID uint64, text string, now time.Time) (string, error) {
	id, err := common.NewULID()
	if err != nil {
		return "", err
	}
	alert := &Alert{
		ID:             id,
		UserID:         userID,
		RiskLevel:      risk.LevelHigh,
		TriggerMessage: text,
		CreatedAt:      now,
	}
	if err := s.repo.CreateAlert(ctx, alert); err != nil {
		return "", err
	}

	// Notification is best effort; the alert row is already durable and
	// independently queryable.
	if s.publisher != nil {
		if err := s.publisher.PublishAlert(ctx, alert); err != nil {
			log.Printf("triage: alert publish failed alert=%s err=%v", id, err)
		}
	}
	return id, nil
}

func (s *Service) recentTurns(ctx context.Context, userID uint64) ([]companion.Turn, error) {
	logs, err := s.repo.ListChatLogsDesc(ctx, userID, s.historyWindow)
	if err != nil {
		return nil, err
	}
	// reverse to chronological order
	turns := make([]companion.Turn, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		role := "user"
		if logs[i].Role == "ai" {
			role = "assistant"
		}
		turns = append(turns, companion.Turn{Role: role, Content: logs[i].Message})
	}
	return turns, nil
}

// History returns a user's chat logs in chronological order.
func (s *Service) History(ctx context.Context, userID uint64, limit int) ([]ChatLog, error) {
	logs, err := s.repo.ListChatLogsDesc(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(logs)-1; i < j; i, j = i+1, j-1 {
		logs[i], logs[j] = logs[j], logs[i]
	}
	return logs, nil
}

type RiskHistory struct {
	UserID       uint64      `json:"user_id"`
	Scores       []RiskScore `json:"scores"`
	CurrentLevel risk.Level  `json:"current_level"`
	Trend        string      `json:"trend"`
}

// RiskHistoryFor returns a user's risk scores within the day window plus the
// current level and the recency trend.
func (s *Service) RiskHistoryFor(ctx context.Context, userID uint64, days int) (*RiskHistory, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	scores, err := s.repo.ListRiskScoresSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	current := risk.LevelLow
	if len(scores) > 0 {
		current = scores[0].Level
	}

	values := make([]float64, len(scores))
	for i, sc := range scores {
		values[i] = sc.Score
	}

	return &RiskHistory{
		UserID:       userID,
		Scores:       scores,
		CurrentLevel: current,
		Trend:        computeTrend(values),
	}, nil
}

type RiskAnalysis struct {
	UserID          uint64     `json:"user_id"`
	OverallRisk     risk.Level `json:"overall_risk"`
	RiskScore       float64    `json:"risk_score"`
	EmotionFactor   float64    `json:"emotion_factor"`
	SentimentFactor float64    `json:"sentiment_factor"`
	KeywordFactor   float64    `json:"keyword_factor"`
	TrendFactor     float64    `json:"trend_factor"`
	Recommendations []string   `json:"recommendations"`
}

var negativeEmotions = map[string]bool{
	"sadness": true,
	"fear":    true,
	"anger":   true,
	"disgust": true,
}

// Analyze builds a weekly composite risk picture from keyword scores, mood
// logs and emotion history.
func (s *Service) Analyze(ctx context.Context, userID uint64) (*RiskAnalysis, error) {
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)

	scores, err := s.repo.ListRiskScoresSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	keywordFactor := 0.0
	for _, sc := range scores {
		if sc.Score > keywordFactor {
			keywordFactor = sc.Score
		}
	}

	moods, err := s.repo.ListMoodLogsSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	avgMood, avgStress := 5.0, 5.0
	if len(moods) > 0 {
		var mSum, sSum float64
		for _, m := range moods {
			mSum += float64(m.MoodScore)
			sSum += float64(m.StressScore)
		}
		avgMood = mSum / float64(len(moods))
		avgStress = sSum / float64(len(moods))
	}

	emotions, err := s.repo.ListUserEmotionsSince(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	negativeRatio := 0.0
	if len(emotions) > 0 {
		negative := 0
		for _, e := range emotions {
			if negativeEmotions[e] {
				negative++
			}
		}
		negativeRatio = float64(negative) / float64(len(emotions))
	}

	emotionFactor := math.Min(100, negativeRatio*100*1.5)
	sentimentFactor := math.Min(100, avgStress*10)
	trendFactor := 50.0 // neutral baseline

	overall := emotionFactor*0.2 + sentimentFactor*0.2 + keywordFactor*0.4 + (100-avgMood*10)*0.2

	level := risk.LevelLow
	if overall >= 70 {
		level = risk.LevelHigh
	} else if overall >= 40 {
		level = risk.LevelMedium
	}

	var recs []string
	if level == risk.LevelHigh {
		recs = append(recs,
			"Immediate professional review recommended",
			"Consider reaching out to the user directly",
		)
	}
	if avgStress > 7 {
		recs = append(recs, "High stress levels detected - suggest stress management resources")
	}
	if negativeRatio > 0.6 {
		recs = append(recs, "Frequent negative emotions - consider mood intervention")
	}
	if len(recs) == 0 {
		recs = append(recs, "Continue monitoring - no immediate concerns")
	}

	return &RiskAnalysis{
		UserID:          userID,
		OverallRisk:     level,
		RiskScore:       round1(overall),
		EmotionFactor:   round1(emotionFactor),
		SentimentFactor: round1(sentimentFactor),
		KeywordFactor:   round1(keywordFactor),
		TrendFactor:     round1(trendFactor),
		Recommendations: recs,
	}, nil
}

func (s *Service) LogMood(ctx context.Context, userID uint64, moodScore, stressScore int, notes *string) (*MoodLog, error) {
	entry := &MoodLog{
		UserID:      userID,
		MoodScore:   moodScore,
		StressScore: stressScore,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertMoodLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *Service) MoodHistory(ctx context.Context, userID uint64, days int) ([]MoodLog, error) {
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.repo.ListMoodLogsSince(ctx, userID, since)
}

type Dashboard struct {
	TotalUsers       int64            `json:"total_users"`
	ActiveUsers      int64            `json:"active_users"`
	HighRiskUsers    int64            `json:"high_risk_users"`
	UnresolvedAlerts int64            `json:"unresolved_alerts"`
	RiskDistribution map[string]int64 `json:"risk_distribution"`
	RecentAlerts     []Alert          `json:"recent_alerts"`
}

// DashboardData aggregates the weekly overview for clinicians.
func (s *Service) DashboardData(ctx context.Context) (*Dashboard, error) {
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)

	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.repo.CountActiveChatUsersSince(ctx, weekAgo)
	if err != nil {
		return nil, err
	}
	highRisk, err := s.repo.CountHighRiskUsersSince(ctx, weekAgo)
	if err != nil {
		return nil, err
	}
	unresolved, err := s.repo.CountUnresolvedAlerts(ctx)
	if err != nil {
		return nil, err
	}
	dist, err := s.repo.RiskLevelDistributionSince(ctx, weekAgo)
	if err != nil {
		return nil, err
	}
	recent, err := s.repo.ListAlerts(ctx, AlertFilter{Since: weekAgo, Limit: 10})
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		TotalUsers:       total,
		ActiveUsers:      active,
		HighRiskUsers:    highRisk,
		UnresolvedAlerts: unresolved,
		RiskDistribution: dist,
		RecentAlerts:     recent,
	}, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
