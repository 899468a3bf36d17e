package triage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/ai"
	"github.com/ewjiang/mindbridge/internal/analysis/emotion"
	"github.com/ewjiang/mindbridge/internal/analysis/risk"
	"github.com/ewjiang/mindbridge/internal/analysis/sentiment"
	"github.com/ewjiang/mindbridge/internal/companion"
	"github.com/ewjiang/mindbridge/internal/models"
)

type recordingBackend struct {
	last []ai.Message
}

func (b *recordingBackend) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	// copy to avoid mutations
	b.last = append([]ai.Message(nil), messages...)
	return "ok", nil
}

type fakeClassifier struct {
	labels []ai.Label
}

func (f *fakeClassifier) Classify(ctx context.Context, text string) ([]ai.Label, error) {
	_ = ctx
	_ = text
	return f.labels, nil
}

type recordingPublisher struct {
	alerts []*Alert
}

func (p *recordingPublisher) PublishAlert(ctx context.Context, a *Alert) error {
	_ = ctx
	p.alerts = append(p.alerts, a)
	return nil
}

type recordingCache struct {
	levels map[uint64]string
}

func (c *recordingCache) SetCurrentLevel(ctx context.Context, userID uint64, level string) error {
	_ = ctx
	if c.levels == nil {
		c.levels = make(map[uint64]string)
	}
	c.levels[userID] = level
	return nil
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(gormsqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &ChatLog{}, &RiskScore{}, &Alert{}, &MoodLog{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newFallbackService wires a service with no inference backends, so every
// stage runs its deterministic fallback.
func newFallbackService(repo *Repo, pub AlertPublisher, cache RiskCache) *Service {
	return NewService(
		repo,
		emotion.NewClassifier(nil),
		sentiment.NewAnalyzer(nil),
		companion.NewGenerator(nil),
		pub,
		cache,
		0,
	)
}

func TestProcessMessage_HighRiskCreatesAlert(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	pub := &recordingPublisher{}
	cache := &recordingCache{}
	svc := newFallbackService(repo, pub, cache)

	const userID = 101
	res, err := svc.ProcessMessage(context.Background(), userID, "I want to kill myself")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if res.Risk.Level != risk.LevelHigh {
		t.Fatalf("expected HIGH, got %s", res.Risk.Level)
	}
	if res.Risk.Score < 85 {
		t.Fatalf("expected score >= 85, got %v", res.Risk.Score)
	}
	if res.Reply == "" {
		t.Fatalf("reply must not be empty")
	}
	if res.AlertID == "" {
		t.Fatalf("expected alert to be created")
	}

	var logs []ChatLog
	if err := db.Where("user_id = ?", uint64(userID)).Order("id ASC").Find(&logs).Error; err != nil {
		t.Fatalf("query chat logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 chat logs, got %d", len(logs))
	}
	if logs[0].Role != "user" || logs[0].Emotion == nil || logs[0].SentimentScore == nil {
		t.Fatalf("user log missing signals: %+v", logs[0])
	}
	if logs[1].Role != "ai" || logs[1].Message != res.Reply {
		t.Fatalf("unexpected companion log: %+v", logs[1])
	}

	var scores []RiskScore
	if err := db.Where("user_id = ?", uint64(userID)).Find(&scores).Error; err != nil {
		t.Fatalf("query risk scores: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("expected 1 risk score, got %d", len(scores))
	}
	if scores[0].TriggerMessage == nil || *scores[0].TriggerMessage != "I want to kill myself" {
		t.Fatalf("risk score missing trigger message: %+v", scores[0])
	}

	alert, err := repo.GetAlertByID(context.Background(), res.AlertID)
	if err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if alert.RiskLevel != risk.LevelHigh || alert.TriggerMessage != "I want to kill myself" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if alert.Resolved {
		t.Fatalf("new alert must be unresolved")
	}

	if len(pub.alerts) != 1 || pub.alerts[0].ID != res.AlertID {
		t.Fatalf("expected alert published, got %v", pub.alerts)
	}
	if pub.alerts[0].UserID != userID || pub.alerts[0].RiskLevel != risk.LevelHigh {
		t.Fatalf("published alert missing fields: %+v", pub.alerts[0])
	}
	if cache.levels[userID] != "HIGH" {
		t.Fatalf("expected cached level HIGH, got %q", cache.levels[userID])
	}
}

func TestProcessMessage_HighRiskWithLiveBackends(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	pub := &recordingPublisher{}

	svc := NewService(
		repo,
		emotion.NewClassifier(&fakeClassifier{labels: []ai.Label{{Name: "sadness", Score: 0.99}}}),
		sentiment.NewAnalyzer(&fakeClassifier{labels: []ai.Label{{Name: "NEGATIVE", Score: 0.9}}}),
		companion.NewGenerator(&recordingBackend{}),
		pub,
		nil,
		0,
	)

	const userID = 110
	res, err := svc.ProcessMessage(context.Background(), userID, "I want to kill myself")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Risk.Level != risk.LevelHigh || res.Risk.Score < 85 {
		t.Fatalf("expected HIGH >= 85, got %s/%v", res.Risk.Level, res.Risk.Score)
	}
	if res.Emotion.Emotion != "sadness" {
		t.Fatalf("expected sadness from backend, got %q", res.Emotion.Emotion)
	}
	if res.Sentiment.Score != -0.9 {
		t.Fatalf("expected -0.9 from backend, got %v", res.Sentiment.Score)
	}
	if res.AlertID == "" {
		t.Fatalf("expected alert to be created")
	}
	if len(pub.alerts) != 1 {
		t.Fatalf("expected alert published, got %v", pub.alerts)
	}
}

func TestProcessMessage_PositiveMessageLowRisk(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	pub := &recordingPublisher{}
	cache := &recordingCache{}
	svc := newFallbackService(repo, pub, cache)

	const userID = 102
	res, err := svc.ProcessMessage(context.Background(), userID, "I'm so happy today, everything is great!")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if res.Emotion.Emotion != "joy" {
		t.Fatalf("expected joy, got %q", res.Emotion.Emotion)
	}
	if res.Sentiment.Polarity != "positive" || res.Sentiment.Score <= 0.2 {
		t.Fatalf("expected positive sentiment, got %+v", res.Sentiment)
	}
	if res.Risk.Level != risk.LevelLow || res.Risk.Score >= 35 {
		t.Fatalf("expected LOW risk, got %s/%v", res.Risk.Level, res.Risk.Score)
	}
	if res.AlertID != "" {
		t.Fatalf("no alert expected for LOW risk")
	}
	if res.Reply == "" {
		t.Fatalf("reply must not be empty")
	}

	var n int64
	if err := db.Model(&Alert{}).Where("user_id = ?", uint64(userID)).Count(&n).Error; err != nil {
		t.Fatalf("count alerts: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no alert rows, got %d", n)
	}
	if len(pub.alerts) != 0 {
		t.Fatalf("nothing should be published, got %v", pub.alerts)
	}
	if cache.levels[userID] != "LOW" {
		t.Fatalf("expected cached level LOW, got %q", cache.levels[userID])
	}

	// the risk score row still lands, without a trigger message
	var scores []RiskScore
	if err := db.Where("user_id = ?", uint64(userID)).Find(&scores).Error; err != nil {
		t.Fatalf("query risk scores: %v", err)
	}
	if len(scores) != 1 || scores[0].TriggerMessage != nil {
		t.Fatalf("unexpected risk score rows: %+v", scores)
	}
}

func TestProcessMessage_HistoryWindow(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	backend := &recordingBackend{}
	svc := NewService(
		repo,
		emotion.NewClassifier(nil),
		sentiment.NewAnalyzer(nil),
		companion.NewGenerator(backend),
		nil,
		nil,
		0,
	)

	const userID = 103
	for i := 0; i < 10; i++ {
		role := "user"
		if i%2 == 1 {
			role = "ai"
		}
		if err := repo.InsertChatLog(context.Background(), &ChatLog{
			UserID:    userID,
			Role:      role,
			Message:   "seed",
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("seed log %d: %v", i, err)
		}
	}

	res, err := svc.ProcessMessage(context.Background(), userID, "what should I do")
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Reply != "ok" {
		t.Fatalf("expected backend reply, got %q", res.Reply)
	}

	// system prompt + 6 history turns + the current message
	if len(backend.last) != 8 {
		t.Fatalf("expected 8 messages, got %d", len(backend.last))
	}
	if backend.last[0].Role != "system" {
		t.Fatalf("first message must be the system prompt")
	}
	last := backend.last[len(backend.last)-1]
	if last.Role != "user" || last.Content != "what should I do" {
		t.Fatalf("unexpected final message: %+v", last)
	}
}

func TestHistory_ChronologicalOrder(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 104
	for _, msg := range []string{"first", "second", "third"} {
		if err := repo.InsertChatLog(context.Background(), &ChatLog{
			UserID:    userID,
			Role:      "user",
			Message:   msg,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	logs, err := svc.History(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 logs, got %d", len(logs))
	}
	if logs[0].Message != "first" || logs[2].Message != "third" {
		t.Fatalf("logs out of order: %v %v %v", logs[0].Message, logs[1].Message, logs[2].Message)
	}
}

func TestRiskHistoryFor_Worsening(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 105
	now := time.Now().UTC()
	// newest five at 60, two older ones at 10
	scores := []float64{60, 60, 60, 60, 60, 10, 10}
	for i, sc := range scores {
		level := risk.LevelMedium
		if sc < 35 {
			level = risk.LevelLow
		}
		if err := repo.InsertRiskScore(context.Background(), &RiskScore{
			UserID:    userID,
			Level:     level,
			Score:     sc,
			Factors:   []string{},
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("insert score %d: %v", i, err)
		}
	}

	h, err := svc.RiskHistoryFor(context.Background(), userID, 30)
	if err != nil {
		t.Fatalf("risk history: %v", err)
	}
	if len(h.Scores) != 7 {
		t.Fatalf("expected 7 scores, got %d", len(h.Scores))
	}
	if h.CurrentLevel != risk.LevelMedium {
		t.Fatalf("expected current MEDIUM, got %s", h.CurrentLevel)
	}
	if h.Trend != TrendWorsening {
		t.Fatalf("expected worsening, got %s", h.Trend)
	}
}

func TestRiskHistoryFor_InsufficientData(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 106
	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		if err := repo.InsertRiskScore(context.Background(), &RiskScore{
			UserID:    userID,
			Level:     risk.LevelLow,
			Score:     10,
			Factors:   []string{},
			CreatedAt: now.Add(-time.Duration(i) * time.Minute),
		}); err != nil {
			t.Fatalf("insert score %d: %v", i, err)
		}
	}

	h, err := svc.RiskHistoryFor(context.Background(), userID, 30)
	if err != nil {
		t.Fatalf("risk history: %v", err)
	}
	if h.Trend != TrendInsufficientData {
		t.Fatalf("expected insufficient_data, got %s", h.Trend)
	}
}

func TestResolveAndReopenAlert(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)

	alert := &Alert{
		ID:             "01TESTALERT000000000000001",
		UserID:         107,
		RiskLevel:      risk.LevelHigh,
		TriggerMessage: "trigger",
		CreatedAt:      time.Now().UTC(),
	}
	if err := repo.CreateAlert(context.Background(), alert); err != nil {
		t.Fatalf("create alert: %v", err)
	}

	notes := "contacted guardian"
	if err := repo.ResolveAlert(context.Background(), alert.ID, &notes); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	got, err := repo.GetAlertByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if !got.Resolved || got.ResolvedAt == nil {
		t.Fatalf("alert not resolved: %+v", got)
	}
	if got.Notes == nil || *got.Notes != notes {
		t.Fatalf("notes not stored: %+v", got.Notes)
	}

	if err := repo.ReopenAlert(context.Background(), alert.ID); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err = repo.GetAlertByID(context.Background(), alert.ID)
	if err != nil {
		t.Fatalf("load alert: %v", err)
	}
	if got.Resolved || got.ResolvedAt != nil {
		t.Fatalf("alert not reopened: %+v", got)
	}

	if err := repo.ResolveAlert(context.Background(), "missing", nil); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestAnalyze_NoActivity(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 108
	a, err := svc.Analyze(context.Background(), userID)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if a.OverallRisk != risk.LevelLow {
		t.Fatalf("expected LOW, got %s", a.OverallRisk)
	}
	// mood and stress default to 5: sentiment factor 50, mood term 50
	if a.SentimentFactor != 50 || a.KeywordFactor != 0 || a.EmotionFactor != 0 {
		t.Fatalf("unexpected factors: %+v", a)
	}
	if a.RiskScore != 20 {
		t.Fatalf("expected composite 20, got %v", a.RiskScore)
	}
	if len(a.Recommendations) != 1 || a.Recommendations[0] != "Continue monitoring - no immediate concerns" {
		t.Fatalf("unexpected recommendations: %v", a.Recommendations)
	}
}

func TestSubmitQuestionnaire_Scoring(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 111
	symptoms := "headaches"
	entry, err := svc.SubmitQuestionnaire(context.Background(), userID, Questionnaire{
		SleepQuality:     1,
		EnergyLevel:      1,
		SocialConnection: 1,
		AnxietyLevel:     5,
		Concentration:    1,
		PhysicalSymptoms: &symptoms,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	// factors (4,4,4,5,4) average 4.2 on the 1-5 scale
	if entry.StressScore != 8 || entry.MoodScore != 3 {
		t.Fatalf("expected stress 8 / mood 3, got %d/%d", entry.StressScore, entry.MoodScore)
	}
	if entry.Notes == nil || *entry.Notes != "From questionnaire. Physical symptoms: headaches" {
		t.Fatalf("unexpected notes: %v", entry.Notes)
	}
	if entry.ID == 0 {
		t.Fatalf("expected stored entry id")
	}

	// questionnaire entries land in the regular mood history
	logs, err := svc.MoodHistory(context.Background(), userID, 7)
	if err != nil {
		t.Fatalf("mood history: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(logs))
	}
}

func TestSubmitQuestionnaire_CalmClampsToFloor(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	entry, err := svc.SubmitQuestionnaire(context.Background(), 111, Questionnaire{
		SleepQuality:     5,
		EnergyLevel:      5,
		SocialConnection: 5,
		AnxietyLevel:     1,
		Concentration:    5,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if entry.StressScore != 1 || entry.MoodScore != 10 {
		t.Fatalf("expected stress 1 / mood 10, got %d/%d", entry.StressScore, entry.MoodScore)
	}
	if entry.Notes == nil || *entry.Notes != "From questionnaire. Physical symptoms: None" {
		t.Fatalf("unexpected notes: %v", entry.Notes)
	}
}

func TestMoodTrends_GroupsByDay(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 112
	now := time.Now().UTC()
	entries := []MoodLog{
		{UserID: userID, MoodScore: 6, StressScore: 2, CreatedAt: now},
		{UserID: userID, MoodScore: 8, StressScore: 4, CreatedAt: now.Add(-time.Hour)},
		{UserID: userID, MoodScore: 4, StressScore: 9, CreatedAt: now.Add(-24 * time.Hour)},
	}
	for i := range entries {
		if err := repo.InsertMoodLog(context.Background(), &entries[i]); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	trends, err := svc.MoodTrends(context.Background(), userID, 14)
	if err != nil {
		t.Fatalf("trends: %v", err)
	}
	if len(trends) != 2 {
		t.Fatalf("expected 2 days, got %d", len(trends))
	}
	// oldest day first
	if trends[0].AverageMood != 4 || trends[0].AverageStress != 9 || trends[0].Entries != 1 {
		t.Fatalf("unexpected first day: %+v", trends[0])
	}
	if trends[1].AverageMood != 7 || trends[1].AverageStress != 3 || trends[1].Entries != 2 {
		t.Fatalf("unexpected second day: %+v", trends[1])
	}
	if trends[0].Date >= trends[1].Date {
		t.Fatalf("days out of order: %s %s", trends[0].Date, trends[1].Date)
	}
}

func TestHighRiskUsers_RankedByMaxScore(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	now := time.Now().UTC()
	seed := []RiskScore{
		{UserID: 113, Level: risk.LevelHigh, Score: 80, Factors: []string{}, CreatedAt: now.Add(-time.Hour)},
		{UserID: 113, Level: risk.LevelHigh, Score: 90, Factors: []string{}, CreatedAt: now},
		{UserID: 113, Level: risk.LevelLow, Score: 10, Factors: []string{}, CreatedAt: now},
		{UserID: 114, Level: risk.LevelHigh, Score: 95, Factors: []string{}, CreatedAt: now.Add(-time.Minute)},
	}
	for i := range seed {
		if err := repo.InsertRiskScore(context.Background(), &seed[i]); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}

	users, err := svc.HighRiskUsers(context.Background(), 7)
	if err != nil {
		t.Fatalf("high risk users: %v", err)
	}
	idx113, idx114 := -1, -1
	for i, u := range users {
		switch u.UserID {
		case 113:
			idx113 = i
		case 114:
			idx114 = i
		}
	}
	if idx113 < 0 || idx114 < 0 {
		t.Fatalf("seeded users missing from roster: %+v", users)
	}
	if users[idx114].MaxScore != 95 || users[idx114].Occurrences != 1 {
		t.Fatalf("unexpected entry for 114: %+v", users[idx114])
	}
	// the LOW score must not count toward occurrences
	if users[idx113].MaxScore != 90 || users[idx113].Occurrences != 2 {
		t.Fatalf("unexpected entry for 113: %+v", users[idx113])
	}
	// worst max score first
	if idx114 > idx113 {
		t.Fatalf("expected user 114 ranked above 113")
	}
	if !users[idx113].LatestOccurrence.After(seed[0].CreatedAt) {
		t.Fatalf("latest occurrence not the newest score: %v", users[idx113].LatestOccurrence)
	}
}

func TestUserDetailFor(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	user := models.User{Email: "detail@example.com", Username: "detailuser01", PasswordHash: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	long := strings.Repeat("a", 150)
	emotion := "sadness"
	logs := []ChatLog{
		{UserID: user.ID, Role: "user", Message: long, Emotion: &emotion, CreatedAt: time.Now().UTC().Add(-time.Minute)},
		{UserID: user.ID, Role: "ai", Message: "short reply", CreatedAt: time.Now().UTC()},
	}
	for i := range logs {
		if err := repo.InsertChatLog(context.Background(), &logs[i]); err != nil {
			t.Fatalf("insert chat %d: %v", i, err)
		}
	}
	if err := repo.InsertMoodLog(context.Background(), &MoodLog{UserID: user.ID, MoodScore: 5, StressScore: 5, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("insert mood: %v", err)
	}
	if err := repo.InsertRiskScore(context.Background(), &RiskScore{UserID: user.ID, Level: risk.LevelMedium, Score: 55, Factors: []string{}, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("insert score: %v", err)
	}

	detail, err := svc.UserDetailFor(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("user detail: %v", err)
	}
	if detail.DisplayName != "deta..." {
		t.Fatalf("expected anonymized name, got %q", detail.DisplayName)
	}
	if len(detail.RecentConversations) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(detail.RecentConversations))
	}
	// chronological order, long messages truncated to a snippet
	first := detail.RecentConversations[0]
	if first.Role != "user" || len(first.Message) != 103 || !strings.HasSuffix(first.Message, "...") {
		t.Fatalf("unexpected first turn: role=%q len=%d", first.Role, len(first.Message))
	}
	if first.Emotion == nil || *first.Emotion != "sadness" {
		t.Fatalf("emotion missing from turn")
	}
	if detail.RecentConversations[1].Message != "short reply" {
		t.Fatalf("short message must pass through unchanged")
	}
	if len(detail.MoodHistory) != 1 || len(detail.RiskHistory) != 1 {
		t.Fatalf("unexpected histories: %d mood, %d risk", len(detail.MoodHistory), len(detail.RiskHistory))
	}

	if _, err := svc.UserDetailFor(context.Background(), 9999999); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestDashboardUsers(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	scored := models.User{Email: "scored@example.com", Username: "scoreduser01", PasswordHash: "x"}
	if err := db.Create(&scored).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	fresh := models.User{Email: "fresh@example.com", Username: "freshuser001", PasswordHash: "x"}
	if err := db.Create(&fresh).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}

	if err := repo.InsertRiskScore(context.Background(), &RiskScore{UserID: scored.ID, Level: risk.LevelHigh, Score: 88, Factors: []string{}, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("insert score: %v", err)
	}
	if err := repo.InsertMoodLog(context.Background(), &MoodLog{UserID: scored.ID, MoodScore: 3, StressScore: 7, CreatedAt: time.Now().UTC()}); err != nil {
		t.Fatalf("insert mood: %v", err)
	}

	rows, total, err := svc.DashboardUsers(context.Background(), 100, 0)
	if err != nil {
		t.Fatalf("dashboard users: %v", err)
	}
	if total < 2 {
		t.Fatalf("expected at least 2 users, got %d", total)
	}

	var gotScored, gotFresh *UserOverview
	for i := range rows {
		switch rows[i].UserID {
		case scored.ID:
			gotScored = &rows[i]
		case fresh.ID:
			gotFresh = &rows[i]
		}
	}
	if gotScored == nil || gotFresh == nil {
		t.Fatalf("created users missing from listing")
	}
	if gotScored.CurrentRiskLevel != "HIGH" {
		t.Fatalf("expected HIGH, got %q", gotScored.CurrentRiskLevel)
	}
	if gotScored.LatestMood == nil || *gotScored.LatestMood != 3 || gotScored.LatestStress == nil || *gotScored.LatestStress != 7 {
		t.Fatalf("latest mood missing: %+v", gotScored)
	}
	if gotScored.DisplayName != "scor..." {
		t.Fatalf("expected anonymized name, got %q", gotScored.DisplayName)
	}
	if gotFresh.CurrentRiskLevel != "UNKNOWN" || gotFresh.LatestMood != nil {
		t.Fatalf("fresh user should be UNKNOWN with no mood: %+v", gotFresh)
	}
}

func TestLogMoodAndHistory(t *testing.T) {
	db := openTestDB(t)
	repo := NewRepo(db)
	svc := newFallbackService(repo, nil, nil)

	const userID = 109
	notes := "slept badly"
	entry, err := svc.LogMood(context.Background(), userID, 4, 8, &notes)
	if err != nil {
		t.Fatalf("log mood: %v", err)
	}
	if entry.ID == 0 {
		t.Fatalf("expected mood log id to be set")
	}

	logs, err := svc.MoodHistory(context.Background(), userID, 7)
	if err != nil {
		t.Fatalf("mood history: %v", err)
	}
	if len(logs) != 1 || logs[0].MoodScore != 4 || logs[0].StressScore != 8 {
		t.Fatalf("unexpected mood history: %+v", logs)
	}
}
