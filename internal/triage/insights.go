package triage

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Questionnaire is a five-item stress self-assessment. Every item is on a
// 1-5 scale; anxiety counts toward stress directly, the others inverted.
type Questionnaire struct {
	SleepQuality     int
	EnergyLevel      int
	SocialConnection int
	AnxietyLevel     int
	Concentration    int
	PhysicalSymptoms *string
}

// scoreQuestionnaire derives 1-10 mood and stress scores from the answers.
// The item average sits on the 1-5 scale and is doubled onto 1-10; mood is
// the stress inverse.
func scoreQuestionnaire(q Questionnaire) (mood, stress int) {
	factors := []int{
		5 - q.SleepQuality,
		5 - q.EnergyLevel,
		5 - q.SocialConnection,
		q.AnxietyLevel,
		5 - q.Concentration,
	}
	sum := 0
	for _, f := range factors {
		sum += f
	}
	avg := float64(sum) / float64(len(factors))

	stress = int(avg * 2)
	if stress < 1 {
		stress = 1
	}
	if stress > 10 {
		stress = 10
	}
	mood = 11 - stress
	if mood < 1 {
		mood = 1
	}
	return mood, stress
}

// SubmitQuestionnaire scores the answers and stores them as a regular mood
// log, so questionnaire entries feed the same history and analysis paths.
func (s *Service) SubmitQuestionnaire(ctx context.Context, userID uint64, q Questionnaire) (*MoodLog, error) {
	mood, stress := scoreQuestionnaire(q)

	symptoms := "None"
	if q.PhysicalSymptoms != nil && *q.PhysicalSymptoms != "" {
		symptoms = *q.PhysicalSymptoms
	}
	notes := fmt.Sprintf("From questionnaire. Physical symptoms: %s", symptoms)

	entry := &MoodLog{
		UserID:      userID,
		MoodScore:   mood,
		StressScore: stress,
		Notes:       &notes,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.InsertMoodLog(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// MoodTrend is one day's averaged mood entries.
type MoodTrend struct {
	Date          string  `json:"date"`
	AverageMood   float64 `json:"average_mood"`
	AverageStress float64 `json:"average_stress"`
	Entries       int     `json:"entries"`
}

// MoodTrends groups a user's mood logs by UTC day, oldest day first.
func (s *Service) MoodTrends(ctx context.Context, userID uint64, days int) ([]MoodTrend, error) {
	if days <= 0 {
		days = 14
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	logs, err := s.repo.ListMoodLogsSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		moodSum   int
		stressSum int
		n         int
	}
	byDay := make(map[string]*bucket)
	for _, l := range logs {
		day := l.CreatedAt.UTC().Format("2006-01-02")
		b := byDay[day]
		if b == nil {
			b = &bucket{}
			byDay[day] = b
		}
		b.moodSum += l.MoodScore
		b.stressSum += l.StressScore
		b.n++
	}

	trends := make([]MoodTrend, 0, len(byDay))
	for day, b := range byDay {
		trends = append(trends, MoodTrend{
			Date:          day,
			AverageMood:   round1(float64(b.moodSum) / float64(b.n)),
			AverageStress: round1(float64(b.stressSum) / float64(b.n)),
			Entries:       b.n,
		})
	}
	sort.Slice(trends, func(i, j int) bool { return trends[i].Date < trends[j].Date })
	return trends, nil
}

// HighRiskUser is one roster entry of the recent-HIGH-score listing.
type HighRiskUser struct {
	UserID           uint64    `json:"user_id"`
	Occurrences      int       `json:"high_risk_occurrences"`
	LatestOccurrence time.Time `json:"latest_occurrence"`
	MaxScore         float64   `json:"max_score"`
}

// HighRiskUsers lists users with HIGH scores in the window, worst first.
func (s *Service) HighRiskUsers(ctx context.Context, days int) ([]HighRiskUser, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	scores, err := s.repo.ListHighRiskScoresSince(ctx, since)
	if err != nil {
		return nil, err
	}

	byUser := make(map[uint64]*HighRiskUser)
	for _, sc := range scores {
		u := byUser[sc.UserID]
		if u == nil {
			u = &HighRiskUser{UserID: sc.UserID}
			byUser[sc.UserID] = u
		}
		u.Occurrences++
		if sc.CreatedAt.After(u.LatestOccurrence) {
			u.LatestOccurrence = sc.CreatedAt
		}
		if sc.Score > u.MaxScore {
			u.MaxScore = sc.Score
		}
	}

	users := make([]HighRiskUser, 0, len(byUser))
	for _, u := range byUser {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].MaxScore > users[j].MaxScore })
	return users, nil
}

// UserOverview is one row of the clinician user listing. The display name is
// anonymized; the numeric ID stays for drill-down.
type UserOverview struct {
	UserID           uint64    `json:"user_id"`
	DisplayName      string    `json:"display_name"`
	CreatedAt        time.Time `json:"created_at"`
	CurrentRiskLevel string    `json:"current_risk_level"`
	LatestMood       *int      `json:"latest_mood"`
	LatestStress     *int      `json:"latest_stress"`
}

// DashboardUsers pages through all users with their latest risk level and
// mood entry. Users with no risk history show as UNKNOWN.
func (s *Service) DashboardUsers(ctx context.Context, limit, offset int) ([]UserOverview, int64, error) {
	users, err := s.repo.ListUsers(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountUsers(ctx)
	if err != nil {
		return nil, 0, err
	}

	out := make([]UserOverview, 0, len(users))
	for _, u := range users {
		row := UserOverview{
			UserID:           u.ID,
			DisplayName:      anonymizeName(u.Username),
			CreatedAt:        u.CreatedAt,
			CurrentRiskLevel: "UNKNOWN",
		}
		latest, err := s.repo.LatestRiskScore(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		if latest != nil {
			row.CurrentRiskLevel = string(latest.Level)
		}
		mood, err := s.repo.LatestMoodLog(ctx, u.ID)
		if err != nil {
			return nil, 0, err
		}
		if mood != nil {
			row.LatestMood = &mood.MoodScore
			row.LatestStress = &mood.StressScore
		}
		out = append(out, row)
	}
	return out, total, nil
}

// ConversationTurn is a chat row condensed for clinician review.
type ConversationTurn struct {
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Emotion   *string   `json:"emotion,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserDetail is the per-user clinician view: recent conversation, mood and
// risk history.
type UserDetail struct {
	UserID              uint64             `json:"user_id"`
	DisplayName         string             `json:"display_name"`
	CreatedAt           time.Time          `json:"created_at"`
	RecentConversations []ConversationTurn `json:"recent_conversations"`
	MoodHistory         []MoodLog          `json:"mood_history"`
	RiskHistory         []RiskScore        `json:"risk_history"`
}

const conversationSnippetLen = 100

// UserDetailFor builds the clinician drill-down. Messages are truncated to a
// snippet; the full text stays in the chat log.
func (s *Service) UserDetailFor(ctx context.Context, userID uint64) (*UserDetail, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	chats, err := s.repo.ListChatLogsDesc(ctx, userID, 20)
	if err != nil {
		return nil, err
	}
	turns := make([]ConversationTurn, 0, len(chats))
	for i := len(chats) - 1; i >= 0; i-- {
		turns = append(turns, ConversationTurn{
			Role:      chats[i].Role,
			Message:   snippet(chats[i].Message),
			Emotion:   chats[i].Emotion,
			Timestamp: chats[i].CreatedAt,
		})
	}

	moods, err := s.repo.ListMoodLogsDesc(ctx, userID, 30)
	if err != nil {
		return nil, err
	}
	risks, err := s.repo.ListRiskScoresDesc(ctx, userID, 30)
	if err != nil {
		return nil, err
	}

	return &UserDetail{
		UserID:              user.ID,
		DisplayName:         anonymizeName(user.Username),
		CreatedAt:           user.CreatedAt,
		RecentConversations: turns,
		MoodHistory:         moods,
		RiskHistory:         risks,
	}, nil
}

func snippet(msg string) string {
	runes := []rune(msg)
	if len(runes) <= conversationSnippetLen {
		return msg
	}
	return string(runes[:conversationSnippetLen]) + "..."
}

func anonymizeName(username string) string {
	if len(username) <= 4 {
		return username
	}
	return username[:4] + "..."
}
