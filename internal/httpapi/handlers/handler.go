package handlers

import (
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/ai"
	"github.com/ewjiang/mindbridge/internal/analysis/emotion"
	"github.com/ewjiang/mindbridge/internal/analysis/sentiment"
	"github.com/ewjiang/mindbridge/internal/companion"
	"github.com/ewjiang/mindbridge/internal/config"
	"github.com/ewjiang/mindbridge/internal/store/rabbitmq"
	"github.com/ewjiang/mindbridge/internal/store/redisstore"
	"github.com/ewjiang/mindbridge/internal/triage"
)

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Redis  *redisstore.Store
	Repo   *triage.Repo
	Triage *triage.Service
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, pub *rabbitmq.Publisher) *Handler {
	repo := triage.NewRepo(db)

	// Backends stay nil when not configured; each stage then runs its
	// deterministic fallback for the process lifetime.
	var emoBackend, sentBackend ai.TextClassifier
	if cfg.ClassifierEnabled {
		emoBackend = ai.NewInferenceClient(cfg.ClassifierBaseURL, cfg.ClassifierToken, cfg.EmotionModel)
		sentBackend = ai.NewInferenceClient(cfg.ClassifierBaseURL, cfg.ClassifierToken, cfg.SentimentModel)
	}
	var gen ai.Generator
	if cfg.CompletionEnabled {
		gen = ai.NewCompletionClient(cfg.CompletionBaseURL, cfg.CompletionAPIKey, cfg.CompletionModel)
	}

	var publisher triage.AlertPublisher
	if pub != nil {
		publisher = pub
	}
	var cache triage.RiskCache
	if rds != nil {
		cache = rds
	}

	svc := triage.NewService(
		repo,
		emotion.NewClassifier(emoBackend),
		sentiment.NewAnalyzer(sentBackend),
		companion.NewGenerator(gen),
		publisher,
		cache,
		cfg.ChatHistoryWindow,
	)

	return &Handler{DB: db, Cfg: cfg, Redis: rds, Repo: repo, Triage: svc}
}
