package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ewjiang/mindbridge/internal/common"
	"github.com/ewjiang/mindbridge/internal/triage"
)

type logMoodReq struct {
	MoodScore   int     `json:"mood_score" binding:"required,min=1,max=10"`
	StressScore int     `json:"stress_score" binding:"required,min=1,max=10"`
	Notes       *string `json:"notes"`
}

func (h *Handler) LogMood(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req logMoodReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	entry, err := h.Triage.LogMood(c.Request.Context(), uid, req.MoodScore, req.StressScore, req.Notes)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to log mood")
		return
	}
	common.OK(c, entry)
}

type questionnaireReq struct {
	SleepQuality     int     `json:"sleep_quality" binding:"required,min=1,max=5"`
	EnergyLevel      int     `json:"energy_level" binding:"required,min=1,max=5"`
	SocialConnection int     `json:"social_connection" binding:"required,min=1,max=5"`
	AnxietyLevel     int     `json:"anxiety_level" binding:"required,min=1,max=5"`
	Concentration    int     `json:"concentration" binding:"required,min=1,max=5"`
	PhysicalSymptoms *string `json:"physical_symptoms"`
}

func (h *Handler) SubmitQuestionnaire(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req questionnaireReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	entry, err := h.Triage.SubmitQuestionnaire(c.Request.Context(), uid, triage.Questionnaire{
		SleepQuality:     req.SleepQuality,
		EnergyLevel:      req.EnergyLevel,
		SocialConnection: req.SocialConnection,
		AnxietyLevel:     req.AnxietyLevel,
		Concentration:    req.Concentration,
		PhysicalSymptoms: req.PhysicalSymptoms,
	})
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50013, "failed to store questionnaire")
		return
	}

	common.OK(c, gin.H{
		"id":                      entry.ID,
		"calculated_mood_score":   entry.MoodScore,
		"calculated_stress_score": entry.StressScore,
	})
}

func (h *Handler) GetMoodTrends(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 {
		days = 14
	}

	trends, err := h.Triage.MoodTrends(c.Request.Context(), userID, days)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50014, "failed to build mood trends")
		return
	}
	common.OK(c, gin.H{
		"user_id": userID,
		"days":    days,
		"trends":  trends,
	})
}

func (h *Handler) GetMoodHistory(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))

	logs, err := h.Triage.MoodHistory(c.Request.Context(), userID, days)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to load mood history")
		return
	}
	common.OK(c, gin.H{
		"user_id":     userID,
		"entries":     logs,
		"total_count": len(logs),
	})
}
