package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ewjiang/mindbridge/internal/common"
)

func (h *Handler) GetRiskHistory(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))

	history, err := h.Triage.RiskHistoryFor(c.Request.Context(), userID, days)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to load risk history")
		return
	}
	common.OK(c, history)
}

func (h *Handler) GetRiskAnalysis(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}

	analysis, err := h.Triage.Analyze(c.Request.Context(), userID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to build risk analysis")
		return
	}
	common.OK(c, analysis)
}

func (h *Handler) GetHighRiskUsers(c *gin.Context) {
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 {
		days = 7
	}

	users, err := h.Triage.HighRiskUsers(c.Request.Context(), days)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50015, "failed to list high-risk users")
		return
	}
	common.OK(c, gin.H{
		"high_risk_users": users,
		"total":           len(users),
		"period_days":     days,
	})
}

// GetCurrentRiskLevel serves the cached level when redis has it, falling
// back to the stored history.
func (h *Handler) GetCurrentRiskLevel(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}

	if h.Redis != nil {
		if level, err := h.Redis.GetCurrentLevel(c.Request.Context(), userID); err == nil && level != "" {
			common.OK(c, gin.H{"user_id": userID, "current_level": level, "cached": true})
			return
		}
	}

	history, err := h.Triage.RiskHistoryFor(c.Request.Context(), userID, 30)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to load risk history")
		return
	}
	common.OK(c, gin.H{"user_id": userID, "current_level": history.CurrentLevel, "cached": false})
}
