package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ewjiang/mindbridge/internal/common"
	"github.com/ewjiang/mindbridge/internal/httpapi/middleware"
	"github.com/ewjiang/mindbridge/internal/triage"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "message must not be blank")
		return
	}

	result, err := h.Triage.ProcessMessage(c.Request.Context(), uid, req.Message)
	if err != nil && !errors.Is(err, triage.ErrPersistence) {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to process message")
		return
	}

	data := gin.H{
		"user_message":       req.Message,
		"reply":              result.Reply,
		"emotion":            result.Emotion.Emotion,
		"emotion_confidence": result.Emotion.Confidence,
		"sentiment_score":    result.Sentiment.Score,
		"sentiment_polarity": result.Sentiment.Polarity,
		"risk_level":         result.Risk.Level,
		"risk_score":         result.Risk.Score,
		"timestamp":          result.Timestamp,
	}

	if err != nil {
		// The user still gets the reply; the missing writes are the
		// reportable part.
		log.Printf("[SendChatMessage] partial persistence uid=%d err=%v", uid, err)
		c.JSON(http.StatusOK, gin.H{
			"code":    50030,
			"message": "reply generated but not fully persisted",
			"data":    data,
		})
		return
	}
	common.OK(c, data)
}

func (h *Handler) GetChatHistory(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	logs, err := h.Triage.History(c.Request.Context(), uid, limit)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load history")
		return
	}

	common.OK(c, gin.H{
		"messages":    logs,
		"total_count": len(logs),
	})
}
