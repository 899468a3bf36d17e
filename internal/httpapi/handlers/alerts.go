package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/analysis/risk"
	"github.com/ewjiang/mindbridge/internal/common"
	"github.com/ewjiang/mindbridge/internal/triage"
)

func (h *Handler) ListAlerts(c *gin.Context) {
	f := triage.AlertFilter{}
	if v := c.Query("resolved"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10005, "invalid resolved flag")
			return
		}
		f.Resolved = &b
	}
	if v := c.Query("risk_level"); v != "" {
		f.Level = risk.Level(v)
	}
	days := 30
	if v := c.Query("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	f.Since = time.Now().UTC().AddDate(0, 0, -days)
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	alerts, err := h.Repo.ListAlerts(c.Request.Context(), f)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to list alerts")
		return
	}
	unresolved, err := h.unresolvedCount(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "failed to list alerts")
		return
	}

	common.OK(c, gin.H{
		"alerts":           alerts,
		"total_count":      len(alerts),
		"unresolved_count": unresolved,
	})
}

func (h *Handler) GetAlert(c *gin.Context) {
	alert, err := h.Repo.GetAlertByID(c.Request.Context(), c.Param("alert_id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "alert not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to load alert")
		return
	}
	common.OK(c, alert)
}

// unresolvedCount serves the count from the redis cache when fresh, falling
// back to the database and repopulating the cache.
func (h *Handler) unresolvedCount(ctx context.Context) (int64, error) {
	if h.Redis != nil {
		if n, ok, err := h.Redis.GetUnresolvedAlerts(ctx); err == nil && ok {
			return n, nil
		}
	}
	n, err := h.Repo.CountUnresolvedAlerts(ctx)
	if err != nil {
		return 0, err
	}
	if h.Redis != nil {
		_ = h.Redis.SetUnresolvedAlerts(ctx, n)
	}
	return n, nil
}

type resolveAlertReq struct {
	Notes *string `json:"notes"`
}

func (h *Handler) ResolveAlert(c *gin.Context) {
	var req resolveAlertReq
	_ = c.ShouldBindJSON(&req) // notes are optional, allow empty body

	id := c.Param("alert_id")
	if err := h.Repo.ResolveAlert(c.Request.Context(), id, req.Notes); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "alert not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50007, "failed to resolve alert")
		return
	}
	if h.Redis != nil {
		_ = h.Redis.InvalidateUnresolvedAlerts(c.Request.Context())
	}
	common.OK(c, gin.H{"alert_id": id, "resolved": true})
}

func (h *Handler) ReopenAlert(c *gin.Context) {
	id := c.Param("alert_id")
	if err := h.Repo.ReopenAlert(c.Request.Context(), id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40403, "alert not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50008, "failed to reopen alert")
		return
	}
	if h.Redis != nil {
		_ = h.Redis.InvalidateUnresolvedAlerts(c.Request.Context())
	}
	common.OK(c, gin.H{"alert_id": id, "resolved": false})
}

func (h *Handler) GetAlertStats(c *gin.Context) {
	stats, err := h.Repo.GetAlertStats(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50009, "failed to load alert stats")
		return
	}
	common.OK(c, stats)
}
