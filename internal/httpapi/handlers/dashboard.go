package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ewjiang/mindbridge/internal/common"
)

func (h *Handler) GetDashboard(c *gin.Context) {
	data, err := h.Triage.DashboardData(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to build dashboard")
		return
	}
	common.OK(c, data)
}

func (h *Handler) GetDashboardUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	users, total, err := h.Triage.DashboardUsers(c.Request.Context(), limit, offset)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50016, "failed to list users")
		return
	}
	common.OK(c, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *Handler) GetDashboardUser(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid user id")
		return
	}

	detail, err := h.Triage.UserDetailFor(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, 40401, "user not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50017, "failed to load user detail")
		return
	}
	common.OK(c, detail)
}
