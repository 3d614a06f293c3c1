package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/inboxpilot/backend/internal/db"
	"github.com/inboxpilot/backend/internal/service"
)

type Handler struct {
	Store     *db.Store
	Monitor   *service.Monitor
	Validator *validator.Validate
	Logger    zerolog.Logger
	AdminKey  string
}

func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		writeError(c, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "Database unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary Trigger a monitor run
// @Tags monitor
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/monitor/run [post]
func (h *Handler) MonitorRun(c *gin.Context) {
	insights, err := h.Monitor.Run(c.Request.Context())
	if err != nil {
		h.Logger.Error().Err(err).Msg("manual monitor run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": insights})
}

// @Summary Latest monitor run
// @Tags monitor
// @Produce json
// @Success 200 {object} models.Run
// @Router /api/runs/latest [get]
func (h *Handler) RunsLatest(c *gin.Context) {
	run, err := h.Store.GetLatestRun(c.Request.Context())
	if err != nil {
		if err == pgx.ErrNoRows {
			writeError(c, http.StatusNotFound, "NOT_FOUND", "No runs found", nil)
			return
		}
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load latest run", err.Error())
		return
	}
	c.JSON(http.StatusOK, run)
}

type ClientsListQuery struct {
	Status string `form:"status" validate:"omitempty,oneof=lead active"`
	Q      string `form:"q"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
	Offset int    `form:"offset" validate:"min=0"`
}

func (h *Handler) ClientsList(c *gin.Context) {
	var req ClientsListQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	items, err := h.Store.ListClients(c.Request.Context(), req.Status, req.Q, req.Limit, req.Offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list clients", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": req.Limit, "offset": req.Offset})
}

type CommunicationsListQuery struct {
	ClientID string `form:"client_id" validate:"omitempty,uuid"`
	Status   string `form:"status" validate:"omitempty,oneof=received auto_responded"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
	Offset   int    `form:"offset" validate:"min=0"`
}

func (h *Handler) CommunicationsList(c *gin.Context) {
	var req CommunicationsListQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	items, err := h.Store.ListCommunications(c.Request.Context(), req.ClientID, req.Status, req.Limit, req.Offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list communications", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": req.Limit, "offset": req.Offset})
}

type TicketsListQuery struct {
	Priority string `form:"priority" validate:"omitempty,oneof=low normal high critical"`
	Status   string `form:"status" validate:"omitempty,oneof=open closed"`
	Q        string `form:"q"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
	Offset   int    `form:"offset" validate:"min=0"`
}

func (h *Handler) TicketsList(c *gin.Context) {
	var req TicketsListQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}

	items, err := h.Store.ListTickets(c.Request.Context(), req.Priority, req.Status, req.Q, req.Limit, req.Offset)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to list tickets", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "limit": req.Limit, "offset": req.Offset})
}

type AnalyticsQuery struct {
	Hours int `form:"hours,default=24" validate:"min=1,max=720"`
}

// @Summary Monitoring analytics
// @Description Aggregates monitor runs, communications and tickets over the last N hours (default 24).
// @Tags analytics
// @Produce json
// @Success 200 {object} map[string]any
// @Router /api/analytics [get]
func (h *Handler) Analytics(c *gin.Context) {
	var req AnalyticsQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid query parameters", err.Error())
		return
	}
	if err := h.Validator.Struct(req); err != nil {
		writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", err.Error())
		return
	}
	since := time.Now().UTC().Add(-time.Duration(req.Hours) * time.Hour)

	out, err := h.Store.Analytics(c.Request.Context(), since)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to compute analytics", err.Error())
		return
	}
	out["since"] = since
	c.JSON(http.StatusOK, out)
}

func writeError(c *gin.Context, status int, code string, message string, details any) {
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": message,
			"details": details,
		},
	})
}
