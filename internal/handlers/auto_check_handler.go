package handler

import (
	"net/http"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payment-confirmation-backend/internal/models"
	"payment-confirmation-backend/internal/services/autocheck"
	"payment-confirmation-backend/internal/services/matching"
)

type AutoCheckHandler struct {
	checker *autocheck.Checker
}

func NewAutoCheckHandler(checker *autocheck.Checker) *AutoCheckHandler {
	mustRegisterValidators()
	return &AutoCheckHandler{checker: checker}
}

func (h *AutoCheckHandler) AddEntry(c *gin.Context) {
	var payload struct {
		Number string           `json:"number" binding:"required,digits"`
		Amount *decimal.Decimal `json:"amount" binding:"required"`
		Label  string           `json:"label" binding:"max=128"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	entry, err := h.checker.AddEntry(c.Request.Context(), payload.Number, *payload.Amount, payload.Label)
	if errors.Is(err, matching.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "auto-check entry saved", "entry": entry})
}

func (h *AutoCheckHandler) ListEntries(c *gin.Context) {
	entries, err := h.checker.ListEntries(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []models.AutoCheckEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (h *AutoCheckHandler) ToggleEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	entry, err := h.checker.ToggleEntry(c.Request.Context(), id)
	if errors.Is(err, autocheck.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "auto-check entry toggled", "entry": entry})
}

func (h *AutoCheckHandler) DeleteEntry(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid entry ID"})
		return
	}

	err = h.checker.DeleteEntry(c.Request.Context(), id)
	if errors.Is(err, autocheck.ErrEntryNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "entry not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "auto-check entry deleted"})
}

// RunNow performs a pass synchronously and returns its record.
func (h *AutoCheckHandler) RunNow(c *gin.Context) {
	run, err := h.checker.Run(c.Request.Context(), models.RunTriggerManual)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"run": run})
}

func (h *AutoCheckHandler) ListRuns(c *gin.Context) {
	limit := autocheck.DefaultRunHistory
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	runs, err := h.checker.ListRuns(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []models.AutoCheckRun{}
	}
	c.JSON(http.StatusOK, gin.H{"items": runs})
}
