package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"payment-confirmation-backend/internal/metrics"
	"payment-confirmation-backend/internal/ratelimit"
	"payment-confirmation-backend/internal/repository"
	"payment-confirmation-backend/internal/services/ledger"
	"payment-confirmation-backend/internal/services/matching"
	"payment-confirmation-backend/internal/services/notification"
)

// Status words shown by the confirmation page.
var pageStatus = map[matching.Outcome]string{
	matching.OutcomeMatchedNowUsed: "utilise",
	matching.OutcomeAlreadyUsed:    "deja_utilise",
	matching.OutcomeNotFound:       "introuvable",
}

type PaymentHandler struct {
	ledger  *ledger.LedgerService
	engine  *matching.Engine
	limiter ratelimit.Limiter
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewPaymentHandler builds the payment endpoints. limiter and m may be nil.
func NewPaymentHandler(
	l *ledger.LedgerService,
	engine *matching.Engine,
	limiter ratelimit.Limiter,
	m *metrics.Metrics,
	logger *slog.Logger,
) *PaymentHandler {
	mustRegisterValidators()
	return &PaymentHandler{
		ledger:  l,
		engine:  engine,
		limiter: limiter,
		metrics: m,
		logger:  logger,
	}
}

// ReceiveNotification stores the transfer described by the request body.
// The body is the raw SMS text, a JSON {"message": ...} object or a form
// with a "message" field.
func (h *PaymentHandler) ReceiveNotification(c *gin.Context) {
	text, err := notificationText(c)
	if err != nil {
		h.metrics.ObserveNotification("invalid")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	tr, err := h.ledger.Ingest(c.Request.Context(), text)
	switch {
	case errors.Is(err, notification.ErrUnparseable):
		h.metrics.ObserveNotification("unparseable")
		c.JSON(http.StatusBadRequest, gin.H{"error": "unrecognized transfer notification"})
		return
	case errors.Is(err, ledger.ErrDuplicateTransfer):
		h.metrics.ObserveNotification("duplicate")
		c.JSON(http.StatusConflict, gin.H{"error": "transaction id already recorded"})
		return
	case err != nil:
		h.metrics.ObserveNotification("error")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.ObserveNotification("stored")
	h.logger.InfoContext(c.Request.Context(), "transfer recorded",
		"transaction_id", tr.TransactionID, "number", tr.Number, "amount", tr.Amount)
	c.JSON(http.StatusCreated, gin.H{"message": "transfer recorded", "transfer": tr})
}

func notificationText(c *gin.Context) (string, error) {
	switch c.ContentType() {
	case gin.MIMEJSON:
		var payload struct {
			Message string `json:"message" binding:"required"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			return "", err
		}
		return payload.Message, nil
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		msg := c.PostForm("message")
		if msg == "" {
			return "", errors.New("missing message field")
		}
		return msg, nil
	default:
		raw, err := c.GetRawData()
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(string(raw)) == "" {
			return "", errors.New("empty body")
		}
		return string(raw), nil
	}
}

// numero/montant are the field names used by the confirmation page.
type verifyRequest struct {
	Number  string           `json:"number" binding:"omitempty,digits"`
	Numero  string           `json:"numero" binding:"omitempty,digits"`
	Amount  *decimal.Decimal `json:"amount"`
	Montant *decimal.Decimal `json:"montant"`
}

func (r verifyRequest) key() (string, decimal.Decimal, bool) {
	number := r.Number
	if number == "" {
		number = r.Numero
	}
	amount := r.Amount
	if amount == nil {
		amount = r.Montant
	}
	if number == "" || amount == nil {
		return "", decimal.Zero, false
	}
	return number, *amount, true
}

func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	number, amount, ok := req.key()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number and amount are required"})
		return
	}

	ctx := c.Request.Context()
	if h.limiter != nil {
		allowed, err := h.limiter.Allow(ctx, number)
		if err != nil {
			h.logger.WarnContext(ctx, "rate limiter unavailable", "error", err)
		} else if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many verification attempts"})
			return
		}
	}

	res, err := h.engine.Verify(ctx, number, amount)
	if errors.Is(err, matching.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.metrics.ObserveVerification("api", string(res.Outcome))
	body := gin.H{
		"status":  res.Outcome,
		"statut":  pageStatus[res.Outcome],
		"success": res.Matched(),
	}
	if res.Transfer != nil {
		body["transfer"] = res.Transfer
	}
	c.JSON(http.StatusOK, body)
}

func (h *PaymentHandler) ListTransfers(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	page, err := h.ledger.ListTransfers(c.Request.Context(), repository.TransferFilter{
		Status: c.Query("status"),
		Number: c.Query("number"),
		Cursor: c.Query("cursor"),
		Limit:  limit,
	})
	if errors.Is(err, repository.ErrInvalidCursor) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PaymentHandler) GetTransfer(c *gin.Context) {
	tr, err := h.ledger.GetTransfer(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ledger.ErrTransferNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "transfer not found"})
		return
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transfer": tr})
}

func (h *PaymentHandler) Stats(c *gin.Context) {
	stats, err := h.ledger.Stats(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}
