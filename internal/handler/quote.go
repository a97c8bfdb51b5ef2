package handler

import (
	"errors"
	"net/http"
	"time"

	"quotedesk/internal/model"
	"quotedesk/internal/service"
	"quotedesk/internal/storage"
	"quotedesk/pkg/logger"

	"github.com/gin-gonic/gin"
)

type QuoteHandler struct {
	quoteService *service.QuoteService
}

func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{
		quoteService: quoteService,
	}
}

func abortWithDetail(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, model.ErrorResponse{Detail: detail})
}

// abortWithError maps a service failure onto a status code.
func abortWithError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, storage.ErrInvalidData):
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrConversationNotFound), errors.Is(err, storage.ErrOrderNotFound),
		errors.Is(err, service.ErrFeatureNotFound):
		abortWithDetail(c, http.StatusNotFound, err.Error())
	default:
		logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		abortWithDetail(c, http.StatusInternalServerError, err.Error())
	}
}

func (h *QuoteHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "B2B Sales Support Chatbot API"})
}

func (h *QuoteHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func (h *QuoteHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := h.quoteService.Chat(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *QuoteHandler) Pricing(c *gin.Context) {
	var req model.PricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	c.JSON(http.StatusOK, h.quoteService.Price(&req))
}

func (h *QuoteHandler) CreateOrder(c *gin.Context) {
	var req model.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithDetail(c, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := h.quoteService.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *QuoteHandler) ListConversations(c *gin.Context) {
	summaries, err := h.quoteService.ListConversations()
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": summaries,
	})
}

func (h *QuoteHandler) GetConversation(c *gin.Context) {
	conv, err := h.quoteService.GetConversation(c.Param("conversation_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, conv)
}

func (h *QuoteHandler) DeleteConversation(c *gin.Context) {
	if err := h.quoteService.DeleteConversation(c.Param("conversation_id")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted successfully"})
}

func (h *QuoteHandler) GetOrder(c *gin.Context) {
	order, err := h.quoteService.GetOrder(c.Param("order_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *QuoteHandler) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"products": h.quoteService.Products(c.Query("category"), c.Query("q")),
	})
}

func (h *QuoteHandler) GetProduct(c *gin.Context) {
	feature, err := h.quoteService.Product(c.Param("feature_id"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, feature)
}
