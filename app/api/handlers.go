package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/database"
)

func NewHandler(configCache *books.ConfigCache, bookRepo database.BookRepository,
	chapterRepo database.ChapterRepository, queueRepo database.QueueRepository,
	methodRepo database.DeliveryMethodRepository, verifier VerifierInterface) *Handler {
	return &Handler{
		configCache: configCache,
		bookRepo:    bookRepo,
		chapterRepo: chapterRepo,
		queueRepo:   queueRepo,
		methodRepo:  methodRepo,
		verifier:    verifier,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if bookCount, err := h.bookRepo.GetBookCount(); err == nil {
		health["books"] = bookCount
	}

	health["loaded_definitions"] = h.configCache.GetConfigCount()

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"loaded_definitions": h.configCache.GetConfigCount(),
	}

	if bookCount, err := h.bookRepo.GetBookCount(); err == nil {
		stats["books"] = bookCount
	}

	if depth, err := h.queueRepo.GetQueueDepth(); err == nil {
		stats["queue_depth"] = depth
	}

	if age, err := h.queueRepo.GetOldestPendingAge(); err == nil && age != nil {
		stats["oldest_pending"] = age.String()
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIListBooks(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	bookList := make([]map[string]interface{}, 0, len(configs))

	for _, bookConfig := range configs {
		bookInfo := map[string]interface{}{
			"slug":    bookConfig.Slug,
			"name":    bookConfig.Name,
			"author":  bookConfig.Author,
			"kind":    bookConfig.Source.Kind,
			"url":     bookConfig.Source.URL,
			"enabled": bookConfig.Settings.Enabled,
		}

		if book, err := h.bookRepo.GetBook(bookConfig.Slug); err == nil && book != nil {
			bookInfo["last_polled_at"] = book.LastPolledAt
			bookInfo["next_poll_at"] = book.NextPollAt

			if chapterCount, err := h.chapterRepo.GetChapterCount(book.ID); err == nil {
				bookInfo["chapter_count"] = chapterCount
			}
		}

		bookList = append(bookList, bookInfo)
	}

	c.JSON(http.StatusOK, gin.H{
		"books": bookList,
		"count": len(bookList),
	})
}

func (h *Handler) APIGetDeliveryMethod(c *gin.Context) {
	userID := c.Param("user_id")

	dm, err := h.methodRepo.GetDeliveryMethod(userID)
	if err != nil {
		slog.Error("Database error", "operation", "get_delivery_method", "user_id", userID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}
	if dm == nil {
		c.Status(http.StatusNotFound)
		return
	}

	status := gin.H{
		"user_id": dm.UserID,
		"kindle_email": gin.H{
			"configured": dm.KindleEmail != nil,
			"verified":   dm.KindleEmailVerified,
			"enabled":    dm.KindleEmailEnabled,
		},
		"pushover": gin.H{
			"configured": dm.PushoverKey != nil,
			"verified":   dm.PushoverKeyVerified,
			"enabled":    dm.PushoverEnabled,
		},
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIRegisterKindleEmail(c *gin.Context) {
	var req registerKindleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verifier.BeginKindleVerification(c.Request.Context(), req.UserID, req.Email); err != nil {
		slog.Error("Failed to begin kindle verification", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification email"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "verification email sent"})
}

func (h *Handler) APIVerifyKindleEmail(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verifier.ConfirmKindle(c.Request.Context(), req.UserID, req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "kindle email verified"})
}

func (h *Handler) APIToggleKindleEmail(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.methodRepo.SetKindleEmailEnabled(req.UserID, *req.Enabled); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "kindle email updated", "enabled": *req.Enabled})
}

func (h *Handler) APIRegisterPushover(c *gin.Context) {
	var req registerPushoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verifier.BeginPushoverVerification(c.Request.Context(), req.UserID, req.Key); err != nil {
		slog.Error("Failed to begin pushover verification", "user_id", req.UserID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send verification push"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "verification push sent"})
}

func (h *Handler) APIVerifyPushover(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.verifier.ConfirmPushover(c.Request.Context(), req.UserID, req.Code); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pushover key verified"})
}

func (h *Handler) APITogglePushover(c *gin.Context) {
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.methodRepo.SetPushoverEnabled(req.UserID, *req.Enabled); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "pushover updated", "enabled": *req.Enabled})
}
