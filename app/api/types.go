package api

import (
	"context"

	"github.com/JordanSekky/cereal-convert/app/books"
	"github.com/JordanSekky/cereal-convert/app/database"
	"github.com/JordanSekky/cereal-convert/app/delivery"
)

// VerifierInterface issues and confirms delivery channel verification
// codes.
type VerifierInterface interface {
	BeginKindleVerification(ctx context.Context, userID, email string) error
	ConfirmKindle(ctx context.Context, userID, code string) error
	BeginPushoverVerification(ctx context.Context, userID, key string) error
	ConfirmPushover(ctx context.Context, userID, code string) error
}

var _ VerifierInterface = (*delivery.Verifier)(nil)

type Handler struct {
	configCache *books.ConfigCache
	bookRepo    database.BookRepository
	chapterRepo database.ChapterRepository
	queueRepo   database.QueueRepository
	methodRepo  database.DeliveryMethodRepository
	verifier    VerifierInterface
}

type registerKindleRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

type registerPushoverRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Key    string `json:"key" binding:"required"`
}

type verifyRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

type toggleRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Enabled *bool  `json:"enabled" binding:"required"`
}
