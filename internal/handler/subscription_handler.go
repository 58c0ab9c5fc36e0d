package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rauth/examprep-backend/internal/middleware"
	"github.com/rauth/examprep-backend/internal/model"
	"github.com/rauth/examprep-backend/internal/repository"
	"github.com/rauth/examprep-backend/internal/response"
	"github.com/rs/zerolog"
)

// Subscriptions is the plan side of service.UserService.
type Subscriptions interface {
	Subscription(ctx context.Context, userID int) (*model.SubscriptionStatus, error)
	SubscriptionOverview(ctx context.Context) (*model.SubscriptionOverview, error)
}

// SubscriptionHandler reports premium plans.
type SubscriptionHandler struct {
	subscriptions Subscriptions
	log           zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions Subscriptions, log zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptions: subscriptions,
		log:           log.With().Str("component", "subscription_handler").Logger(),
	}
}

// Mine godoc
// GET /api/v1/subscriptions/me
func (h *SubscriptionHandler) Mine(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	status, err := h.subscriptions.Subscription(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		h.log.Error().Err(err).Int("user_id", claims.UserID).Msg("Subscription lookup failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"subscription": status})
}

// Overview godoc
// GET /api/v1/admin/subscriptions
// Plan counts and the most recent subscribe/cancel events.
func (h *SubscriptionHandler) Overview(c *gin.Context) {
	overview, err := h.subscriptions.SubscriptionOverview(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Subscription overview failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	if overview.Recent == nil {
		overview.Recent = []model.SubscriptionEvent{}
	}

	response.Success(c, http.StatusOK, overview)
}
