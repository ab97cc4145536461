package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/cliptide/backend/internal/graph"
	"github.com/cliptide/backend/internal/logging"
	"github.com/cliptide/backend/internal/models"
	"github.com/cliptide/backend/internal/repositories"
)

// ChannelHandler serves social graph projections and subscription edges.
type ChannelHandler struct {
	Graph         GraphService
	Subscriptions SubscriptionStore
	History       WatchHistoryStore
	Auth          Authenticator
	NowFunc       func() time.Time
}

// Profile handles GET /api/v1/channels/{username} requests. Authentication is
// optional: anonymous viewers get IsSubscribedByViewer=false.
func (h ChannelHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	username := strings.TrimSpace(r.PathValue("username"))
	if username == "" {
		respondError(ctx, w, http.StatusBadRequest, "username is required")
		return
	}

	var viewerID string
	if h.Auth != nil {
		if viewer, err := h.Auth.Authenticate(r); err == nil {
			viewerID = viewer.ID
		}
	}

	profile, err := h.Graph.ChannelProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, graph.ErrChannelNotFound) {
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
			return
		}
		logger.Error("channel profile failed", "error", err, "username", username)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load channel profile")
		return
	}

	respondData(ctx, w, http.StatusOK, profile, "channel profile fetched")
}

// WatchHistory handles GET /api/v1/users/history requests.
func (h ChannelHandler) WatchHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	entries, err := h.Graph.WatchHistory(ctx, user.ID)
	if err != nil {
		logger.Error("watch history failed", "error", err, "userId", user.ID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to load watch history")
		return
	}

	respondData(ctx, w, http.StatusOK, entries, "watch history fetched")
}

// RecordWatch handles POST /api/v1/users/history requests, appending a watch
// event for the authenticated user.
func (h ChannelHandler) RecordWatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req watchEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid watch event payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.VideoID = strings.TrimSpace(req.VideoID)
	if req.VideoID == "" {
		respondError(ctx, w, http.StatusBadRequest, "videoId is required")
		return
	}

	event := models.WatchEvent{
		UserID:    user.ID,
		VideoID:   req.VideoID,
		WatchedAt: h.now(),
	}
	if err := h.History.Append(ctx, event); err != nil {
		logger.Error("record watch event failed", "error", err, "userId", user.ID, "videoId", req.VideoID)
		respondError(ctx, w, http.StatusInternalServerError, "failed to record watch event")
		return
	}

	respondData(ctx, w, http.StatusCreated, nil, "watch event recorded")
}

// HistoryRoot dispatches /api/v1/users/history by method.
func (h ChannelHandler) HistoryRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.WatchHistory(w, r)
	case http.MethodPost:
		h.RecordWatch(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// HandleSubscriptions dispatches /api/v1/subscriptions by method: POST
// subscribes the authenticated user to a channel, DELETE removes the edge.
func (h ChannelHandler) HandleSubscriptions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	user, ok := UserFromContext(ctx)
	if !ok {
		respondError(ctx, w, http.StatusUnauthorized, "unauthorized request")
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid subscription payload", "error", err)
		respondError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.ChannelID = strings.TrimSpace(req.ChannelID)
	if req.ChannelID == "" {
		respondError(ctx, w, http.StatusBadRequest, "channelId is required")
		return
	}

	switch r.Method {
	case http.MethodPost:
		if req.ChannelID == user.ID {
			respondError(ctx, w, http.StatusBadRequest, "cannot subscribe to yourself")
			return
		}

		err := h.Subscriptions.Create(ctx, models.Subscription{
			SubscriberID: user.ID,
			ChannelID:    req.ChannelID,
			CreatedAt:    h.now(),
		})
		switch {
		case errors.Is(err, repositories.ErrConflict):
			respondError(ctx, w, http.StatusConflict, "already subscribed")
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "channel does not exist")
		case err != nil:
			logger.Error("subscribe failed", "error", err, "userId", user.ID, "channelId", req.ChannelID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to subscribe")
		default:
			respondData(ctx, w, http.StatusCreated, nil, "subscribed")
		}
	case http.MethodDelete:
		err := h.Subscriptions.Delete(ctx, user.ID, req.ChannelID)
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			respondError(ctx, w, http.StatusNotFound, "subscription does not exist")
		case err != nil:
			logger.Error("unsubscribe failed", "error", err, "userId", user.ID, "channelId", req.ChannelID)
			respondError(ctx, w, http.StatusInternalServerError, "failed to unsubscribe")
		default:
			respondData(ctx, w, http.StatusOK, nil, "unsubscribed")
		}
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ChannelHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc()
	}
	return time.Now().UTC()
}

type watchEventRequest struct {
	VideoID string `json:"videoId"`
}

type subscriptionRequest struct {
	ChannelID string `json:"channelId"`
}
