package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/alexindevs/roomey-api/internal/domain"
	"github.com/alexindevs/roomey-api/internal/middleware"
	"github.com/alexindevs/roomey-api/internal/transport"
)

type NotificationService interface {
	GetUserNotifications(ctx context.Context, userID string, unreadOnly bool) ([]*domain.Notification, error)
	MarkAsRead(ctx context.Context, id, userID string) (*domain.Notification, error)
	MarkMultipleAsRead(ctx context.Context, ids []string, userID string) (int64, error)
}

type NotificationHandler struct {
	svc     NotificationService
	timeout time.Duration
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc, timeout: 5 * time.Second}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	unreadOnly := r.URL.Query().Get("unread") == "true"

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	ns, err := h.svc.GetUserNotifications(ctx, userID, unreadOnly)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, ns)
}

type markReadRequest struct {
	NotificationIDs []string `json:"notificationIds"`
}

type markReadResponse struct {
	Success         bool     `json:"success"`
	NotificationIDs []string `json:"notificationIds"`
}

func (h *NotificationHandler) MarkMultipleAsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid_body", "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if _, err := h.svc.MarkMultipleAsRead(ctx, req.NotificationIDs, userID); err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, markReadResponse{
		Success:         true,
		NotificationIDs: req.NotificationIDs,
	})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	id := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n, err := h.svc.MarkAsRead(ctx, id, userID)
	if err != nil {
		transport.Error(w, r, err)
		return
	}
	transport.WriteJSON(w, http.StatusOK, n)
}
