package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ouvidoriag/ogdash2/internal/domain"
	"github.com/ouvidoriag/ogdash2/internal/http/response"
	"github.com/ouvidoriag/ogdash2/internal/platform/apierr"
)

type NotificationHistory interface {
	History(ctx context.Context, identifier string) ([]*domain.NotificationRecord, error)
}

type NotificationHandler struct {
	history NotificationHistory
}

func NewNotificationHandler(history NotificationHistory) *NotificationHandler {
	return &NotificationHandler{history: history}
}

// GET /api/notifications/:identifier
func (h *NotificationHandler) ListForIdentifier(c *gin.Context) {
	id := strings.TrimSpace(c.Param("identifier"))
	if id == "" {
		response.RespondErr(c, apierr.BadInput(fmt.Errorf("identifier is required")))
		return
	}
	rows, err := h.history.History(c.Request.Context(), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"identifier": id, "notifications": rows})
}
