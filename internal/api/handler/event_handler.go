package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

// HistoryReader is the part of the article service the event handler needs.
type HistoryReader interface {
	History(ctx context.Context, actor *domain.Session, id string) ([]domain.ArticleEvent, error)
}

// EventHandler serves the audit trail of workflow transitions.
type EventHandler struct {
	history HistoryReader
}

// NewEventHandler creates an EventHandler backed by the given reader.
func NewEventHandler(history HistoryReader) *EventHandler {
	return &EventHandler{history: history}
}

type historyResponse struct {
	ArticleID string                `json:"articleId"`
	Events    []domain.ArticleEvent `json:"events"`
	Count     int                   `json:"count"`
}

// History handles GET /articles/:id/history.
//
// @Summary      Workflow history of an article
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Article id"
// @Success      200  {object}  historyResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /articles/{id}/history [get]
func (h *EventHandler) History(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	id := c.Param("id")
	events, err := h.history.History(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyResponse{ArticleID: id, Events: events, Count: len(events)})
}
