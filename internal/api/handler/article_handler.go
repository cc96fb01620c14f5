package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ibtissamelhani/induspress/internal/api/middleware"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// HeaderIdempotencyKey deduplicates article creation retries.
const HeaderIdempotencyKey = "Idempotency-Key"

// ArticleHandler handles HTTP requests for article operations.
type ArticleHandler struct {
	service ports.ArticleService
}

func NewArticleHandler(service ports.ArticleService) *ArticleHandler {
	return &ArticleHandler{service: service}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// ListPublished handles GET /articles.
//
// @Summary      List published articles
// @Tags         articles
// @Produce      json
// @Param        page  query     int  false  "Zero-based page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  domain.Page
// @Router       /articles [get]
func (h *ArticleHandler) ListPublished(c echo.Context) error {
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListPublished(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ListAll handles GET /articles/all.
//
// @Summary      List every article regardless of status
// @Tags         articles
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Zero-based page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  domain.Page
// @Failure      403   {object}  errorResponse
// @Router       /articles/all [get]
func (h *ArticleHandler) ListAll(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListAll(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// ListMine handles GET /articles/my-articles.
//
// @Summary      List the caller's own articles
// @Tags         articles
// @Produce      json
// @Security     BearerAuth
// @Param        page  query     int  false  "Zero-based page"
// @Param        size  query     int  false  "Page size"
// @Success      200   {object}  domain.Page
// @Router       /articles/my-articles [get]
func (h *ArticleHandler) ListMine(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	req, err := bindPage(c)
	if err != nil {
		return err
	}
	page, err := h.service.ListMine(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Stats handles GET /articles/stats.
//
// @Summary      Article counts per status
// @Tags         articles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Stats
// @Failure      403  {object}  errorResponse
// @Router       /articles/stats [get]
func (h *ArticleHandler) Stats(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	st, err := h.service.Stats(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// Get handles GET /articles/:id. Anonymous callers only see published articles.
//
// @Summary      Get an article
// @Tags         articles
// @Produce      json
// @Param        id   path      string  true  "Article id"
// @Success      200  {object}  domain.Article
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /articles/{id} [get]
func (h *ArticleHandler) Get(c echo.Context) error {
	a, err := h.service.Get(c.Request().Context(), middleware.SessionFrom(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Create handles POST /articles.
//
// @Summary      Submit a new article
// @Tags         articles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string        false  "Idempotency key to prevent duplicate submissions"
// @Param        body             body      domain.Draft  true   "Article draft"
// @Success      201              {object}  domain.Article
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Router       /articles [post]
func (h *ArticleHandler) Create(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var draft domain.Draft
	if err := c.Bind(&draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	a, err := h.service.Create(c.Request().Context(), sess, draft, c.Request().Header.Get(HeaderIdempotencyKey))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

// Update handles PUT /articles/:id.
//
// @Summary      Edit an article
// @Tags         articles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Article id"
// @Param        body  body      domain.Draft  true  "Article draft"
// @Success      200   {object}  domain.Article
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /articles/{id} [put]
func (h *ArticleHandler) Update(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var draft domain.Draft
	if err := c.Bind(&draft); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	a, err := h.service.Update(c.Request().Context(), sess, c.Param("id"), draft)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Delete handles DELETE /articles/:id.
//
// @Summary      Delete an article
// @Tags         articles
// @Security     BearerAuth
// @Param        id  path  string  true  "Article id"
// @Success      204
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /articles/{id} [delete]
func (h *ArticleHandler) Delete(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), sess, c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Publish handles PATCH /articles/:id/publish.
//
// @Summary      Publish a pending article
// @Tags         articles
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Article id"
// @Success      200  {object}  domain.Article
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /articles/{id}/publish [patch]
func (h *ArticleHandler) Publish(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	a, err := h.service.Publish(c.Request().Context(), sess, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Reject handles PATCH /articles/:id/reject.
//
// @Summary      Reject a pending article
// @Tags         articles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Article id"
// @Param        body  body      rejectRequest  true  "Rejection reason"
// @Success      200   {object}  domain.Article
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /articles/{id}/reject [patch]
func (h *ArticleHandler) Reject(c echo.Context) error {
	sess, err := ctxSession(c)
	if err != nil {
		return err
	}
	var req rejectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	a, err := h.service.Reject(c.Request().Context(), sess, c.Param("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

// Categories handles GET /categories.
//
// @Summary      List categories
// @Tags         categories
// @Produce      json
// @Success      200  {array}  domain.Category
// @Router       /categories [get]
func (h *ArticleHandler) Categories(c echo.Context) error {
	cats, err := h.service.Categories(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, cats)
}
