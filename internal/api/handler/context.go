package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ibtissamelhani/induspress/internal/api/middleware"
	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/ports"
)

// ctxSession returns the session injected by the Auth middleware. A missing
// session means the route was mounted without Auth: reject with 401.
func ctxSession(c echo.Context) (*domain.Session, error) {
	sess := middleware.SessionFrom(c)
	if sess == nil || sess.Identity.SubjectID == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return sess, nil
}

type pageQuery struct {
	Page int `query:"page" validate:"gte=0"`
	Size int `query:"size" validate:"gte=0,lte=100"`
}

// bindPage reads ?page&size. Zero size selects the service default.
func bindPage(c echo.Context) (ports.PageRequest, error) {
	var q pageQuery
	if err := c.Bind(&q); err != nil {
		return ports.PageRequest{}, echo.NewHTTPError(http.StatusBadRequest, "invalid page parameters")
	}
	if err := c.Validate(&q); err != nil {
		return ports.PageRequest{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return ports.PageRequest{Page: q.Page, Size: q.Size}, nil
}
