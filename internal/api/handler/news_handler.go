package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/amy/portal-client/internal/core/ports"
)

type NewsHandler struct {
	news ports.NewsReader
}

func NewNewsHandler(news ports.NewsReader) *NewsHandler {
	return &NewsHandler{news: news}
}

// List returns the cached news items. With refresh=true the feed is re-read
// first.
//
// @Summary      Latest news
// @Tags         news
// @Produce      json
// @Security     BearerAuth
// @Param        refresh  query     bool  false  "Re-read before answering"
// @Success      200      {object}  newsResponse
// @Failure      502      {object}  map[string]string
// @Router       /v1/news [get]
func (h *NewsHandler) List(c echo.Context) error {
	if refresh, _ := strconv.ParseBool(c.QueryParam("refresh")); refresh {
		if err := h.news.Refresh(c.Request().Context()); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, newsResponse{
		Items:   h.news.Items(),
		Loading: h.news.Loading(),
		Error:   errString(h.news.Err()),
	})
}
