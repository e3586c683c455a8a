package http

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/postpilot/postpilot/internal/http/middleware"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/repository"
	"github.com/postpilot/postpilot/internal/util"
)

var subscribableEvents = map[string]bool{
	model.EventPostPublished: true,
	model.EventPostFailed:    true,
}

type createWebhookReq struct {
	URL    string `json:"url"`
	Event  string `json:"event"`
	Secret string `json:"secret"`
	Active *bool  `json:"active"`
}

func createWebhookHandler(repo repository.WebhooksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req createWebhookReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.URL = strings.TrimSpace(req.URL)
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid url"})
		}
		if !subscribableEvents[req.Event] {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid event"})
		}
		if len(req.Secret) < 16 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "secret too short"})
		}

		active := true
		if req.Active != nil {
			active = *req.Active
		}

		sub := model.WebhookSubscription{
			ID:     util.NewID(),
			UserID: userID,
			URL:    req.URL,
			Event:  req.Event,
			Secret: req.Secret,
			Active: active,
		}
		if err := repo.InsertSubscription(c.Request().Context(), sub); err != nil {
			c.Logger().Errorf("insert subscription: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusCreated, map[string]any{
			"id":     sub.ID,
			"url":    sub.URL,
			"event":  sub.Event,
			"active": sub.Active,
		})
	}
}

func listWebhooksHandler(repo repository.WebhooksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		subs, err := repo.ListSubscriptionsByUser(c.Request().Context(), userID)
		if err != nil {
			c.Logger().Errorf("list subscriptions: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		out := make([]map[string]any, 0, len(subs))
		for _, s := range subs {
			out = append(out, map[string]any{
				"id":         s.ID,
				"url":        s.URL,
				"event":      s.Event,
				"active":     s.Active,
				"created_at": s.CreatedAt,
			})
		}

		return c.JSON(http.StatusOK, map[string]any{"count": len(out), "results": out})
	}
}

func deleteWebhookHandler(repo repository.WebhooksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		deleted, err := repo.DeleteSubscription(c.Request().Context(), c.Param("id"), userID)
		if err != nil {
			c.Logger().Errorf("delete subscription: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if !deleted {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		return c.NoContent(http.StatusNoContent)
	}
}
