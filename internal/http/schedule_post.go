package http

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/postpilot/postpilot/internal/http/middleware"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/service/compose"
)

type scheduleReq struct {
	Content     map[string]string `json:"content"` // locale -> body
	MediaURLs   []string          `json:"media_urls"`
	MediaKind   string            `json:"media_kind"` // image | video
	AccountIDs  []string          `json:"account_ids"`
	CampaignID  string            `json:"campaign_id"`
	TeamID      *int64            `json:"team_id"`
	ScheduledAt time.Time         `json:"scheduled_at"`
}

func schedulePostHandler(svc *compose.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req scheduleReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		// Basic validation
		for locale, body := range req.Content {
			body = strings.TrimSpace(body)
			if body == "" {
				delete(req.Content, locale)
				continue
			}
			if utf8.RuneCountInString(body) > 5000 {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "content too long"})
			}
			req.Content[locale] = body
		}
		if len(req.Content) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "content required"})
		}
		if len(req.AccountIDs) == 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "account_ids required"})
		}

		kind := model.MediaKind(req.MediaKind)
		if kind != "" && kind != model.MediaKindImage && kind != model.MediaKindVideo {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid media_kind"})
		}

		userID, ok := middleware.UserIDFromCtx(c)
		if !ok || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		postID, err := svc.Schedule(c.Request().Context(), userID, compose.Draft{
			Content:     req.Content,
			MediaURLs:   req.MediaURLs,
			MediaKind:   kind,
			AccountIDs:  req.AccountIDs,
			TeamID:      req.TeamID,
			CampaignID:  req.CampaignID,
			ScheduledAt: req.ScheduledAt,
		})
		if err != nil {
			if errors.Is(err, compose.ErrUnknownAccount) {
				return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "unknown account"})
			}
			if errors.Is(err, compose.ErrNoContent) || errors.Is(err, compose.ErrNoTargets) {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
			}

			log.Errorf("schedule failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusAccepted, map[string]any{
			"scheduled": true,
			"id":        postID,
			"targets":   len(req.AccountIDs),
		})
	}
}
