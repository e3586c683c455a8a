package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/postpilot/postpilot/internal/http/middleware"
	"github.com/postpilot/postpilot/internal/model"
	"github.com/postpilot/postpilot/internal/repository"
)

type targetView struct {
	ID             string     `json:"id"`
	AccountID      string     `json:"account_id"`
	Status         string     `json:"status"`
	Attempt        int        `json:"attempt"`
	LastError      string     `json:"last_error,omitempty"`
	ExternalPostID string     `json:"external_post_id,omitempty"`
	ExternalURL    string     `json:"external_url,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

// postStatusHandler exposes the post with its per-target outcomes; a
// mid-retry target surfaces its last error and attempt count here.
func postStatusHandler(posts repository.PostsRepository, targets repository.TargetsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := middleware.UserIDFromCtx(c)
		if !ok || userID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		post, err := posts.Get(c.Request().Context(), c.Param("id"))
		if err != nil {
			c.Logger().Errorf("load post: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if post == nil || post.AuthorID != userID {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not found"})
		}

		rows, err := targets.ListByPost(c.Request().Context(), post.ID)
		if err != nil {
			c.Logger().Errorf("load targets: %v", err)
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		views := make([]targetView, 0, len(rows))
		for _, t := range rows {
			views = append(views, toTargetView(t))
		}

		resp := map[string]any{
			"id":      post.ID,
			"status":  post.Status.String(),
			"targets": views,
		}
		if post.PublishedAt.Valid {
			resp["published_at"] = post.PublishedAt.Time
		}

		return c.JSON(http.StatusOK, resp)
	}
}

func toTargetView(t model.PostTarget) targetView {
	v := targetView{
		ID:        t.ID,
		AccountID: t.AccountID,
		Status:    t.Status.String(),
		Attempt:   t.Attempt,
	}
	if t.LastError.Valid {
		v.LastError = t.LastError.String
	}
	if t.ExternalPostID.Valid {
		v.ExternalPostID = t.ExternalPostID.String
	}
	if t.ExternalURL.Valid {
		v.ExternalURL = t.ExternalURL.String
	}
	if t.PublishedAt.Valid {
		pt := t.PublishedAt.Time
		v.PublishedAt = &pt
	}
	return v
}
