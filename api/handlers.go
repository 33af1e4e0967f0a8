package api

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/labstack/echo/v4"

	"insights-engine/domain"
)

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, svc Insights, auth Authenticator, logger *log.Logger) {
	e.GET("/api/insights/metrics", getMetrics(svc, auth))
	e.GET("/api/insights/notifications", getNotifications(svc, auth, logger))
	e.POST("/api/insights/notifications/:id/dismiss", postDismiss(svc, auth))
	e.POST("/api/insights/notifications/dismiss-all", postDismissAll(svc, auth))
	e.GET("/healthz", healthz(svc))
}

type metricsResponse struct {
	domain.MetricsSnapshot
	LastRefreshed time.Time `json:"lastRefreshed"`
}

type notificationsResponse struct {
	Notifications []domain.Notification `json:"notifications"`
	LastRefreshed time.Time             `json:"lastRefreshed"`
}

func healthz(svc Insights) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := svc.LastRefreshed(); !ok {
			return c.String(http.StatusServiceUnavailable, "no snapshot yet")
		}
		return c.NoContent(http.StatusOK)
	}
}

func getMetrics(svc Insights, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization")); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		snapshot, ok := svc.Metrics(c.QueryParam("scope"))
		if !ok {
			return c.String(http.StatusServiceUnavailable, "snapshot not ready")
		}
		refreshedAt, _ := svc.LastRefreshed()
		return c.JSON(http.StatusOK, metricsResponse{MetricsSnapshot: snapshot, LastRefreshed: refreshedAt})
	}
}

func getNotifications(svc Insights, auth Authenticator, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		ctx := c.Request().Context()
		metrics, spanCtx := newNotificationsRequestMetrics(ctx, logger)
		if spanCtx != nil {
			req := c.Request().WithContext(spanCtx)
			c.SetRequest(req)
			ctx = spanCtx
		}
		defer func() {
			metrics.Log(c.Response().Status, err)
		}()

		authStart := time.Now()
		identity, authErr := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		metrics.ObserveAuth(time.Since(authStart))
		if authErr != nil {
			metrics.SetErrorStage("auth")
			err = c.String(http.StatusUnauthorized, authErr.Error())
			return err
		}

		if _, ok := svc.LastRefreshed(); !ok {
			metrics.SetErrorStage("not_ready")
			err = c.String(http.StatusServiceUnavailable, "snapshot not ready")
			return err
		}

		generateStart := time.Now()
		feed := svc.Notifications(ctx, identity.Email)
		metrics.ObserveGenerate(time.Since(generateStart))
		metrics.SetReturned(len(feed))
		if feed == nil {
			feed = []domain.Notification{}
		}

		refreshedAt, _ := svc.LastRefreshed()
		encodeStart := time.Now()
		err = c.JSON(http.StatusOK, notificationsResponse{Notifications: feed, LastRefreshed: refreshedAt})
		metrics.ObserveEncode(time.Since(encodeStart))
		if err != nil {
			metrics.SetErrorStage("encode")
		}
		return err
	}
}

func postDismiss(svc Insights, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		id := c.Param("id")
		if id == "" {
			return c.String(http.StatusBadRequest, "missing notification id")
		}
		if err := svc.Dismiss(c.Request().Context(), identity.Email, id); err != nil {
			return c.String(http.StatusInternalServerError, "unable to persist dismissal")
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func postDismissAll(svc Insights, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		identity, err := auth.IdentityFromAuthHeader(c.Request().Header.Get("Authorization"))
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}

		if err := svc.ClearAll(c.Request().Context(), identity.Email); err != nil {
			return c.String(http.StatusInternalServerError, "unable to persist dismissals")
		}
		return c.NoContent(http.StatusNoContent)
	}
}
