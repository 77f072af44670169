package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/danmuck/can2mqtt/internal/auth"
)

func (a *Admin) registerRoutes() {
	a.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(a.started).String(),
			"service": "can2mqtt",
			"version": version,
		})
	})

	a.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	a.router.GET("/ready", func(c *gin.Context) {
		snap, ok := a.routes.Snapshot()
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":      ok,
			"generation": snap.Seq,
			"uptime":     time.Since(a.started).String(),
		})
	})

	a.router.GET("/routes", func(c *gin.Context) {
		snap, ok := a.routes.Snapshot()
		body := gin.H{
			"generation": snap.Seq,
			"routes":     snap.Entries,
			"last_error": snap.LastErr,
		}
		if ok {
			body["loaded_at"] = snap.LoadedAt
		}
		c.JSON(http.StatusOK, body)
	})

	a.router.POST("/api/reload", a.requireToken, func(c *gin.Context) {
		if a.reload == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "reload unavailable"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), reloadTimeout)
		defer cancel()
		if err := a.reload(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
	})
}

func (a *Admin) requireToken(c *gin.Context) {
	if a.guard == nil {
		c.Next()
		return
	}
	if err := auth.Authorize(a.guard, c.GetHeader("Authorization")); err != nil {
		a.log.Warn().Str("client_ip", c.ClientIP()).Msg("admin request rejected")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Next()
}
