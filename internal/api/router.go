package api

import (
	"fmt"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mr1hm/road-hazard-alerts/internal/observability"
)

type RouterConfig struct {
	// TrustedProxies may set X-Forwarded-For. With none, rate limiting keys on
	// the peer address and forwarded headers are ignored.
	TrustedProxies []string
	RPS            float64
	Burst          int
	ClientTTL      time.Duration
	Metrics        *observability.Metrics
}

// NewRouter returns a gin engine with recovery, CORS and per-client rate
// limiting installed. Routes are added with Handler.RegisterRoutes.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("error setting trusted proxies: %w", err)
	}

	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(RateLimitMiddleware(cfg.RPS, cfg.Burst, cfg.ClientTTL, cfg.Metrics))
	return router, nil
}
