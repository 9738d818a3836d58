// Package httpapi serves the bearer-authenticated profile and MFA endpoints
// consumed by the profileapi client.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tripwell/tripauth/issuer"
	"github.com/tripwell/tripauth/profile"
)

// Server aggregates the backend's collaborators behind the HTTP handlers.
type Server struct {
	store   *profile.Store
	issuer  *issuer.Issuer
	log     *zap.Logger
	metrics *Metrics
}

// NewServer wires a server over its store and code issuer.
func NewServer(store *profile.Store, codeIssuer *issuer.Issuer, log *zap.Logger, metrics *Metrics) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Server{
		store:   store,
		issuer:  codeIssuer,
		log:     log,
		metrics: metrics,
	}
}

// Router builds the gin engine: open health and metrics endpoints plus the
// bearer-guarded user surface.
func (s *Server) Router(jwtSecret []byte, gatherer prometheus.Gatherer) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	user := router.Group("/user", BearerAuth(jwtSecret))
	{
		user.GET("/profile", s.getProfile)
		user.PUT("/profile", s.putProfile)

		mfa := user.Group("/mfa")
		mfa.POST("/email/setup", s.emailSetup)
		mfa.POST("/email/verify", s.emailVerify)
		mfa.POST("/totp/setup", s.totpSetup)
		mfa.POST("/totp/verify", s.totpVerify)
		mfa.POST("/disable", s.disableMFA)
	}

	auth := router.Group("/auth", BearerAuth(jwtSecret))
	{
		auth.POST("/email-mfa/request", s.emailChallenge)
	}

	return router
}
