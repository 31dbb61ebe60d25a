package mockservice

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/verustcode/reportviewer/consts"
	"github.com/verustcode/reportviewer/internal/api/middleware"
	"github.com/verustcode/reportviewer/pkg/telemetry"
)

// Register mounts the service API on r
func (s *Service) Register(r gin.IRouter) {
	if s.cfg.Auth.Enabled {
		r.POST("/api/oauth/token", s.token)
	}

	api := r.Group("/api", s.countRequest)
	if s.cfg.Auth.Enabled {
		api.Use(middleware.BearerAuth(s))
	}

	api.GET("/reports/*path", s.catalog)
	api.GET("/report/*rest", s.report)
	api.POST("/report/*rest", s.report)

	cache := api.Group("/reportcache/:id")
	{
		cache.GET("", s.getStatus)
		cache.DELETE("", s.deleteCache)
		cache.GET("/render", s.getRender)
		cache.GET("/stop", s.getStop)
		cache.GET("/parameters", s.getParameters)
		cache.POST("/parameters", s.postParameters)
		cache.POST("/pagesettings", s.postPageSettings)
		cache.POST("/customaction", s.postCustomAction)
		cache.GET("/outlines", s.getOutlines)
		cache.GET("/bookmark", s.getBookmark)
		cache.GET("/search", s.getSearch)
		cache.GET("/export", s.getExport)
	}
}

// NewRouter builds a gin engine with the standard middleware chain and the
// service routes
func NewRouter(s *Service, loggerCfg *middleware.LoggerConfig) *gin.Engine {
	if s.cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	r.Use(otelgin.Middleware(consts.ServiceName + "-mock"))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(loggerCfg))
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics(telemetry.GetMetrics()))
	r.Use(middleware.ErrorHandler())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"version": consts.Version,
			"uptime":  consts.GetUptime().String(),
		})
	})

	s.Register(r)
	return r
}
