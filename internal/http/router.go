package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/neurobridge-coach/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-coach/internal/http/middleware"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	Tracing        bool
	ServiceName    string
	AllowedOrigins []string

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler   *httpH.HealthHandler
	SessionHandler  *httpH.SessionHandler
	MemoryHandler   *httpH.MemoryHandler
	ProfileHandler  *httpH.ProfileHandler
	FeedbackHandler *httpH.FeedbackHandler
	RealtimeHandler *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		name := cfg.ServiceName
		if name == "" {
			name = "neurobridge-coach"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	coach := r.Group("/api/coach")
	if cfg.AuthMiddleware != nil {
		coach.Use(cfg.AuthMiddleware.RequireAuth())
	}
	{
		// Sessions
		if cfg.SessionHandler != nil {
			coach.POST("/sessions", cfg.SessionHandler.Start)
			coach.GET("/sessions", cfg.SessionHandler.List)
			coach.GET("/sessions/:id", cfg.SessionHandler.Get)
			coach.GET("/sessions/:id/transcript", cfg.SessionHandler.Transcript)
			coach.GET("/sessions/:id/insights", cfg.SessionHandler.Insights)
			coach.POST("/sessions/:id/complete", cfg.SessionHandler.Complete)
			coach.GET("/sessions/:id/report", cfg.SessionHandler.Report)
			coach.POST("/sessions/:id/analyze", cfg.SessionHandler.Analyze)
		}

		// Feedback
		if cfg.FeedbackHandler != nil {
			coach.POST("/sessions/:id/feedback", cfg.FeedbackHandler.Submit)
			coach.GET("/sessions/:id/feedback", cfg.FeedbackHandler.ListForSession)
			coach.GET("/feedback", cfg.FeedbackHandler.ListForLearner)
		}

		// Memories
		if cfg.MemoryHandler != nil {
			coach.GET("/memories", cfg.MemoryHandler.Search)
			coach.POST("/memories", cfg.MemoryHandler.Add)
		}

		// Profiles
		if cfg.ProfileHandler != nil {
			coach.GET("/profile", cfg.ProfileHandler.GetLearnerProfile)
			coach.GET("/profile/courses", cfg.ProfileHandler.ListCourseProfiles)
			coach.GET("/profile/courses/:course_id", cfg.ProfileHandler.GetCourseProfile)
		}

		// Realtime
		if cfg.RealtimeHandler != nil {
			coach.POST("/realtime/session", cfg.RealtimeHandler.CreateSession)
			coach.POST("/realtime/sdp", cfg.RealtimeHandler.ExchangeSDP)
			coach.GET("/realtime/ws", cfg.RealtimeHandler.Control)
		}
	}

	return r
}
