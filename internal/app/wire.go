package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-coach/internal/data/repos"
	coachhttp "github.com/yungbote/neurobridge-coach/internal/http"
	httpH "github.com/yungbote/neurobridge-coach/internal/http/handlers"
	httpMW "github.com/yungbote/neurobridge-coach/internal/http/middleware"
	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/analysis"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/behavior"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/extraction"
	"github.com/yungbote/neurobridge-coach/internal/modules/coach/memory"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-coach/internal/platform/openai"
	"github.com/yungbote/neurobridge-coach/internal/platform/vectorstore"
	"github.com/yungbote/neurobridge-coach/internal/realtime"
	"github.com/yungbote/neurobridge-coach/internal/realtime/bus"
	"github.com/yungbote/neurobridge-coach/internal/services"
)

type Repos struct {
	Users           repos.UserRepo
	Sessions        repos.SessionRepo
	Reports         repos.ReportRepo
	Feedback        repos.FeedbackRepo
	Memories        repos.MemoryRepo
	LearnerProfiles repos.LearningProfileRepo
	CourseProfiles  repos.CourseProfileRepo
	Courses         repos.CourseRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Users:           repos.NewUserRepo(db, log),
		Sessions:        repos.NewSessionRepo(db, log),
		Reports:         repos.NewReportRepo(db, log),
		Feedback:        repos.NewFeedbackRepo(db, log),
		Memories:        repos.NewMemoryRepo(db, log),
		LearnerProfiles: repos.NewLearningProfileRepo(db, log),
		CourseProfiles:  repos.NewCourseProfileRepo(db, log),
		Courses:         repos.NewCourseRepo(db, log),
	}
}

type Clients struct {
	AI       openai.Client
	Realtime openai.Realtime
	// Vectors is nil when no index is configured.
	Vectors vectorstore.VectorStore
}

func wireClients(ctx context.Context, log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")
	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai: %w", err)
	}
	vectors, err := resolveVectorStore(ctx, log, envutil.Bool("VECTOR_OPTIONAL", false))
	if err != nil {
		return Clients{}, err
	}
	return Clients{AI: ai, Realtime: ai, Vectors: vectors}, nil
}

type Services struct {
	Auth     services.AuthService
	Sessions services.SessionService
	Profiles services.ProfileService
	Feedback services.FeedbackService
	Memory   services.MemoryService
	Realtime services.RealtimeService

	MemoryStore *memory.Store
	Analyzer    *analysis.Analyzer
	Engine      *realtime.Engine
}

func wireServices(
	db *gorm.DB,
	log *logger.Logger,
	cfg Config,
	r Repos,
	c Clients,
	tasks worker.Submitter,
	durable services.AnalysisScheduler,
	events bus.Bus,
	graph *neo4jdb.Client,
) Services {
	log.Info("Wiring services...")
	store := memory.NewStore(log, c.AI, c.Vectors, r.Memories)
	analyzer := analysis.NewAnalyzer(analysis.Deps{
		DB:              db,
		Log:             log,
		AI:              c.AI,
		Sessions:        r.Sessions,
		Reports:         r.Reports,
		LearnerProfiles: r.LearnerProfiles,
		CourseProfiles:  r.CourseProfiles,
		Courses:         r.Courses,
		Graph:           graph,
		Events:          events,
		SmoothingWeight: cfg.Policy.SmoothingWeight,
	})

	sessions := services.NewSessionService(db, log, r.Sessions, r.Reports, r.Courses, analyzer, tasks, durable,
		services.NewSessionNotifier(log, events))
	profiles := services.NewProfileService(db, log, r.LearnerProfiles, r.CourseProfiles)
	feedback := services.NewFeedbackService(db, log, r.Sessions, r.Feedback)

	engine := realtime.NewEngine(realtime.Deps{
		Log:       log,
		Sessions:  sessions,
		Courses:   r.Courses,
		Memories:  store,
		Profiles:  profiles,
		Feedback:  feedback,
		Extractor: extraction.NewExtractor(log, c.AI, store, r.Sessions, cfg.Policy.Extraction()),
		Behavior:  behavior.NewAnalyzer(log, c.AI, cfg.Policy.ConfidenceFloor),
		Tasks:     tasks,
		Policy:    cfg.Policy.Realtime(),
	})

	return Services{
		Auth:        services.NewAuthService(log, r.Users, cfg.JWTSecretKey),
		Sessions:    sessions,
		Profiles:    profiles,
		Feedback:    feedback,
		Memory:      services.NewMemoryService(log, store),
		Realtime:    services.NewRealtimeService(db, log, c.Realtime, r.Courses, cfg.Policy.Voice),
		MemoryStore: store,
		Analyzer:    analyzer,
		Engine:      engine,
	}
}

func wireServer(log *logger.Logger, db *gorm.DB, cfg Config, metrics *observability.Metrics, s Services) *coachhttp.Server {
	log.Info("Wiring HTTP server...")
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = httpMW.DefaultAllowedOrigins
	}
	return coachhttp.NewServer(coachhttp.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		Tracing:         observability.OtelSettingsFromEnv().Enabled,
		ServiceName:     cfg.ServiceName,
		AllowedOrigins:  origins,
		AuthMiddleware:  httpMW.NewAuthMiddleware(log, s.Auth),
		HealthHandler:   httpH.NewHealthHandler(db),
		SessionHandler:  httpH.NewSessionHandler(log, s.Sessions),
		MemoryHandler:   httpH.NewMemoryHandler(s.Memory),
		ProfileHandler:  httpH.NewProfileHandler(s.Profiles),
		FeedbackHandler: httpH.NewFeedbackHandler(s.Feedback),
		RealtimeHandler: httpH.NewRealtimeHandler(log, s.Realtime, s.Engine, origins),
	})
}
