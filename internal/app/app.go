package app

import (
	"context"
	"fmt"
	"time"

	temporalsdkclient "go.temporal.io/sdk/client"
	"gorm.io/gorm"

	coachdb "github.com/yungbote/neurobridge-coach/internal/data/db"
	"github.com/yungbote/neurobridge-coach/internal/data/graph"
	coachhttp "github.com/yungbote/neurobridge-coach/internal/http"
	"github.com/yungbote/neurobridge-coach/internal/jobs/worker"
	"github.com/yungbote/neurobridge-coach/internal/observability"
	"github.com/yungbote/neurobridge-coach/internal/platform/envutil"
	"github.com/yungbote/neurobridge-coach/internal/platform/logger"
	"github.com/yungbote/neurobridge-coach/internal/platform/neo4jdb"
	"github.com/yungbote/neurobridge-coach/internal/realtime/bus"
	"github.com/yungbote/neurobridge-coach/internal/services"
	"github.com/yungbote/neurobridge-coach/internal/temporalx"
	"github.com/yungbote/neurobridge-coach/internal/temporalx/analysisrun"
	"github.com/yungbote/neurobridge-coach/internal/temporalx/temporalworker"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Clients  Clients
	Services Services
	Server   *coachhttp.Server

	dbService    *coachdb.DatabaseService
	pool         *worker.Pool
	events       bus.Bus
	graph        *neo4jdb.Client
	temporal     temporalsdkclient.Client
	temporalCfg  temporalx.Config
	analysisRuns backgroundRunner
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

// NewLogger builds the process logger from LOG_MODE.
func NewLogger() (*logger.Logger, error) {
	log, err := logger.New(envutil.String("LOG_MODE", "development"))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

// OpenDatabase connects and migrates. It is shared by the server and the admin CLI.
func OpenDatabase(log *logger.Logger, migrate bool) (*coachdb.DatabaseService, error) {
	dbs, err := coachdb.NewDatabaseService(log)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if migrate {
		if err := dbs.AutoMigrateAll(); err != nil {
			_ = dbs.Close()
			return nil, fmt.Errorf("automigrate: %w", err)
		}
	}
	return dbs, nil
}

// backgroundRunner is a poller started with the app context and stopped when it is cancelled.
type backgroundRunner interface {
	Start(ctx context.Context) error
}

// newAnalysisWorker returns nil without a Temporal client; analysis then stays on the task pool.
func newAnalysisWorker(log *logger.Logger, tc temporalsdkclient.Client, cfg temporalx.Config, analyzer analysisrun.Analyzer) (backgroundRunner, error) {
	if tc == nil {
		return nil, nil
	}
	r, err := temporalworker.NewRunner(log, tc, cfg, analyzer)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		return nil, err
	}

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Version:     cfg.Version,
	})

	dbs, err := OpenDatabase(log, envutil.Bool("DB_AUTOMIGRATE", true))
	if err != nil {
		return nil, err
	}
	theDB := dbs.DB()

	a := &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		dbService:    dbs,
		otelShutdown: otelShutdown,
	}
	fail := func(err error) (*App, error) {
		a.Close()
		return nil, err
	}

	a.events, err = bus.NewFromEnv(log)
	if err != nil {
		return fail(fmt.Errorf("init event bus: %w", err))
	}
	a.graph, err = neo4jdb.NewFromEnv(log)
	if err != nil {
		log.Warn("Neo4j unavailable; concept mastery mirror disabled", "error", err)
		a.graph = nil
	}
	a.graph.WithSchema(graph.MasterySchema...)
	a.Clients, err = wireClients(ctx, log)
	if err != nil {
		return fail(err)
	}
	a.temporalCfg = temporalx.LoadConfig()
	a.temporal, err = temporalx.NewClient(ctx, log, a.temporalCfg)
	if err != nil {
		log.Warn("Temporal unavailable; session analysis runs in-process", "error", err)
		a.temporal = nil
	}
	var durable services.AnalysisScheduler
	if a.temporal != nil {
		durable = analysisrun.NewScheduler(a.temporal, a.temporalCfg.TaskQueue)
	}

	a.pool = worker.NewPool(log, cfg.Worker)
	a.Repos = wireRepos(theDB, log)
	a.Services = wireServices(theDB, log, cfg, a.Repos, a.Clients, a.pool, durable, a.events, a.graph)
	a.analysisRuns, err = newAnalysisWorker(log, a.temporal, a.temporalCfg, a.Services.Analyzer)
	if err != nil {
		return fail(fmt.Errorf("init analysis worker: %w", err))
	}
	a.Server = wireServer(log, theDB, cfg, metrics, a.Services)
	return a, nil
}

// Start runs background consumers. The event log consumer mirrors lifecycle events into the
// process log so a deployment without redis still has an audit trail. With Temporal configured
// the analysis worker polls from this process too.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	if a.events != nil {
		eventLog := a.Log.With("consumer", "SessionEvents")
		err := a.events.StartForwarder(ctx, func(ev bus.Event) {
			eventLog.Info("Session event",
				"type", ev.Type,
				"session_id", ev.SessionID,
				"learner_id", ev.LearnerID,
				"course_id", ev.CourseID,
			)
		})
		if err != nil {
			a.Log.Warn("Session event consumer not started", "error", err)
		}
	}
	if a.analysisRuns != nil {
		go func() {
			if err := a.analysisRuns.Start(ctx); err != nil && ctx.Err() == nil {
				a.Log.Error("Temporal analysis worker not started; scheduled analyses will wait", "error", err)
			}
		}()
	}
}

func (a *App) Run() error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Listening", "port", a.Cfg.Port)
	return a.Server.Run(":" + a.Cfg.Port)
}

// Shutdown drains HTTP, then background tasks, then closes clients.
func (a *App) Shutdown(ctx context.Context) {
	if a == nil {
		return
	}
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown", "error", err)
		}
	}
	if a.pool != nil {
		if err := a.pool.Close(ctx); err != nil {
			a.Log.Warn("Worker pool drain incomplete", "error", err)
		}
		a.pool = nil
	}
	a.Close()
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.pool != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.pool.Close(ctx)
		cancel()
		a.pool = nil
	}
	if a.events != nil {
		_ = a.events.Close()
		a.events = nil
	}
	if a.temporal != nil {
		a.temporal.Close()
		a.temporal = nil
	}
	if a.graph != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.graph.Close(ctx)
		cancel()
		a.graph = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	if a.dbService != nil {
		_ = a.dbService.Close()
		a.dbService = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
