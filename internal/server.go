package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/liftlog-app/liftlog/internal/auth"
	"github.com/liftlog-app/liftlog/internal/config"
	"github.com/liftlog-app/liftlog/internal/db"
	"github.com/liftlog-app/liftlog/internal/middleware"
	"github.com/liftlog-app/liftlog/internal/telemetry/metrics"
	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"
	"github.com/liftlog-app/liftlog/internal/workouts/facade"
	"github.com/liftlog-app/liftlog/internal/workouts/localstore"
	"github.com/liftlog-app/liftlog/internal/workouts/remotestore"
	"github.com/liftlog-app/liftlog/internal/workouts/stats"
	"github.com/liftlog-app/liftlog/internal/workouts/syncer"
	"github.com/liftlog-app/liftlog/internal/workouts/transfer"
	"github.com/liftlog-app/liftlog/pkg"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server
	versionInfo       string

	config     *config.Config
	dbPool     *pgxpool.Pool
	localStore *localstore.Store

	redisClient  *redis.Client
	loginChecker *auth.LoginChecker
	authService  *auth.Service

	workoutsService *facade.Service

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	VersionInfo             string
	AdminUsername           string
	AdminPasswordHash       string
	RedisPassword           string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         params.Config.PostgresHost,
		DBPort:         params.Config.PostgresPort,
		DBName:         params.Config.PostgresDBName,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	// remote store being down must not prevent startup, the local store
	// keeps working on its own
	if err := remotestore.ApplySchema(ctx, dbPool); err != nil {
		log.Errorf("failed to apply workouts db schema: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": "liftlog_db"},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("liftlog", "service", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(params.Config.RedisHost, params.Config.RedisPort),
		Password: params.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	authEvents := auth.NewEvents()
	authService := auth.NewAuthService(&auth.Admin{
		UserID:       params.AdminUsername,
		Username:     params.AdminUsername,
		PasswordHash: params.AdminPasswordHash,
	}, auth.DefaultTTL, rdb, authEvents)
	go func() {
		for range time.Tick(time.Hour * 8) {
			authService.ScanAndClean(ctx)
		}
	}()

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "liftlog-backend", rdb)
	if err != nil {
		return nil, err
	}

	localStore, err := localstore.Open(params.Config.LocalStorePath)
	if err != nil {
		return nil, fmt.Errorf("open local workouts store: %w", err)
	}

	workoutsRepo := remotestore.NewRepo(dbPool, remotestore.NewChangeNotifier(rdb))
	syncEngine := syncer.NewEngine(localStore, workoutsRepo, metricsManager)
	workoutsService := facade.NewService(
		localStore,
		remoteStoreAdapter{workoutsRepo},
		syncEngine,
		authEvents,
	)
	go workoutsService.Run(ctx)

	return &Server{
		config:      params.Config,
		dbPool:      dbPool,
		localStore:  localStore,
		versionInfo: params.VersionInfo,

		redisClient:  rdb,
		authService:  authService,
		loginChecker: auth.NewLoginChecker(auth.DefaultTTL, rdb),

		workoutsService: workoutsService,

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("liftlog-router"))

	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
	}).Methods("GET", "OPTIONS").Name("root")
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		pkg.WriteTextResponseOK(w, s.versionInfo)
	}).Methods("GET").Name("version")

	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)
	authHandler := auth.NewHandler(s.authService)
	authHandler.SetupRoutes(r, reqRateLimiter, s.config.LoginRateLimitAllowedPerMin, s.metricsManager)

	workoutsHandler := facade.NewHandler(s.workoutsService, s.metricsManager)
	r.HandleFunc("/workouts", workoutsHandler.HandleList).Methods("GET", "OPTIONS").Name("list-workouts")
	r.HandleFunc("/workouts", workoutsHandler.HandleCreate).Methods("POST", "OPTIONS").Name("new-workout")
	r.HandleFunc("/workouts/sync", workoutsHandler.HandleSync).Methods("POST", "OPTIONS").Name("sync-workouts")
	r.HandleFunc("/workouts/sync/status", workoutsHandler.HandleSyncStatus).Methods("GET", "OPTIONS").Name("sync-status")

	statsHandler := stats.NewHandler(s.workoutsService)
	r.HandleFunc("/workouts/stats", statsHandler.HandleStats).Methods("GET", "OPTIONS").Name("workouts-stats")

	transferHandler := transfer.NewHandler(s.workoutsService)
	r.HandleFunc("/workouts/export/csv", transferHandler.HandleExportCSV).Methods("GET", "OPTIONS").Name("export-csv")
	r.HandleFunc("/workouts/export/json", transferHandler.HandleExportJSON).Methods("GET", "OPTIONS").Name("export-json")
	r.HandleFunc("/workouts/import", transferHandler.HandleImport).Methods("POST", "OPTIONS").Name("import-workouts")

	// registered after the fixed /workouts subpaths, {id} matches everything
	r.HandleFunc("/workouts/{id}", workoutsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-workout")
	r.HandleFunc("/workouts/{id}", workoutsHandler.HandleUpdate).Methods("PUT", "OPTIONS").Name("update-workout")
	r.HandleFunc("/workouts/{id}", workoutsHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-workout")

	// all the rest - unhandled paths
	r.HandleFunc("/{unknown}", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}).Methods("GET", "POST", "PUT", "OPTIONS").Name("unknown")

	authMiddleware := middleware.NewAuthMiddlewareHandler(
		s.loginChecker,
		s.workoutsService,
	)

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors())
	r.Use(authMiddleware.AuthCheck())
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) Serve(host string, port int) {
	router := s.routerSetup()

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      router,
		Addr:         ipAndPort,
		WriteTimeout: time.Minute,
		ReadTimeout:  time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(
		s.promRegistry,
		promhttp.HandlerOpts{},
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")

	s.metricsManager.GaugeLifeSignal.Set(0)

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.localStore != nil {
		if err := s.localStore.Close(); err != nil {
			log.Errorf("failed to close local workouts store: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown http server")
	}
	log.Warnln("server shut down")

	if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
		log.Error(" >>> failed to gracefully shutdown metrics http server")
	}
	log.Warnln("metrics server shut down")
}

// remoteStoreAdapter narrows *remotestore.Repo's Subscribe return type to
// the subscription interface the workouts facade expects.
type remoteStoreAdapter struct {
	*remotestore.Repo
}

func (a remoteStoreAdapter) Subscribe(ctx context.Context, userID string) facade.Subscription {
	return a.Repo.Subscribe(ctx, userID)
}
