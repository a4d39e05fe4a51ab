package stats

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"
	"github.com/liftlog-app/liftlog/internal/workouts"
	"github.com/liftlog-app/liftlog/pkg"
)

//go:generate mockgen -source=handler.go -destination=handler_mocks_test.go -package=stats_test

const statsCacheExpireSeconds = 60

type workoutsSource interface {
	List(ctx context.Context) ([]workouts.Workout, error)
	Authenticated() bool
}

type Handler struct {
	source workoutsSource
	cache  *freecache.Cache
}

func NewHandler(source workoutsSource) *Handler {
	megabyte := 1024 * 1024
	return &Handler{
		source: source,
		cache:  freecache.NewCache(1 * megabyte),
	}
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.stats")
	defer span.End()

	// local and remote mode have different data, cached separately
	cacheKey := "stats::local"
	if handler.source.Authenticated() {
		cacheKey = "stats::remote"
	}

	if reportBytes, err := handler.cache.Get([]byte(cacheKey)); err == nil {
		log.Tracef("found workout stats in cache [%s]", cacheKey)
		pkg.WriteResponseBytes(w, pkg.ContentType.JSON, reportBytes, http.StatusOK)
		return
	}

	all, err := handler.source.List(ctx)
	if err != nil {
		log.Errorf("stats, list workouts: %s", err)
		http.Error(w, "failed to load workouts", http.StatusInternalServerError)
		return
	}

	report := Analyze(all)
	reportJson, err := json.Marshal(report)
	if err != nil {
		log.Errorf("failed to marshal stats report: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if err := handler.cache.Set([]byte(cacheKey), reportJson, statsCacheExpireSeconds); err != nil {
		log.Errorf("failed to write stats cache [%s]: %s", cacheKey, err)
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, reportJson, http.StatusOK)
}
