package facade

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/liftlog-app/liftlog/internal/telemetry/metrics"
	"github.com/liftlog-app/liftlog/internal/telemetry/tracing"
	"github.com/liftlog-app/liftlog/internal/workouts"
	"github.com/liftlog-app/liftlog/internal/workouts/syncer"
	"github.com/liftlog-app/liftlog/pkg"
)

//go:generate mockgen -source=handler.go -destination=handler_mocks_test.go -package=facade_test

type workoutsService interface {
	List(ctx context.Context) ([]workouts.Workout, error)
	Create(ctx context.Context, workout workouts.Workout) (workouts.Workout, error)
	Update(ctx context.Context, id string, workout workouts.Workout) (workouts.Workout, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (workouts.Workout, error)
	Sync(ctx context.Context) (syncer.Result, error)
	Status() SyncStatus
}

type WorkoutsListResponse struct {
	Workouts []workouts.Workout `json:"workouts"`
	Total    int                `json:"total"`
}

type DeleteWorkoutResponse struct {
	DeletedID string `json:"deletedId"`
}

type Handler struct {
	service workoutsService
	metrics *metrics.Manager
}

func NewHandler(service workoutsService, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		service: service,
		metrics: metricsManager,
	}
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.list")
	defer span.End()

	all, err := handler.service.List(ctx)
	if err != nil {
		log.Errorf("list workouts error: %s", err)
		http.Error(w, "failed to load workouts", http.StatusInternalServerError)
		return
	}
	if all == nil {
		all = []workouts.Workout{}
	}

	listResponseJson, err := json.Marshal(WorkoutsListResponse{
		Workouts: all,
		Total:    len(all),
	})
	if err != nil {
		log.Errorf("marshal workouts error: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, listResponseJson, http.StatusOK)
}

func (handler *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var workout workouts.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Errorf("new workout, unmarshal json params: %s", err)
		http.Error(w, "add workout failed", http.StatusBadRequest)
		return
	}

	if err := workout.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	added, err := handler.service.Create(ctx, workout)
	if err != nil {
		log.Errorf("failed to add new workout [%s]: %s", workout.Date.Format("2006-01-02"), err)
		http.Error(w, "failed to save workout", http.StatusInternalServerError)
		return
	}

	handler.metrics.CounterWorkoutsCreated.Inc()
	log.Debugf("new workout added: [%s]: %s", added.Date.Format("2006-01-02"), added.ID)

	addedJson, err := json.Marshal(added)
	if err != nil {
		log.Errorf("failed to marshal new workout: %s", err)
		http.Error(w, "failed to save workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.get")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	workout, err := handler.service.GetByID(ctx, id)
	if err != nil {
		handler.writeOpError(w, "failed to load workout", id, err)
		return
	}

	workoutJson, err := json.Marshal(workout)
	if err != nil {
		log.Errorf("failed to marshal workout: %s", err)
		http.Error(w, "failed to load workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, workoutJson, http.StatusOK)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.update")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	var workout workouts.Workout
	if err := json.NewDecoder(r.Body).Decode(&workout); err != nil {
		log.Errorf("update workout, unmarshal json params: %s", err)
		http.Error(w, "update workout failed", http.StatusBadRequest)
		return
	}

	if err := workout.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := handler.service.Update(ctx, id, workout)
	if err != nil {
		handler.writeOpError(w, "failed to update workout", id, err)
		return
	}

	log.Debugf("workout updated: [%s]: %s", updated.Date.Format("2006-01-02"), updated.ID)

	updatedJson, err := json.Marshal(updated)
	if err != nil {
		log.Errorf("failed to marshal updated workout: %s", err)
		http.Error(w, "failed to update workout", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(updatedJson))
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.delete")
	defer span.End()

	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}

	if err := handler.service.Delete(ctx, id); err != nil {
		handler.writeOpError(w, "failed to delete workout", id, err)
		return
	}

	deleteRespJson, err := json.Marshal(DeleteWorkoutResponse{
		DeletedID: id,
	})
	if err != nil {
		log.Errorf("failed to marshal delete response: %s", err)
		http.Error(w, "failed to delete workout", http.StatusInternalServerError)
		return
	}

	pkg.WriteJSONResponseOK(w, string(deleteRespJson))
}

// HandleSync triggers the local-to-remote migration by hand, the retry path
// after a failed login migration.
func (handler *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.sync")
	defer span.End()

	result, err := handler.service.Sync(ctx)
	switch {
	case errors.Is(err, ErrNotLoggedIn):
		http.Error(w, "no user logged in", http.StatusUnauthorized)
		return
	case errors.Is(err, syncer.ErrSyncInProgress), errors.Is(err, syncer.ErrAlreadySynced):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		log.Errorf("manual sync error: %s", err)
		http.Error(w, "sync failed", http.StatusInternalServerError)
		return
	}

	resultJson, err := json.Marshal(result)
	if err != nil {
		log.Errorf("failed to marshal sync result: %s", err)
		http.Error(w, "sync failed", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(resultJson))
}

func (handler *Handler) HandleSyncStatus(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.workouts.syncStatus")
	defer span.End()

	statusJson, err := json.Marshal(handler.service.Status())
	if err != nil {
		log.Errorf("failed to marshal sync status: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteJSONResponseOK(w, string(statusJson))
}

func (handler *Handler) writeOpError(w http.ResponseWriter, message, id string, err error) {
	switch {
	case errors.Is(err, ErrWorkoutNotFound):
		http.Error(w, "workout not found", http.StatusNotFound)
	case errors.Is(err, ErrPermissionDenied):
		http.Error(w, "workout access denied", http.StatusForbidden)
	default:
		log.Errorf("workout %s: %s: %s", id, message, err)
		http.Error(w, message, http.StatusInternalServerError)
	}
}
