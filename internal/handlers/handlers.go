package handlers

import (
	"context"
	"crewflow/internal/models"
	"crewflow/internal/repository"
	"crewflow/internal/services"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// UserHeader carries the id of the authenticated user. Authentication
// happens in front of this service; requests without the header are
// anonymous.
const UserHeader = "X-User-ID"

var errUnauthorized = errors.New("unknown user")

type callerKey struct{}

type Handler struct {
	requests      *services.RequestService
	videos        *services.VideoService
	users         *services.UserService
	notifications *services.NotificationService
	logger        *logrus.Logger
}

func New(
	requests *services.RequestService,
	videos *services.VideoService,
	users *services.UserService,
	notifications *services.NotificationService,
	logger *logrus.Logger,
) *Handler {
	return &Handler{
		requests:      requests,
		videos:        videos,
		users:         users,
		notifications: notifications,
		logger:        logger,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.identify)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateRequest)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetRequest)
				r.Patch("/", h.UpdateRequest)
				r.Delete("/", h.DeleteRequest)
				r.Get("/videos", h.ListVideos)
				r.Post("/videos", h.CreateVideo)
			})
		})

		r.Route("/videos/{id}", func(r chi.Router) {
			r.Get("/", h.GetVideo)
			r.Patch("/", h.UpdateVideo)
		})
	})

	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	payload := map[string]any{"status": "ok"}
	if h.notifications != nil {
		payload["notifications"] = h.notifications.Stats()
	}
	h.respondJSON(w, http.StatusOK, payload)
}

// identify resolves the caller from UserHeader and stores it in the
// request context.
func (h *Handler) identify(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(UserHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			h.respondError(w, r, fmt.Errorf("%w: malformed %s header", errUnauthorized, UserHeader))
			return
		}

		user, err := h.users.GetByID(r.Context(), id)
		// accounts created for anonymous requesters have no usable password
		// and never act as a caller
		if errors.Is(err, repository.ErrNotFound) || (err == nil && (!user.IsActive || !user.HasUsablePassword())) {
			h.respondError(w, r, fmt.Errorf("%w: %d", errUnauthorized, id))
			return
		}
		if err != nil {
			h.respondError(w, r, err)
			return
		}

		caller := user.AsCaller()
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey{}, &caller)))
	})
}

// callerFrom returns nil for anonymous requests.
func callerFrom(ctx context.Context) *models.Caller {
	caller, _ := ctx.Value(callerKey{}).(*models.Caller)
	return caller
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", services.ErrInvalidInput, chi.URLParam(r, "id"))
	}
	return id, nil
}

func invalidBody(err error) error {
	return fmt.Errorf("%w: malformed body: %v", services.ErrInvalidInput, err)
}
