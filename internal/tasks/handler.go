// Handler - HTTP-слой модуля задач.
package tasks

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	appMiddleware "task-api/internal/middleware" // алиас, чтобы не путать с chi/middleware

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodyBytes - ограничение размера тела запроса.
const maxBodyBytes = 1 << 20

// Handler - HTTP слой модуля задач
//
// Здесь лежит всё, что относится к HTTP:
// роуты, разбор параметров и JSON, коды ответов, middleware.
// Состояние и бизнес-логика живут в Service: handler -> service -> repository.
type Handler struct {
	svc *Service
	log *zap.Logger
	cfg HandlerConfig
}

// HandlerConfig - настройки HTTP-слоя задач.
type HandlerConfig struct {
	// RequestTimeout - таймаут на обработку одного запроса (0 - без таймаута).
	RequestTimeout time.Duration
	// DeleteAuth, если не nil, защищает DELETE (Basic Auth).
	DeleteAuth *appMiddleware.Credentials
}

// NewHandler создаёт Handler.
func NewHandler(svc *Service, log *zap.Logger, cfg HandlerConfig) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log, cfg: cfg}
}

// Router собирает HTTP-роутер для задач.
//
// Здесь размещаем всё связывание путей с обработчиками.
// Пути принимаются и со слэшем на конце, и без него.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", h.health)

	r.Route("/tasks", func(r chi.Router) {
		// JSONHeaderMiddleware вешаем на весь tasks API,
		// чтобы убрать дублирующиеся Content-Type из хендлеров.
		r.Use(appMiddleware.JSONHeaderMiddleware)
		r.Use(appMiddleware.RequestTimeoutMiddleware(h.cfg.RequestTimeout))

		// GET / (список), POST / (создание)
		r.Get("/", h.listTasks)
		r.Post("/", h.createTask)

		for _, pattern := range []string{"/{id}", "/{id}/"} {
			r.Get(pattern, h.getTask)
			r.Put(pattern, h.updateTask)

			if h.cfg.DeleteAuth != nil {
				r.With(appMiddleware.BasicAuthMiddleware(*h.cfg.DeleteAuth)).Delete(pattern, h.deleteTask)
			} else {
				r.Delete(pattern, h.deleteTask)
			}
		}
	})
	return r
}

// listTasks обрабатывает GET /tasks/
//
// Параметры: completed, priority, search_string, page.
// Возвращает {total, next_url, prev_url, items}; ссылки несут те же фильтры.
func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, page, err := ParseListQuery(r.URL.Query())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.ListTasks(ctx, filter, page)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, TaskPage{
		Total:   res.Page.Total,
		NextURL: res.Page.NextURL(r.URL.Path, filter),
		PrevURL: res.Page.PrevURL(r.URL.Path, filter),
		Items:   res.Items,
	})
}

// createTask обрабатывает POST /tasks/
//
// Создаёт задачу и возвращает её вместе с выданным ID.
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	fields, err := DecodeFields(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	created, err := h.svc.CreateTask(ctx, fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// getTask обрабатывает GET /tasks/{id}/
func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseTaskID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	task, err := h.svc.GetTask(ctx, id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// updateTask обрабатывает PUT /tasks/{id}/
//
// Частичное обновление: меняются только поля, присутствующие в теле.
func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseTaskID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	fields, err := DecodeFields(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.svc.UpdateTask(ctx, id, fields)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// deleteTask обрабатывает DELETE /tasks/{id}/
func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := parseTaskID(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.svc.DeleteTask(ctx, id); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: msgTaskDeleted})
}

// health отвечает 200, если база доступна.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.svc.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// parseTaskID читает {id} из пути.
func parseTaskID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 0)
	if err != nil {
		return 0, &ValidationError{Errors: []FieldError{{
			Loc: []string{"path", "task_id"}, Msg: "Input should be a valid integer", Type: "int_parsing",
		}}}
	}
	return uint(id), nil
}

// writeError переводит ошибку слоя сервиса в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if h.handleContextError(w, err) {
		return
	}

	var verr *ValidationError
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: msgTaskNotFound})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, detailResponse{Detail: verr.Errors})
	case errors.As(err, &maxBytesErr):
		writeJSON(w, http.StatusRequestEntityTooLarge, detailResponse{Detail: "Request body too large"})
	case errors.Is(err, ErrMalformedBody):
		writeJSON(w, http.StatusBadRequest, detailResponse{Detail: "Invalid JSON"})
	default:
		h.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", appMiddleware.RequestIDFromContext(r.Context())),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: "Internal server error"})
	}
}

// handleContextError делает понятную обработку ошибок отмены/таймаута.
func (h *Handler) handleContextError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		// Запрос отменён: клиент ушёл ИЛИ сервер делает graceful shutdown.
		// Часто отвечать уже некому (соединение закрыто), поэтому просто прекращаем работу.
		return true
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusRequestTimeout, detailResponse{Detail: "Request timeout"}) // 408
		return true
	default:
		return false
	}
}
