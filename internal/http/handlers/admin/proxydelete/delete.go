// Package proxydelete реализует удаление прокси администратором.
// Удаление терминально: учётная запись отзывается на узле, запись
// помечается удалённой и навсегда выбывает из биллинга.
package proxydelete

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/proxy-manager/internal/http/middlewarectx"
	"github.com/magabrotheeeer/proxy-manager/internal/http/response"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// Request — структура входных данных для удаления прокси.
type Request struct {
	ProxyID int64 `json:"proxy_id" validate:"required"`
}

// Service описывает интерфейс удаления прокси.
type Service interface {
	Delete(ctx context.Context, proxyID int64) error
}

// Handler обрабатывает HTTP-запросы на удаление прокси.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP помечает прокси удалённым.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.proxydelete"

	admin, _ := r.Context().Value(middlewarectx.User).(string)
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("admin", admin),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	if err := h.service.Delete(r.Context(), req.ProxyID); err != nil {
		switch {
		case errors.Is(err, repository.ErrProxyNotFound):
			log.Error("unknown proxy", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("proxy not found"))
		default:
			log.Error("failed to delete proxy", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to delete proxy"))
		}
		return
	}

	log.Info("proxy deleted", slog.Int64("proxy_id", req.ProxyID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"proxy_id": req.ProxyID,
	}))
}
