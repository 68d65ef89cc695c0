// Package proxyrotate реализует ротацию пароля прокси администратором.
package proxyrotate

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
	"github.com/magabrotheeeer/proxy-manager/internal/services/proxies"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// Request — структура входных данных для ротации пароля.
type Request struct {
	ProxyID int64 `json:"proxy_id" validate:"required"`
}

// Service описывает интерфейс ротации пароля прокси.
type Service interface {
	RotatePassword(ctx context.Context, proxyID int64) (string, error)
}

// Handler обрабатывает HTTP-запросы на ротацию пароля.
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

// ServeHTTP меняет пароль прокси и возвращает новый.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.proxyrotate"

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

	newPassword, err := h.service.RotatePassword(r.Context(), req.ProxyID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrProxyNotFound):
			log.Error("unknown proxy", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("proxy not found"))
		case errors.Is(err, proxies.ErrProxyDeleted):
			log.Error("proxy is deleted", sl.Err(err))
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, response.Error("proxy is deleted"))
		default:
			log.Error("failed to rotate password", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to rotate password"))
		}
		return
	}

	log.Info("proxy password rotated", slog.Int64("proxy_id", req.ProxyID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"proxy_id": req.ProxyID,
		"password": newPassword,
	}))
}
