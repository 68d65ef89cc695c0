// Package credit реализует административное зачисление баланса:
// доверенное пополнение в обход платёжного провайдера. После зачисления
// отключённые прокси пользователя восстанавливаются.
package credit

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
	"github.com/magabrotheeeer/proxy-manager/internal/services/topup"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// Request — структура входных данных для зачисления.
type Request struct {
	UserID int64 `json:"user_id" validate:"required"`
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// Service описывает интерфейс прямого зачисления баланса.
type Service interface {
	Credit(ctx context.Context, userID, amount int64) error
}

// Handler обрабатывает HTTP-запросы на зачисление баланса.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис пополнений
	validate *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

// ServeHTTP зачисляет сумму на баланс пользователя.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.credit"

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

	if err := h.service.Credit(r.Context(), req.UserID, req.Amount); err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			log.Error("unknown user", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		case errors.Is(err, topup.ErrBadAmount):
			log.Error("bad amount", sl.Err(err))
			render.Status(r, http.StatusUnprocessableEntity)
			render.JSON(w, r, response.Error("amount must be positive"))
		default:
			log.Error("failed to credit balance", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to credit balance"))
		}
		return
	}

	log.Info("balance credited",
		slog.Int64("user_id", req.UserID),
		slog.Int64("amount", req.Amount))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user_id": req.UserID,
		"amount":  req.Amount,
	}))
}
