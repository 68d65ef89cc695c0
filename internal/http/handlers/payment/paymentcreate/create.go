// Package paymentcreate реализует HTTP-обработчик создания платежа на
// пополнение баланса. Обработчик декодирует и валидирует запрос, создаёт
// платёж у провайдера и возвращает ссылку на оплату.
package paymentcreate

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/proxy-manager/internal/http/response"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/services/topup"
	"github.com/magabrotheeeer/proxy-manager/internal/storage/repository"
)

// Request — структура входных данных для создания платежа.
type Request struct {
	UserID int64  `json:"user_id" validate:"required"`
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Email  string `json:"email" validate:"omitempty,email"`
}

// Service описывает интерфейс создания пополнения.
type Service interface {
	Create(ctx context.Context, userID, amount int64, email, ip string) (*topup.Result, error)
}

// Handler обрабатывает HTTP-запросы на создание платежа.
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

// ServeHTTP создаёт платёж и возвращает ссылку на оплату.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paymentcreate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
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

	result, err := h.service.Create(r.Context(), req.UserID, req.Amount, req.Email, clientIP(r))
	if err != nil {
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
			log.Error("failed to create payment", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to create payment"))
		}
		return
	}

	log.Info("payment created",
		slog.Int64("payment_id", result.PaymentID),
		slog.Int64("user_id", req.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"payment_id":   result.PaymentID,
		"payment_link": result.PaymentLink,
	}))
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
