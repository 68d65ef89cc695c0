// Package proxycreate реализует выдачу нового прокси пользователю
// администратором. Креденшилы генерируются сервисом, ответ содержит
// ссылку на подключение.
package proxycreate

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

// Request — структура входных данных для выдачи прокси.
type Request struct {
	UserID int64 `json:"user_id" validate:"required"`
}

// Service описывает интерфейс выдачи прокси.
type Service interface {
	Create(ctx context.Context, userID int64) (*proxies.Result, error)
}

// Handler обрабатывает HTTP-запросы на выдачу прокси.
type Handler struct {
	log      *slog.Logger        // Логгер для записи операций и ошибок
	service  Service             // Сервис жизненного цикла прокси
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

// ServeHTTP выдаёт пользователю новый прокси.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.proxycreate"

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

	result, err := h.service.Create(r.Context(), req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			log.Error("unknown user", sl.Err(err))
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, response.Error("user not found"))
		default:
			log.Error("failed to provision proxy", sl.Err(err))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, response.Error("failed to provision proxy"))
		}
		return
	}

	log.Info("proxy provisioned",
		slog.Int64("proxy_id", result.ProxyID),
		slog.Int64("user_id", req.UserID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"proxy_id": result.ProxyID,
		"login":    result.Login,
		"password": result.Password,
		"ip":       result.IP,
		"port":     result.Port,
		"link":     result.Link,
	}))
}
