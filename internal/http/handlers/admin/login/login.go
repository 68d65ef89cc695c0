// Package login реализует HTTP-обработчик аутентификации администратора.
//
// Учётные данные администратора задаются конфигурацией (имя и bcrypt-хеш
// пароля). При успешной проверке возвращается JWT для доступа к
// административному API.
package login

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/proxy-manager/internal/http/response"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/jwt"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/password"
	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
)

// Request — структура входных данных для авторизации.
type Request struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

// Handler обрабатывает HTTP-запросы на авторизацию администратора.
type Handler struct {
	log          *slog.Logger        // Логгер для записи операций и ошибок
	maker        jwt.Maker           // Генератор JWT токенов
	username     string              // Имя администратора из конфигурации
	passwordHash string              // bcrypt-хеш пароля администратора
	validate     *validator.Validate // Валидатор для проверки входных данных
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, maker jwt.Maker, username, passwordHash string) *Handler {
	return &Handler{
		log:          log,
		maker:        maker,
		username:     username,
		passwordHash: passwordHash,
		validate:     validator.New(),
	}
}

// ServeHTTP проверяет учётные данные и возвращает JWT.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.admin.login"

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

	nameMatch := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.username)) == 1
	if !nameMatch || password.CompareHash(h.passwordHash, req.Password) != nil {
		log.Error("invalid credentials", slog.String("username", req.Username))
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("invalid credentials"))
		return
	}

	token, err := h.maker.GenerateToken(req.Username, "admin")
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to generate token"))
		return
	}

	log.Info("admin logged in", slog.String("username", req.Username))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"token":    token,
		"username": req.Username,
		"role":     "admin",
	}))
}
