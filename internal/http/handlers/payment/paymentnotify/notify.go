// Package paymentnotify реализует приём уведомлений платёжного провайдера.
//
// Провайдер шлёт form-encoded уведомление и ретраит всё, что не ответило
// 200. Тело ответа текстовое: YES при принятом, повторном или запоздавшем
// уведомлении, NO при отклонённом.
package paymentnotify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/proxy-manager/internal/lib/sl"
	"github.com/magabrotheeeer/proxy-manager/internal/services/settlement"
)

// Service описывает интерфейс зачёта платежа по уведомлению.
type Service interface {
	HandleNotification(ctx context.Context, data map[string]string) error
}

// Handler обрабатывает уведомления провайдера.
type Handler struct {
	log     *slog.Logger // Логгер для записи операций и ошибок
	service Service      // Сервис зачёта платежей
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP принимает уведомление провайдера и отвечает плоским текстом.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payment.paymentnotify"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	if err := r.ParseForm(); err != nil {
		log.Error("failed to parse form", sl.Err(err))
		writeText(w, http.StatusBadRequest, "NO")
		return
	}

	data := make(map[string]string, len(r.PostForm))
	for key, values := range r.PostForm {
		if len(values) > 0 {
			data[key] = values[0]
		}
	}

	err := h.service.HandleNotification(r.Context(), data)
	switch {
	case err == nil:
		log.Info("notification accepted")
		writeText(w, http.StatusOK, "YES")
	case errors.Is(err, settlement.ErrPaymentFinalized):
		// Запоздавшее уведомление по уже закрытому платежу применить
		// нельзя никогда: подтверждаем, чтобы провайдер перестал ретраить
		log.Warn("late notification for finalized payment", sl.Err(err))
		writeText(w, http.StatusOK, "YES")
	case errors.Is(err, settlement.ErrUnknownPayment):
		log.Error("notification for unknown payment", sl.Err(err))
		writeText(w, http.StatusNotFound, "NO")
	case errors.Is(err, settlement.ErrBadNotification),
		errors.Is(err, settlement.ErrAmountMismatch):
		log.Error("notification rejected", sl.Err(err))
		writeText(w, http.StatusBadRequest, "NO")
	default:
		log.Error("failed to process notification", sl.Err(err))
		writeText(w, http.StatusInternalServerError, "NO")
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
