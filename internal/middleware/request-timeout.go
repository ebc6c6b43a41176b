package middleware

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeoutMiddleware ограничивает время обработки запроса дедлайном контекста.
//
// Хендлер не прерывается принудительно: дедлайн видят только те, кто читает ctx.
// Репозиторий передаёт ctx в gorm (WithContext), поэтому запрос к базе
// обрывается, а хендлер отвечает 408.
// d <= 0 отключает таймаут.
func RequestTimeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
