// Package middleware содержит HTTP‑middleware: функции-обёртки над http.Handler,
// которые добавляют общий функционал (логирование, авторизация, заголовки)
// вокруг основного обработчика без изменения его кода.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// statusWriter запоминает код ответа, чтобы его можно было залогировать.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware измеряет время обработки запроса и пишет запись в лог
// после того, как основной обработчик завершил работу.
//
// Важно: логирование идёт "после" next.ServeHTTP, поэтому в duration входит
// вся обработка запроса обработчиком и другими middleware внутри цепочки.
func LoggingMiddleware(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now() // фиксируем момент начала обработки
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(sw, r) // передаём управление следующему обработчику

			log.Info("http_access",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("query", r.URL.RawQuery),
				zap.Int("status", sw.status),
				zap.Duration("dur", time.Since(start)),
				zap.String("request_id", RequestIDFromContext(r.Context())),
			)
		})
	}
}

// Credentials - логин и пароль для Basic Auth.
type Credentials struct {
	Username string
	Password string
}

// BasicAuthMiddleware защищает эндпоинт HTTP Basic Auth.
//
// r.BasicAuth() парсит заголовок Authorization и возвращает (username, password, ok).
// Если аутентификация не пройдена, middleware:
// 1) выставляет WWW-Authenticate (чтобы браузер/клиент понял, что нужен логин/пароль)
// 2) возвращает 401 Unauthorized и НЕ вызывает next.
func BasicAuthMiddleware(creds Credentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name, pass, ok := r.BasicAuth()
			if !ok || !equal(name, creds.Username) || !equal(pass, creds.Password) {
				// realm - "зона" аутентификации, отображается клиентам (например, в браузере).
				w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized) // 401
				return
			}
			next.ServeHTTP(w, r) // доступ разрешён - продолжаем цепочку
		})
	}
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// JSONHeaderMiddleware проставляет заголовок Content-Type для JSON‑ответов.
//
// Это удобно, когда обработчики всегда возвращают JSON.
// Важно: заголовки нужно выставлять ДО записи тела ответа (до w.Write / Encode).
func JSONHeaderMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r) // дальше обработчик пишет JSON-тело
	})
}
