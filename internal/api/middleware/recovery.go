package middleware

import (
	"net/http"
	"runtime/debug"

	"gridbot/pkg/utils"
)

// Recovery перехватывает panic в handlers и возвращает 500
//
// Сервер продолжает обслуживать остальные запросы, stack trace
// уходит в лог для разбора.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				utils.Error("panic in http handler",
					utils.String("path", r.URL.Path),
					utils.Any("panic", err),
					utils.String("stack", string(debug.Stack())),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
