package middleware

import (
	"crypto/subtle"
	"net/http"
	"os"

	"gridbot/pkg/crypto"
)

// debugUsername для защиты debug endpoints, пароль хранится bcrypt-хэшем
// в конфигурации (DEBUG_PASSWORD_HASH).
var debugUsername = os.Getenv("DEBUG_USERNAME")

// DebugAuth защищает debug/pprof endpoints базовой аутентификацией
//
// Пароль сверяется с bcrypt-хэшем из конфигурации. Без настроенного
// хэша доступ разрешен только в development окружении.
//
//	debugRoutes := router.PathPrefix("/debug").Subrouter()
//	debugRoutes.Use(middleware.DebugAuth(cfg.Security.DebugPasswordHash))
func DebugAuth(passwordHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if debugUsername == "" || passwordHash == "" {
				if env := os.Getenv("ENV"); env == "development" || env == "" {
					next.ServeHTTP(w, r)
					return
				}
				http.Error(w, "Debug endpoints disabled. Set DEBUG_USERNAME and DEBUG_PASSWORD_HASH.", http.StatusForbidden)
				return
			}

			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			// Сравнение за постоянное время против timing attacks
			userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(debugUsername)) == 1
			passMatch := crypto.CheckPasswordMatch(pass, passwordHash)

			if !userMatch || !passMatch {
				w.Header().Set("WWW-Authenticate", `Basic realm="Debug endpoints"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
