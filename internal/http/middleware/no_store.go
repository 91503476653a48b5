package middleware

import "net/http"

// NoStore запрещает кэширование ответа: ответы /session/* несут токены
// и Set-Cookie.
func NoStore() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
