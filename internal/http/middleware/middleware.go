// middleware — обвязка входящих запросов шлюза: паники, X-Request-Id,
// журнал, метрики, Bearer-токен, дедлайн, no-store и basic-auth для /metrics.
//
// Все мидлвары подключаются через chi.Router.Use. Статус и размер ответа
// перехватывает один recorder на запрос: его создаёт самый внешний мидлвар,
// остальные переиспользуют.
package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Middleware — мидлвар в форме, которую принимает chi.Router.Use.
type Middleware func(http.Handler) http.Handler

// recorder запоминает первый выставленный статус и число записанных байт.
type recorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

// record возвращает recorder запроса; если w уже recorder, он же и возвращается.
func record(w http.ResponseWriter) *recorder {
	if rec, ok := w.(*recorder); ok {
		return rec
	}
	return &recorder{ResponseWriter: w}
}

func (rec *recorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *recorder) Write(p []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	n, err := rec.ResponseWriter.Write(p)
	rec.bytes += n
	return n, err
}

// Unwrap нужен http.ResponseController.
func (rec *recorder) Unwrap() http.ResponseWriter { return rec.ResponseWriter }

// written — ответ уже начат, переписать статус нельзя.
func (rec *recorder) written() bool { return rec.status != 0 }

// statusCode — итоговый статус; хендлер, ничего не записавший, отдал 200.
func (rec *recorder) statusCode() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}

// routeLabel — шаблон маршрута chi; держит кардинальность меток ограниченной.
func routeLabel(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
