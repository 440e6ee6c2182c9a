package handlers

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"
)

// Envelope единый формат ответа всех эндпоинтов: клиенту достаточно одной схемы.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(w, status, Envelope{Success: true, Data: data, Message: message})
}

func respondError(w http.ResponseWriter, status int, data any, message string) {
	writeEnvelope(w, status, Envelope{Success: false, Data: data, Message: message})
}

func writeEnvelope(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func requestLog(r *http.Request) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})
}

// NotFound отвечает конвертом на неизвестные маршруты.
func NotFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, nil, "Route not found")
}

// MethodNotAllowed отвечает конвертом на неподдерживаемые методы, в том числе PUT/PATCH /item/{id}.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, nil, "Method not allowed")
}

// Recoverer перехватывает панику обработчика и отвечает конвертом 500.
// http.ErrAbortHandler пробрасывается дальше, чтобы net/http оборвал соединение.
func Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil {
				return
			}
			if rvr == http.ErrAbortHandler {
				panic(rvr)
			}
			requestLog(r).
				WithField("panic", rvr).
				WithField("stack", string(debug.Stack())).
				Error("handler panicked")
			respondError(w, http.StatusInternalServerError, nil, "Internal server error")
		}()

		next.ServeHTTP(w, r)
	})
}
