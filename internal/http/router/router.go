// Package router assembles the HTTP handler: routes, middleware and the
// CORS policy.
package router

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/aanand-mishra/students-api/internal/http/handlers/student"
	"github.com/aanand-mishra/students-api/internal/storage"
	"github.com/aanand-mishra/students-api/internal/utils/response"
)

// New returns the application handler serving every route over storage.
//
// Route table:
//
//	GET    /                 index message
//	GET    /students/        list students (sort_by, order)
//	GET    /students/{id}    get one student
//	POST   /students         create a student
//	PATCH  /students/{id}    partially update a student
//	DELETE /students/{id}    delete a student
//
// Trailing slashes are stripped, so /students and /students/ are the same.
func New(storage storage.Storage, cfg config.CORS) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(recoverer)
	r.Use(middleware.StripSlashes)

	// Set before the routes so the /students subrouter inherits them.
	r.NotFound(notFound)
	r.MethodNotAllowed(methodNotAllowed)

	r.Get("/", student.Index())
	r.Route("/students", func(r chi.Router) {
		r.Get("/", student.GetList(storage))
		r.Post("/", student.New(storage))
		r.Get("/{id}", student.GetByID(storage))
		r.Patch("/{id}", student.Update(storage))
		r.Delete("/{id}", student.Delete(storage))
	})

	return cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(r)
}

// requestLogger logs one line per request once the response is written.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		defer func() {
			slog.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// recoverer turns a handler panic into a 500 in the error envelope.
// http.ErrAbortHandler is re-raised so net/http can abort the connection.
func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			slog.Error("panic serving request",
				slog.Any("panic", rec),
				slog.String("path", r.URL.Path),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("stack", string(debug.Stack())),
			)
			response.WriteJSON(w, http.StatusInternalServerError, response.Detail("something went wrong"))
		}()

		next.ServeHTTP(w, r)
	})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusNotFound, response.Detail("Not Found"))
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	response.WriteJSON(w, http.StatusMethodNotAllowed, response.Detail("Method Not Allowed"))
}
