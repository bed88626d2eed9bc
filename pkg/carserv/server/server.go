package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/nekruzvatanshoev/carstore/pkg/carserv/inventory"
)

// Options configures the HTTP server
type Options struct {
	Addr          string
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
	IdleTimeout   time.Duration
	AllowedOrigin string
	Logger        *slog.Logger
}

// NewHTTPServer returns a new HTTP server
func NewHTTPServer(cars *inventory.Service, opts Options) *http.Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	server := newHTTPServer(cars, opts.Logger, opts.AllowedOrigin)
	return &http.Server{
		Addr:         opts.Addr,
		Handler:      server.router(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		IdleTimeout:  opts.IdleTimeout,
		ErrorLog:     slog.NewLogLogger(opts.Logger.Handler(), slog.LevelError),
	}
}

type httpServer struct {
	log           *slog.Logger
	cars          *inventory.Service
	allowedOrigin string
}

func newHTTPServer(cars *inventory.Service, log *slog.Logger, allowedOrigin string) *httpServer {
	return &httpServer{
		log:           log,
		cars:          cars,
		allowedOrigin: allowedOrigin,
	}
}

func (h *httpServer) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/api", h.ListCars).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/cars", h.CreateCar).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/cars/{make}", h.SearchCars).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/cars/{id}", h.DeleteCar).Methods(http.MethodDelete, http.MethodOptions)
	// the compound pattern has to be registered before the plain {id} update
	r.HandleFunc("/cars/{id:[^&/]+}&{make:[^&/]+}&{model:[^&/]+}&{seats:[^&/]+}", h.UpdateCarFromPath).Methods(http.MethodPut, http.MethodOptions)
	r.HandleFunc("/cars/{id}", h.UpdateCar).Methods(http.MethodPut, http.MethodOptions)

	r.Use(h.requestID, h.logRequests, h.securityHeaders, mux.CORSMethodMiddleware(r), h.cors)
	// route middleware does not run for unmatched requests
	r.NotFoundHandler = h.securityHeaders(http.NotFoundHandler())
	r.MethodNotAllowedHandler = h.securityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	return r
}
