// Package httpapi exposes the chat service over HTTP. Clients poll
// GET /api/messages with a millisecond watermark; everything else is plain
// request/response JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/tdnguyen/roomchat/internal/logging"
	"github.com/tdnguyen/roomchat/internal/server/config"
	"github.com/tdnguyen/roomchat/internal/server/services"
)

type HTTPServer struct {
	address   string
	logger    logging.Logger
	users     *services.UserService
	messages  *services.MessageService
	files     *services.FileService
	delta     *services.DeltaService
	retention *services.RetentionService
	jwtSecret []byte
	limiter   *limiterPool
}

func NewHTTPServer(cfg *config.Config, l logging.Logger,
	us *services.UserService, ms *services.MessageService, fs *services.FileService,
	ds *services.DeltaService, rs *services.RetentionService) *HTTPServer {
	return &HTTPServer{
		address:   cfg.EndpointAddr,
		logger:    l.With("module", "http_server"),
		users:     us,
		messages:  ms,
		files:     fs,
		delta:     ds,
		retention: rs,
		jwtSecret: []byte(cfg.SecretKey),
		limiter:   newLimiterPool(),
	}
}

func (s *HTTPServer) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.rateLimitMiddleware)

	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.authMiddleware)

	api.HandleFunc("/messages", s.handleDelta).Methods(http.MethodGet)
	api.HandleFunc("/messages/all", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/messages", s.handlePostMessage).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id:[0-9]+}", s.handleEditMessage).Methods(http.MethodPut)
	api.HandleFunc("/messages/{id:[0-9]+}", s.handleDeleteMessage).Methods(http.MethodDelete)
	api.HandleFunc("/messages/{id:[0-9]+}/reactions", s.handleToggleReaction).Methods(http.MethodPost)

	api.HandleFunc("/files", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/files/{id:[0-9]+}", s.handleDeleteFile).Methods(http.MethodDelete)

	api.HandleFunc("/admin/users", s.handleListUsers).Methods(http.MethodGet)
	api.HandleFunc("/admin/users", s.handleCreateUser).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id:[0-9]+}", s.handleUpdateUser).Methods(http.MethodPost)
	api.HandleFunc("/admin/users/{id:[0-9]+}", s.handleDeleteUser).Methods(http.MethodDelete)

	uploads := r.PathPrefix("/uploads").Subrouter()
	uploads.Use(s.authMiddleware)
	uploads.HandleFunc("/{name}", s.handleServeBlob).Methods(http.MethodGet)

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is
// cancelled.
func (s *HTTPServer) Run(ctx context.Context) error {

	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "Shutdown error", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
