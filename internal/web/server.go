package web

import (
	"net/http"

	"github.com/gorilla/mux"

	"metaremote/internal/config"
	"metaremote/internal/history"
	"metaremote/internal/inference"
	"metaremote/internal/library"
	"metaremote/internal/logger"
)

// Server wires the HTTP API: library browsing, metadata read/write,
// inference, streaming, history, and the websocket activity feed.
type Server struct {
	lib    *library.Library
	engine *inference.Engine
	ledger *history.Ledger
	hub    *Hub
	config config.Config
	logger *logger.Logger
}

func NewServer(lib *library.Library, engine *inference.Engine, ledger *history.Ledger, cfg config.Config, log *logger.Logger) *Server {
	return &Server{
		lib:    lib,
		engine: engine,
		ledger: ledger,
		hub:    newHub(log),
		config: cfg,
		logger: log,
	}
}

func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/tree/", s.handleTree).Methods(http.MethodGet)
	r.HandleFunc("/tree/{path:.*}", s.handleTree).Methods(http.MethodGet)
	r.HandleFunc("/files/{path:.*}", s.handleFiles).Methods(http.MethodGet)

	r.HandleFunc("/metadata/{path:.*}", s.handleReadMetadata).Methods(http.MethodGet)
	r.HandleFunc("/metadata/{path:.*}", s.handleWriteMetadata).Methods(http.MethodPost)

	r.HandleFunc("/infer/{path:.*}/{field}", s.handleInfer).Methods(http.MethodGet)

	r.HandleFunc("/stream/{path:.*}", s.handleStream).Methods(http.MethodGet)
	r.HandleFunc("/rename", s.handleRename).Methods(http.MethodPost)

	r.HandleFunc("/history", s.handleHistoryList).Methods(http.MethodGet)
	r.HandleFunc("/history/clear", s.handleHistoryClear).Methods(http.MethodPost)
	r.HandleFunc("/history/{id}", s.handleHistoryGet).Methods(http.MethodGet)
	r.HandleFunc("/history/{id}/undo", s.handleUndo).Methods(http.MethodPost)
	r.HandleFunc("/history/{id}/redo", s.handleRedo).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.handleWebSocket)

	return s.loggingMiddleware(s.securityHeaders(r))
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
