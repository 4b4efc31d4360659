package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"uof-sdk/pkg/common"
	"uof-sdk/pkg/ingestion"
	"uof-sdk/pkg/producer"
)

// FeedStatus Feed 状态查询
type FeedStatus interface {
	Sessions() []ingestion.SessionStatus
	Producers() []producer.Producer
}

// Recoverer 手动触发恢复
type Recoverer interface {
	RequestRecovery(ctx context.Context, producerID int, after time.Time) (int64, error)
	RequestEventRecovery(ctx context.Context, producerID int, eventID string) error
	Pending() int
}

type Server struct {
	logger     common.Logger
	port       string
	feed       FeedStatus
	recovery   Recoverer
	wsHub      *Hub
	httpServer *http.Server
	upgrader   websocket.Upgrader
	now        func() time.Time
}

// NewServer recovery 可为 nil，此时恢复接口返回 503
func NewServer(logger common.Logger, port string, feed FeedStatus, recovery Recoverer, hub *Hub) *Server {
	s := &Server{
		logger:   logger,
		port:     port,
		feed:     feed,
		recovery: recovery,
		wsHub:    hub,
		now:      time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	s.httpServer = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler 路由
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()

	// API路由
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/sessions", s.handleSessions).Methods("GET")
	api.HandleFunc("/producers", s.handleProducers).Methods("GET")
	api.HandleFunc("/producers/{id:[0-9]+}/recovery", s.handleRecovery).Methods("POST")
	api.HandleFunc("/producers/{id:[0-9]+}/events/{event_id}/recovery", s.handleEventRecovery).Methods("POST")

	router.Handle("/metrics", promhttp.Handler())

	// WebSocket路由
	if s.wsHub != nil {
		router.HandleFunc("/ws", s.handleWebSocket)
	}

	// CORS配置
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

func (s *Server) Start() error {
	s.logger.Info("[Web] Listening on :%s", s.port)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) {
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("[Web] Server shutdown error: %v", err)
	}
}

// handleHealth 所有会话已打开且至少一个生产者可用时返回 200
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	sessions := s.feed.Sessions()
	opened := 0
	for _, st := range sessions {
		if st.Opened {
			opened++
		}
	}
	available := 0
	for _, p := range s.feed.Producers() {
		if p.IsAvailable && !p.IsDisabled {
			available++
		}
	}

	status, code := "ok", http.StatusOK
	if len(sessions) == 0 || opened < len(sessions) || available == 0 {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status":              status,
		"sessions":            len(sessions),
		"sessions_opened":     opened,
		"producers_available": available,
		"time":                s.now().Unix(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": s.feed.Sessions(),
	})
}

func (s *Server) handleProducers(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"producers": s.feed.Producers(),
	}
	if s.recovery != nil {
		resp["pending_recoveries"] = s.recovery.Pending()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecovery 可选参数 after (RFC3339)
func (s *Server) handleRecovery(w http.ResponseWriter, r *http.Request) {
	if s.recovery == nil {
		writeError(w, http.StatusServiceUnavailable, "recovery is disabled")
		return
	}
	id, _ := strconv.Atoi(mux.Vars(r)["id"])

	var after time.Time
	if v := r.URL.Query().Get("after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after: "+err.Error())
			return
		}
		after = t
	}

	requestID, err := s.recovery.RequestRecovery(r.Context(), id, after)
	if err != nil {
		s.logger.Warn("[Web] Recovery for producer %d failed: %v", id, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"producer":   id,
		"request_id": requestID,
	})
}

func (s *Server) handleEventRecovery(w http.ResponseWriter, r *http.Request) {
	if s.recovery == nil {
		writeError(w, http.StatusServiceUnavailable, "recovery is disabled")
		return
	}
	vars := mux.Vars(r)
	id, _ := strconv.Atoi(vars["id"])
	eventID := vars["event_id"]

	if err := s.recovery.RequestEventRecovery(r.Context(), id, eventID); err != nil {
		s.logger.Warn("[Web] Event recovery for %s failed: %v", eventID, err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"producer": id,
		"event_id": eventID,
	})
}

// handleWebSocket WebSocket连接处理
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("[Web] WebSocket upgrade error: %v", err)
		return
	}
	s.wsHub.serve(conn)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
