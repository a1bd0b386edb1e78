package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/char5742/fbtouch/internal/config"
)

// Server はAPIサーバーを表す構造体
type Server struct {
	server  *http.Server
	cfg     *config.Config
	service *TouchService
	port    int
	log     logrus.FieldLogger
}

// NewServer は新しいAPIサーバーを作成する
func NewServer(cfg *config.Config, service *TouchService, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		cfg:     cfg,
		service: service,
		port:    cfg.API.Port,
		log:     log,
	}
}

// Handler はルーティング済みのハンドラを返す
func (s *Server) Handler() http.Handler {
	router := http.NewServeMux()
	s.setupRoutes(router)
	return router
}

// Addr はサーバーの待ち受けアドレスを返す
func (s *Server) Addr() string {
	return fmt.Sprintf(":%d", s.port)
}

// Start はAPIサーバーを開始する
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    s.Addr(),
		Handler: s.Handler(),
	}

	s.log.WithField("addr", s.Addr()).Info("APIサーバーを開始します")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop はAPIサーバーを停止する
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.log.Info("APIサーバーを停止します...")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetConfig は現在の設定を返す
func (s *Server) GetConfig() *config.Config {
	return s.cfg
}

// writeJSON はJSONレスポンスを書き込む
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.log.WithError(err).Error("JSONエンコードエラー")
		}
	}
}

// writeError はエラーレスポンスを書き込む
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
