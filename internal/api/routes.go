package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/char5742/fbtouch/internal/features"
)

// TouchRequest はリモート画面から届くタッチ操作
type TouchRequest struct {
	Action string `json:"action"`
	X      int    `json:"x"`
	Y      int    `json:"y"`

	// フレームバッファの情報（任意）
	Xres   int `json:"xres,omitempty"`
	Yres   int `json:"yres,omitempty"`
	Rotate int `json:"rotate,omitempty"`
}

func (r TouchRequest) screenInfo() *features.ScreenInfo {
	if r.Xres == 0 && r.Yres == 0 {
		return nil
	}
	return &features.ScreenInfo{Xres: r.Xres, Yres: r.Yres, Rotate: r.Rotate}
}

// ルートの設定
func (s *Server) setupRoutes(router *http.ServeMux) {
	// 設定・デバイス関連のエンドポイント
	router.HandleFunc("GET /api/config", s.handleGetConfig)
	router.HandleFunc("GET /api/devices", s.handleGetDevices)

	// タッチ注入
	router.HandleFunc("GET /api/status", s.handleStatus)
	router.HandleFunc("POST /api/touch", s.handleTouch)
	router.HandleFunc("GET /ws/touch", s.handleTouchStream)

	// サービス関連のエンドポイント
	router.HandleFunc("POST /api/service/start", s.handleStartService)
	router.HandleFunc("POST /api/service/stop", s.handleStopService)
	router.HandleFunc("GET /api/service/status", s.handleServiceStatus)

	// ヘルスチェック用エンドポイント
	router.HandleFunc("GET /api/health", s.handleHealthCheck)
}

// 設定取得ハンドラ
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.GetConfig())
}

// デバイス一覧取得ハンドラ
func (s *Server) handleGetDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.service.scan()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "デバイス一覧の取得に失敗しました: "+err.Error())
		return
	}
	if devices == nil {
		devices = []features.Device{}
	}
	s.writeJSON(w, http.StatusOK, devices)
}

// 状態取得ハンドラ
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

// タッチ注入ハンドラ
func (s *Server) handleTouch(w http.ResponseWriter, r *http.Request) {
	var req TouchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "リクエストの解析に失敗しました")
		return
	}

	if err := s.inject(req); err != nil {
		s.writeError(w, statusFor(err), err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) inject(req TouchRequest) error {
	action, err := features.ParseAction(req.Action)
	if err != nil {
		return err
	}
	return s.service.Inject(action, req.X, req.Y, req.screenInfo())
}

func statusFor(err error) int {
	if errors.Is(err, ErrNotRunning) {
		return http.StatusServiceUnavailable
	}
	return http.StatusBadRequest
}

// サービス起動ハンドラ
func (s *Server) handleStartService(w http.ResponseWriter, r *http.Request) {
	if s.service.IsRunning() {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "already_running"})
		return
	}

	if err := s.service.Start(); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの起動に失敗しました: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "started"})
}

// サービス停止ハンドラ
func (s *Server) handleStopService(w http.ResponseWriter, r *http.Request) {
	if !s.service.IsRunning() {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "not_running"})
		return
	}

	if err := s.service.Stop(); err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Sprintf("サービスの停止に失敗しました: %v", err))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// サービス状態取得ハンドラ
func (s *Server) handleServiceStatus(w http.ResponseWriter, r *http.Request) {
	status := "stopped"
	if s.service.IsRunning() {
		status = "running"
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// ヘルスチェックハンドラ
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
