package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait = 5 * time.Second
	wsReadLimit = 1 << 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// リモート画面のフロントエンドは別オリジンから接続する
	CheckOrigin: func(r *http.Request) bool { return true },
}

type touchAck struct {
	OK         bool   `json:"ok"`
	Error      string `json:"error,omitempty"`
	TrackingID int32  `json:"tracking_id"`
}

// 1メッセージに1つのTouchRequestを受け取り、順番に注入する
func (s *Server) handleTouchStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("WebSocketのアップグレードに失敗しました")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsReadLimit)

	log := s.log.WithField("remote", r.RemoteAddr)
	log.Info("タッチストリームが接続されました")

	for {
		var req TouchRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("タッチストリームの読み込みに失敗しました")
			}
			break
		}

		ack := touchAck{OK: true}
		if err := s.inject(req); err != nil {
			ack = touchAck{Error: err.Error()}
		}
		ack.TrackingID = s.service.Status().TrackingID

		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(ack); err != nil {
			log.WithError(err).Warn("応答の書き込みに失敗しました")
			break
		}
	}
	log.Info("タッチストリームが切断されました")
}
