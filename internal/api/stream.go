package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/radflow-triage-server/internal/domain"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// Stream message types.
const (
	StreamSnapshot = "snapshot"
	StreamUpdate   = "update"
)

// StreamMessage is one worklist frame on the change stream.
type StreamMessage struct {
	Type    string                `json:"type"`
	Studies []domain.PatientStudy `json:"studies"`
	Stats   domain.StudyStats     `json:"stats"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleStudyStream pushes the full worklist on connect and after every
// mutation. Clients only read; anything they send is discarded.
func (s *Server) handleStudyStream(c *gin.Context) {
	// Subscribe before taking the snapshot so no mutation falls in between.
	updates, unsubscribe := s.store.Subscribe()
	defer unsubscribe()

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to upgrade study stream")
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(streamPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeFrame(conn, StreamSnapshot, s.store.Snapshot()); err != nil {
		return
	}

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case studies, ok := <-updates:
			if !ok {
				return
			}
			if err := writeFrame(conn, StreamUpdate, studies); err != nil {
				s.logger.WithError(err).Debug("Study stream write failed")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frameType string, studies []domain.PatientStudy) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(StreamMessage{
		Type:    frameType,
		Studies: studies,
		Stats:   domain.ComputeStats(studies),
	})
}
