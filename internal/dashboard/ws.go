package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"github.com/ishaan812/gitinsight/internal/session"
)

const writeTimeout = 10 * time.Second

// Frame types sent over the chat socket.
const (
	FrameSession  = "session"
	FrameResponse = "response"
	FrameDone     = "done"
	FrameError    = "error"
)

// Request is a chat query sent by the client.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"sessionId,omitempty"`
}

// Frame is one server message on the chat socket.
type Frame struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	Text      string `json:"text,omitempty"`
	Error     string `json:"error,omitempty"`
}

func send(ctx context.Context, conn *websocket.Conn, f Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, f)
}

// chatSocket serves the streaming chat channel. Queries on one connection
// are answered in order; a connection without a session id is given one.
func (h *handler) chatSocket(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := c.Request.Context()
	h.log.Debug("chat client connected", "remote", c.Request.RemoteAddr)

	var sessionID string
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == -1 && !errors.Is(err, context.Canceled) {
				h.log.Debug("chat socket read ended", "error", err)
			}
			return
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			if send(ctx, conn, Frame{Type: FrameError, Error: "Malformed request."}) != nil {
				return
			}
			continue
		}

		if req.SessionID != "" {
			if session.ValidateID(req.SessionID) != nil {
				if send(ctx, conn, Frame{Type: FrameError, Error: "Invalid session id."}) != nil {
					return
				}
				continue
			}
			sessionID = req.SessionID
		} else if sessionID == "" {
			sessionID = session.NewID()
			if send(ctx, conn, Frame{Type: FrameSession, SessionID: sessionID}) != nil {
				return
			}
		}

		if req.Query == "" {
			if send(ctx, conn, Frame{Type: FrameError, Error: "Query is empty."}) != nil {
				return
			}
			continue
		}

		if err := h.answer(ctx, conn, sessionID, req.Query); err != nil {
			return
		}
	}
}

// answer streams one reply. It returns an error only when the socket is
// no longer writable.
func (h *handler) answer(ctx context.Context, conn *websocket.Conn, sessionID, query string) error {
	if h.cfg.Agent == nil {
		return send(ctx, conn, Frame{Type: FrameError, Error: "Chat is not available."})
	}

	var writeErr error
	_, err := h.cfg.Agent.Answer(ctx, sessionID, query, func(fragment string) error {
		if fragment == "" {
			return nil
		}
		writeErr = send(ctx, conn, Frame{Type: FrameResponse, Text: fragment})
		return writeErr
	})
	if writeErr != nil {
		return writeErr
	}
	if err != nil {
		h.log.Error("chat answer failed", "session", sessionID, "error", err)
		return send(ctx, conn, Frame{Type: FrameError, Error: "Internal error"})
	}
	return send(ctx, conn, Frame{Type: FrameDone})
}
