package dashboard

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ishaan812/gitinsight/internal/insight"
	"github.com/ishaan812/gitinsight/internal/logger"
	"github.com/ishaan812/gitinsight/internal/session"
)

type handler struct {
	cfg Config
	log *logger.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, errorBody{Error: msg})
}

// message is a session turn in the dashboard's chat format.
type message struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Content string `json:"content"`
}

func (h *handler) insights(c *gin.Context) {
	if h.cfg.Store == nil {
		respondError(c, http.StatusServiceUnavailable, "Insights are not available")
		return
	}
	c.JSON(http.StatusOK, insight.BuildInsights(h.cfg.Store, h.cfg.Limit))
}

func (h *handler) listSessions(c *gin.Context) {
	infos, err := h.cfg.Sessions.List()
	if err != nil {
		h.log.Error("failed to list sessions", "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to load sessions")
		return
	}
	if infos == nil {
		infos = []session.Info{}
	}
	c.JSON(http.StatusOK, infos)
}

func (h *handler) getSession(c *gin.Context) {
	id := c.Param("id")
	turns, err := h.cfg.Sessions.Load(id)
	if err != nil {
		if errors.Is(err, session.ErrInvalidID) {
			respondError(c, http.StatusBadRequest, "Invalid session id")
			return
		}
		h.log.Error("failed to load session", "session", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to load session")
		return
	}

	messages := make([]message, len(turns))
	for i, t := range turns {
		kind := "ai"
		if t.Role == session.RoleUser {
			kind = "user"
		}
		messages[i] = message{ID: fmt.Sprintf("%s-%d", id, i), Type: kind, Content: t.Text}
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *handler) deleteSession(c *gin.Context) {
	id := c.Param("id")
	err := h.cfg.Sessions.Delete(id)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, session.ErrInvalidID):
		respondError(c, http.StatusBadRequest, "Invalid session id")
	case errors.Is(err, session.ErrNotFound):
		respondError(c, http.StatusNotFound, "Session not found")
	default:
		h.log.Error("failed to delete session", "session", id, "error", err)
		respondError(c, http.StatusInternalServerError, "Failed to delete session")
	}
}
