package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ishaan812/gitinsight/internal/fsutil"
	"github.com/ishaan812/gitinsight/internal/logger"
)

// DirName is the sessions directory created inside the repository's .git
// directory.
const DirName = "gitinsight_sessions"

const (
	RoleUser  = "user"
	RoleModel = "model"
)

const titleRunes = 50

var (
	ErrInvalidID = errors.New("invalid session id")
	ErrNotFound  = errors.New("session not found")
)

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Turn is one entry of a conversation.
type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// Info describes a stored session for listings.
type Info struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Manager stores one JSON file per session under dir.
type Manager struct {
	dir string
	log *logger.Logger
	mu  sync.Mutex
}

func NewManager(dir string, log *logger.Logger) *Manager {
	return &Manager{dir: dir, log: logger.OrNop(log)}
}

func (m *Manager) Dir() string {
	return m.dir
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidateID rejects ids that could escape the sessions directory.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// Load returns the turns of a session. A missing session is empty; an
// unreadable one is logged and treated as empty.
func (m *Manager) Load(id string) ([]Turn, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(id), nil
}

func (m *Manager) load(id string) []Turn {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			m.log.Warn("session unreadable, starting empty", "session", id, "error", err)
		}
		return nil
	}
	var turns []Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		m.log.Warn("session malformed, starting empty", "session", id, "error", err)
		return nil
	}
	return turns
}

// Exists reports whether a session file is present.
func (m *Manager) Exists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	_, err := os.Stat(m.path(id))
	return err == nil
}

// Append adds turns to the end of a session, creating it if needed.
func (m *Manager) Append(id string, turns ...Turn) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.load(id), turns...)
	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := fsutil.WriteFileAtomic(m.path(id), data, 0644); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.Remove(m.path(id)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// List returns every stored session, most recently updated first.
func (m *Manager) List() ([]Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}

	var infos []Info
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		if ValidateID(id) != nil {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		turns := m.load(id)
		infos = append(infos, Info{
			ID:           id,
			Title:        Title(turns),
			MessageCount: len(turns),
			UpdatedAt:    fi.ModTime(),
		})
	}

	sort.SliceStable(infos, func(i, j int) bool {
		if infos[i].UpdatedAt.Equal(infos[j].UpdatedAt) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].UpdatedAt.After(infos[j].UpdatedAt)
	})
	return infos, nil
}

// Reset removes every session.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove sessions: %w", err)
	}
	return nil
}

// Title is the first user turn, cut to 50 runes.
func Title(turns []Turn) string {
	for _, t := range turns {
		if t.Role != RoleUser {
			continue
		}
		title := strings.Join(strings.Fields(t.Text), " ")
		if r := []rune(title); len(r) > titleRunes {
			return string(r[:titleRunes]) + "..."
		}
		return title
	}
	return "Untitled session"
}

// Window returns at most max trailing turns, starting at a user turn so the
// replayed conversation never opens with a model reply. max <= 0 keeps the
// whole history.
func Window(turns []Turn, max int) []Turn {
	if max > 0 && len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	for len(turns) > 0 && turns[0].Role != RoleUser {
		turns = turns[1:]
	}
	return turns
}
