package hub

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ai-agents/internal/utils"
)

// SessionManager handles session persistence and retrieval.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	dataDir  string
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*Session)}
}

func (sm *SessionManager) SetDataDir(dir string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.dataDir = filepath.Join(dir, "sessions")
}

// Load reads every session file from the sessions directory. Unreadable
// or invalid files are skipped.
func (sm *SessionManager) Load() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.dataDir == "" {
		return nil
	}
	if err := os.MkdirAll(sm.dataDir, 0o755); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}
	entries, err := os.ReadDir(sm.dataDir)
	if err != nil {
		return fmt.Errorf("read sessions directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(sm.dataDir, entry.Name()))
		if err != nil {
			continue
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sm.sessions[session.ID] = &session
	}
	return nil
}

func (sm *SessionManager) Create() (*Session, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now().UTC()
	session := &Session{
		ID:        uuid.NewString(),
		ContextID: utils.NewID("ctx"),
		CreatedAt: now,
		UpdatedAt: now,
		Entries:   []SessionEntry{},
	}
	sm.sessions[session.ID] = session
	if err := sm.persistSession(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// List returns all sessions sorted by UpdatedAt descending.
func (sm *SessionManager) List() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions
}

func (sm *SessionManager) AddEntry(sessionID string, entry SessionEntry) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, ok := sm.sessions[sessionID]
	if !ok {
		return fmt.Errorf("session not found: %s", sessionID)
	}
	session.Entries = append(session.Entries, entry)
	session.UpdatedAt = time.Now().UTC()
	return sm.persistSession(session)
}

func (sm *SessionManager) Delete(id string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, ok := sm.sessions[id]; !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	delete(sm.sessions, id)
	if sm.dataDir != "" {
		os.Remove(filepath.Join(sm.dataDir, id+".json"))
	}
	return nil
}

func (sm *SessionManager) persistSession(session *Session) error {
	if sm.dataDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	path := filepath.Join(sm.dataDir, session.ID+".json")
	return utils.WriteFileAtomic(path, data, 0o644)
}
