package storage

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps everything in process memory. Records are copied on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu            sync.RWMutex
	settings      map[int64]ChatSettings
	conversations map[int64]Conversation
	files         map[int64]FileData
	nextSettings  int64
	nextConv      int64
	nextFile      int64
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		settings:      make(map[int64]ChatSettings),
		conversations: make(map[int64]Conversation),
		files:         make(map[int64]FileData),
	}
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }

func nextID(explicit int64, counter *int64) int64 {
	if explicit != 0 {
		if explicit > *counter {
			*counter = explicit
		}
		return explicit
	}
	*counter++
	return *counter
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return []Message{}
	}
	// Round trip through JSON for a deep copy of nested references.
	b, _ := json.Marshal(msgs)
	var out []Message
	json.Unmarshal(b, &out)
	return out
}

// ---- chat settings ----

func (m *MemoryStore) ListChatSettings(ctx context.Context) ([]ChatSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ChatSettings, 0, len(m.settings))
	for _, cs := range m.settings {
		out = append(out, cs)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) GetChatSettings(ctx context.Context, id int64) (*ChatSettings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cs, ok := m.settings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &cs, nil
}

func (m *MemoryStore) AddChatSettings(ctx context.Context, cs *ChatSettings) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *cs
	rec.ID = nextID(cs.ID, &m.nextSettings)
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.settings[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryStore) UpdateChatSettings(ctx context.Context, id int64, cs *ChatSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.settings[id]
	if !ok {
		return ErrNotFound
	}
	rec := *cs
	rec.ID = id
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	m.settings[id] = rec
	return nil
}

func (m *MemoryStore) SetShowInSidebar(ctx context.Context, id int64, show bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.settings[id]
	if !ok {
		return ErrNotFound
	}
	rec.ShowInSidebar = show
	rec.UpdatedAt = time.Now().UTC()
	m.settings[id] = rec
	return nil
}

func (m *MemoryStore) DeleteChatSettings(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.settings[id]; !ok {
		return ErrNotFound
	}
	delete(m.settings, id)
	return nil
}

// ---- conversations ----

func (m *MemoryStore) copyConversation(c Conversation) Conversation {
	c.Messages = cloneMessages(c.Messages)
	return c
}

// sortedConversations returns the conversations accepted by keep, newest first.
func (m *MemoryStore) sortedConversations(keep func(Conversation) bool) []Conversation {
	out := []Conversation{}
	for _, c := range m.conversations {
		if keep(c) {
			out = append(out, m.copyConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp == out[j].Timestamp {
			return out[i].ID > out[j].ID
		}
		return out[i].Timestamp > out[j].Timestamp
	})
	return out
}

func (m *MemoryStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	c = m.copyConversation(c)
	return &c, nil
}

func (m *MemoryStore) SearchConversationTitles(ctx context.Context, query string) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	return m.sortedConversations(func(c Conversation) bool {
		return strings.Contains(strings.ToLower(c.Title), q)
	}), nil
}

func (m *MemoryStore) SearchConversationMessages(ctx context.Context, query string) ([]Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.sortedConversations(func(c Conversation) bool {
		encoded, err := encodeMessages(c.Messages)
		return err == nil && strings.Contains(encoded, query)
	}), nil
}

func (m *MemoryStore) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := m.sortedConversations(func(Conversation) bool { return true })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Messages = []Message{}
	}
	return out, nil
}

func (m *MemoryStore) CountConversations(ctx context.Context, gid int64) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int64
	for _, c := range m.conversations {
		if c.GID == gid {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AddConversation(ctx context.Context, c *Conversation) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *c
	rec.ID = nextID(c.ID, &m.nextConv)
	rec.Messages = cloneMessages(withoutPayloads(c.Messages))
	rec.CreatedAt = time.Now().UTC()
	rec.UpdatedAt = rec.CreatedAt
	m.conversations[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryStore) UpdateConversation(ctx context.Context, id int64, c *Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	rec := *c
	rec.ID = id
	rec.Messages = cloneMessages(withoutPayloads(c.Messages))
	rec.CreatedAt = old.CreatedAt
	rec.UpdatedAt = time.Now().UTC()
	m.conversations[id] = rec
	return nil
}

func (m *MemoryStore) PatchConversation(ctx context.Context, id int64, p ConversationPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	if p.GID != nil {
		rec.GID = *p.GID
	}
	if p.Timestamp != nil {
		rec.Timestamp = *p.Timestamp
	}
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Model != nil {
		rec.Model = *p.Model
	}
	if p.SystemPrompt != nil {
		rec.SystemPrompt = *p.SystemPrompt
	}
	if p.Messages != nil {
		rec.Messages = cloneMessages(withoutPayloads(*p.Messages))
	}
	if p.Marker != nil {
		rec.Marker = *p.Marker
	}
	rec.UpdatedAt = time.Now().UTC()
	m.conversations[id] = rec
	return nil
}

func (m *MemoryStore) DeleteConversation(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.conversations[id]
	if !ok {
		return ErrNotFound
	}
	for _, fid := range referencedFileIDs(c.Messages) {
		delete(m.files, fid)
	}
	delete(m.conversations, id)
	return nil
}

func (m *MemoryStore) DeleteAllConversations(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations = make(map[int64]Conversation)
	m.files = make(map[int64]FileData)
	return nil
}

func (m *MemoryStore) DeleteConversationsByGID(ctx context.Context, gid int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, c := range m.conversations {
		if c.GID != gid {
			continue
		}
		for _, fid := range referencedFileIDs(c.Messages) {
			delete(m.files, fid)
		}
		delete(m.conversations, id)
		n++
	}
	return n, nil
}

// ---- file data ----

func (m *MemoryStore) GetFileData(ctx context.Context, id int64) (*FileData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f, ok := m.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}

func (m *MemoryStore) AddFileData(ctx context.Context, f *FileData) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := *f
	m.nextFile++
	rec.ID = m.nextFile
	rec.Size = EstimateSize(f.Data)
	rec.CreatedAt = time.Now().UTC()
	m.files[rec.ID] = rec
	return rec.ID, nil
}

func (m *MemoryStore) UpdateFileData(ctx context.Context, id int64, f *FileData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	rec := *f
	rec.ID = id
	rec.Size = EstimateSize(f.Data)
	rec.CreatedAt = old.CreatedAt
	m.files[id] = rec
	return nil
}

func (m *MemoryStore) PatchFileData(ctx context.Context, id int64, p FileDataPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.files[id]
	if !ok {
		return ErrNotFound
	}
	if p.Data != nil {
		rec.Data = *p.Data
		rec.Size = EstimateSize(*p.Data)
	}
	if p.Type != nil {
		rec.Type = *p.Type
	}
	if p.Source != nil {
		rec.Source = *p.Source
	}
	if p.Filename != nil {
		rec.Filename = *p.Filename
	}
	m.files[id] = rec
	return nil
}

func (m *MemoryStore) DeleteFileData(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.files[id]; !ok {
		return ErrNotFound
	}
	delete(m.files, id)
	return nil
}

func (m *MemoryStore) DeleteAllFileData(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := int64(len(m.files))
	m.files = make(map[int64]FileData)
	return n, nil
}

func (m *MemoryStore) FileDataStats(ctx context.Context) (*FileStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := &FileStats{TotalFiles: int64(len(m.files))}
	for _, f := range m.files {
		stats.TotalSize += f.Size
		created := f.CreatedAt
		if stats.OldestFile == nil || created.Before(*stats.OldestFile) {
			stats.OldestFile = &created
		}
		if stats.NewestFile == nil || created.After(*stats.NewestFile) {
			stats.NewestFile = &created
		}
	}
	if stats.TotalFiles > 0 {
		stats.AvgSize = float64(stats.TotalSize) / float64(stats.TotalFiles)
	}
	return stats, nil
}
