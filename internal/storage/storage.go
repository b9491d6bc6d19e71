// Package storage persists chat settings, conversations and file
// attachments. Several drivers implement the same Store interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// Icon is an image shown next to a chat settings entry.
type Icon struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

// ChatSettings is a saved assistant preset.
type ChatSettings struct {
	ID               int64     `json:"id"`
	Author           string    `json:"author"`
	Icon             *Icon     `json:"icon"`
	Name             string    `json:"name"`
	Description      string    `json:"description"`
	Instructions     string    `json:"instructions"`
	Model            string    `json:"model"`
	Seed             *int      `json:"seed"`
	Temperature      *float64  `json:"temperature"`
	TopP             *float64  `json:"top_p"`
	FrequencyPenalty *float64  `json:"frequency_penalty"`
	PresencePenalty  *float64  `json:"presence_penalty"`
	Stream           bool      `json:"stream"`
	ShowInSidebar    bool      `json:"showInSidebar"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// FileData is an attachment payload, usually a base64 data URL.
type FileData struct {
	ID        int64     `json:"id,omitempty"`
	Data      string    `json:"data"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	Filename  string    `json:"filename,omitempty"`
	Size      int64     `json:"size,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// FileDataRef links a message to stored file data. FileData is filled in
// when the payload has been resolved.
type FileDataRef struct {
	ID       int64     `json:"id,omitempty"`
	FileData *FileData `json:"fileData,omitempty"`
}

// Message is one entry of a conversation transcript.
type Message struct {
	ID          string        `json:"id,omitempty"`
	Role        string        `json:"role"`
	MessageType string        `json:"messageType,omitempty"`
	Content     string        `json:"content"`
	Name        string        `json:"name,omitempty"`
	FileDataRef []FileDataRef `json:"fileDataRef,omitempty"`
}

// Conversation is a persisted transcript.
type Conversation struct {
	ID           int64     `json:"id"`
	GID          int64     `json:"gid"`
	Timestamp    int64     `json:"timestamp"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"systemPrompt"`
	Messages     []Message `json:"messages"`
	Marker       bool      `json:"marker"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ConversationPatch holds the fields of a partial conversation update.
// Nil fields are left unchanged.
type ConversationPatch struct {
	GID          *int64     `json:"gid,omitempty"`
	Timestamp    *int64     `json:"timestamp,omitempty"`
	Title        *string    `json:"title,omitempty"`
	Model        *string    `json:"model,omitempty"`
	SystemPrompt *string    `json:"systemPrompt,omitempty"`
	Messages     *[]Message `json:"messages,omitempty"`
	Marker       *bool      `json:"marker,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ConversationPatch) IsEmpty() bool {
	return p.GID == nil && p.Timestamp == nil && p.Title == nil && p.Model == nil &&
		p.SystemPrompt == nil && p.Messages == nil && p.Marker == nil
}

// FileDataPatch holds the fields of a partial file data update.
type FileDataPatch struct {
	Data     *string `json:"data,omitempty"`
	Type     *string `json:"type,omitempty"`
	Source   *string `json:"source,omitempty"`
	Filename *string `json:"filename,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p FileDataPatch) IsEmpty() bool {
	return p.Data == nil && p.Type == nil && p.Source == nil && p.Filename == nil
}

// FileStats summarizes stored attachments.
type FileStats struct {
	TotalFiles int64      `json:"total_files"`
	TotalSize  int64      `json:"total_size"`
	AvgSize    float64    `json:"avg_size"`
	OldestFile *time.Time `json:"oldest_file"`
	NewestFile *time.Time `json:"newest_file"`
}

// DefaultRecentLimit is the number of conversations returned by
// RecentConversations when no limit is given.
const DefaultRecentLimit = 200

// ChatSettingsStore persists chat settings.
type ChatSettingsStore interface {
	ListChatSettings(ctx context.Context) ([]ChatSettings, error)
	GetChatSettings(ctx context.Context, id int64) (*ChatSettings, error)
	AddChatSettings(ctx context.Context, s *ChatSettings) (int64, error)
	UpdateChatSettings(ctx context.Context, id int64, s *ChatSettings) error
	SetShowInSidebar(ctx context.Context, id int64, show bool) error
	DeleteChatSettings(ctx context.Context, id int64) error
}

// ConversationStore persists conversations. Deleting a conversation also
// deletes the file data its messages reference.
type ConversationStore interface {
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	SearchConversationTitles(ctx context.Context, query string) ([]Conversation, error)
	SearchConversationMessages(ctx context.Context, query string) ([]Conversation, error)
	// RecentConversations returns conversations newest first, without messages.
	RecentConversations(ctx context.Context, limit int) ([]Conversation, error)
	CountConversations(ctx context.Context, gid int64) (int64, error)
	AddConversation(ctx context.Context, c *Conversation) (int64, error)
	UpdateConversation(ctx context.Context, id int64, c *Conversation) error
	PatchConversation(ctx context.Context, id int64, p ConversationPatch) error
	DeleteConversation(ctx context.Context, id int64) error
	DeleteAllConversations(ctx context.Context) error
	DeleteConversationsByGID(ctx context.Context, gid int64) (int64, error)
}

// FileStore persists attachment payloads.
type FileStore interface {
	GetFileData(ctx context.Context, id int64) (*FileData, error)
	AddFileData(ctx context.Context, f *FileData) (int64, error)
	UpdateFileData(ctx context.Context, id int64, f *FileData) error
	PatchFileData(ctx context.Context, id int64, p FileDataPatch) error
	DeleteFileData(ctx context.Context, id int64) error
	DeleteAllFileData(ctx context.Context) (int64, error)
	FileDataStats(ctx context.Context) (*FileStats, error)
}

// Store combines all persistence operations.
type Store interface {
	ChatSettingsStore
	ConversationStore
	FileStore
	Close() error
}

// Drivers accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
	DriverRemote   = "remote"
)

// Options selects and configures a storage driver.
type Options struct {
	Driver string
	// DSN is a file path for sqlite or a connection string for postgres.
	DSN string
	// BackendURL is the REST backend root for the remote driver.
	BackendURL string
	HTTPClient *http.Client
}

// Open creates the store selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(ctx, opts.DSN)
	case DriverPostgres:
		return OpenPostgres(ctx, opts.DSN)
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverRemote:
		return NewRemoteStore(opts.BackendURL, opts.HTTPClient)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", opts.Driver)
	}
}

// EstimateSize approximates the decoded size of a base64 payload.
func EstimateSize(data string) int64 {
	return int64(len(data)) * 3 / 4
}

// EmptyPatchError is returned by patch operations that change nothing.
type EmptyPatchError struct{}

func (e *EmptyPatchError) Error() string { return "No valid fields to update" }

// withoutPayloads drops resolved file payloads from references that point
// at stored file data, so transcripts do not duplicate attachments.
func withoutPayloads(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m
		if len(m.FileDataRef) == 0 {
			continue
		}
		refs := make([]FileDataRef, len(m.FileDataRef))
		for j, ref := range m.FileDataRef {
			if ref.ID != 0 {
				ref.FileData = nil
			}
			refs[j] = ref
		}
		out[i].FileDataRef = refs
	}
	return out
}

// referencedFileIDs returns the file data ids referenced by messages.
func referencedFileIDs(msgs []Message) []int64 {
	var ids []int64
	for _, m := range msgs {
		for _, ref := range m.FileDataRef {
			if ref.ID != 0 {
				ids = append(ids, ref.ID)
			}
		}
	}
	return ids
}
