package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

var _ Store = (*SQLStore)(nil)

// OpenSQLite opens (and creates if needed) a SQLite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		path = filepath.Join("data", "chat.db")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)&_time_format=sqlite"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return newSQLStore(ctx, db, dialectSQLite)
}

// OpenPostgres connects to a PostgreSQL database.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("postgres DSN is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return newSQLStore(ctx, db, dialectPostgres)
}

func newSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables(ctx context.Context) error {
	schema := sqliteSchema
	if s.dialect == dialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_settings (
	id INTEGER PRIMARY KEY,
	author TEXT NOT NULL,
	icon TEXT,
	name TEXT NOT NULL,
	description TEXT,
	instructions TEXT,
	model TEXT,
	seed INTEGER,
	temperature REAL,
	top_p REAL,
	frequency_penalty REAL,
	presence_penalty REAL,
	stream INTEGER DEFAULT 1,
	show_in_sidebar INTEGER DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS conversations (
	id INTEGER PRIMARY KEY,
	gid INTEGER NOT NULL,
	timestamp INTEGER NOT NULL,
	title TEXT NOT NULL,
	model TEXT,
	system_prompt TEXT,
	messages TEXT NOT NULL,
	marker INTEGER DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS file_data (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	data TEXT,
	type TEXT NOT NULL,
	source TEXT NOT NULL,
	filename TEXT,
	size INTEGER,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_conversations_gid ON conversations(gid);
CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_chat_settings_show_in_sidebar ON chat_settings(show_in_sidebar)
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_settings (
	id BIGSERIAL PRIMARY KEY,
	author TEXT NOT NULL,
	icon TEXT,
	name TEXT NOT NULL,
	description TEXT,
	instructions TEXT,
	model TEXT,
	seed INTEGER,
	temperature DOUBLE PRECISION,
	top_p DOUBLE PRECISION,
	frequency_penalty DOUBLE PRECISION,
	presence_penalty DOUBLE PRECISION,
	stream BOOLEAN DEFAULT TRUE,
	show_in_sidebar BOOLEAN DEFAULT FALSE,
	created_at TIMESTAMPTZ DEFAULT NOW(),
	updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS conversations (
	id BIGSERIAL PRIMARY KEY,
	gid BIGINT NOT NULL,
	timestamp BIGINT NOT NULL,
	title TEXT NOT NULL,
	model TEXT,
	system_prompt TEXT,
	messages TEXT NOT NULL,
	marker BOOLEAN DEFAULT FALSE,
	created_at TIMESTAMPTZ DEFAULT NOW(),
	updated_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS file_data (
	id BIGSERIAL PRIMARY KEY,
	data TEXT,
	type TEXT NOT NULL,
	source TEXT NOT NULL,
	filename TEXT,
	size BIGINT,
	created_at TIMESTAMPTZ DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_conversations_gid ON conversations(gid);
CREATE INDEX IF NOT EXISTS idx_conversations_timestamp ON conversations(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_chat_settings_show_in_sidebar ON chat_settings(show_in_sidebar)
`

// rebind converts ? placeholders to $n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// insert runs an INSERT ... RETURNING id statement.
func (s *SQLStore) insert(ctx context.Context, query string, args ...any) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// execOne runs a statement expected to touch exactly one row.
func (s *SQLStore) execOne(ctx context.Context, query string, args ...any) error {
	n, err := s.exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// resetSequence moves a postgres id sequence past explicitly inserted ids.
func (s *SQLStore) resetSequence(ctx context.Context, table string) error {
	if s.dialect != dialectPostgres {
		return nil
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 1))", table, table))
	return err
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

// ---- chat settings ----

const chatSettingsColumns = `id, author, icon, name, description, instructions, model, seed,
	temperature, top_p, frequency_penalty, presence_penalty, stream, show_in_sidebar, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChatSettings(row rowScanner) (*ChatSettings, error) {
	var (
		cs                                   ChatSettings
		icon, description, instructions, mdl sql.NullString
		seed                                 sql.NullInt64
		temp, topP, freq, pres               sql.NullFloat64
	)
	if err := row.Scan(&cs.ID, &cs.Author, &icon, &cs.Name, &description, &instructions, &mdl, &seed,
		&temp, &topP, &freq, &pres, &cs.Stream, &cs.ShowInSidebar, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
		return nil, err
	}
	cs.Description = description.String
	cs.Instructions = instructions.String
	cs.Model = mdl.String
	cs.Seed = intPtr(seed)
	cs.Temperature = floatPtr(temp)
	cs.TopP = floatPtr(topP)
	cs.FrequencyPenalty = floatPtr(freq)
	cs.PresencePenalty = floatPtr(pres)
	if icon.Valid && icon.String != "" {
		cs.Icon = &Icon{}
		if err := json.Unmarshal([]byte(icon.String), cs.Icon); err != nil {
			return nil, fmt.Errorf("invalid icon JSON for chat settings %d: %w", cs.ID, err)
		}
	}
	return &cs, nil
}

func encodeIcon(icon *Icon) (sql.NullString, error) {
	if icon == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(icon)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

// ListChatSettings returns all chat settings, newest first.
func (s *SQLStore) ListChatSettings(ctx context.Context) ([]ChatSettings, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+chatSettingsColumns+" FROM chat_settings ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ChatSettings{}
	for rows.Next() {
		cs, err := scanChatSettings(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *cs)
	}
	return out, rows.Err()
}

// GetChatSettings returns one chat settings entry.
func (s *SQLStore) GetChatSettings(ctx context.Context, id int64) (*ChatSettings, error) {
	cs, err := scanChatSettings(s.db.QueryRowContext(ctx, s.rebind("SELECT "+chatSettingsColumns+" FROM chat_settings WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return cs, err
}

// AddChatSettings inserts cs. A zero ID lets the database assign one.
func (s *SQLStore) AddChatSettings(ctx context.Context, cs *ChatSettings) (int64, error) {
	icon, err := encodeIcon(cs.Icon)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	cols := "author, icon, name, description, instructions, model, seed, temperature, top_p, frequency_penalty, presence_penalty, stream, show_in_sidebar, created_at, updated_at"
	args := []any{cs.Author, icon, cs.Name, cs.Description, cs.Instructions, nullString(cs.Model), nullInt(cs.Seed),
		nullFloat(cs.Temperature), nullFloat(cs.TopP), nullFloat(cs.FrequencyPenalty), nullFloat(cs.PresencePenalty),
		cs.Stream, cs.ShowInSidebar, now, now}
	if cs.ID != 0 {
		cols = "id, " + cols
		args = append([]any{cs.ID}, args...)
	}
	id, err := s.insert(ctx, "INSERT INTO chat_settings ("+cols+") VALUES ("+placeholders(len(args))+")", args...)
	if err != nil {
		return 0, err
	}
	if cs.ID != 0 {
		if err := s.resetSequence(ctx, "chat_settings"); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// UpdateChatSettings replaces every field of entry id.
func (s *SQLStore) UpdateChatSettings(ctx context.Context, id int64, cs *ChatSettings) error {
	icon, err := encodeIcon(cs.Icon)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE chat_settings SET
		author = ?, icon = ?, name = ?, description = ?, instructions = ?, model = ?, seed = ?,
		temperature = ?, top_p = ?, frequency_penalty = ?, presence_penalty = ?, stream = ?,
		show_in_sidebar = ?, updated_at = ?
		WHERE id = ?`,
		cs.Author, icon, cs.Name, cs.Description, cs.Instructions, nullString(cs.Model), nullInt(cs.Seed),
		nullFloat(cs.Temperature), nullFloat(cs.TopP), nullFloat(cs.FrequencyPenalty), nullFloat(cs.PresencePenalty),
		cs.Stream, cs.ShowInSidebar, time.Now().UTC(), id)
}

// SetShowInSidebar toggles the sidebar flag of entry id.
func (s *SQLStore) SetShowInSidebar(ctx context.Context, id int64, show bool) error {
	return s.execOne(ctx, "UPDATE chat_settings SET show_in_sidebar = ?, updated_at = ? WHERE id = ?", show, time.Now().UTC(), id)
}

// DeleteChatSettings removes entry id.
func (s *SQLStore) DeleteChatSettings(ctx context.Context, id int64) error {
	return s.execOne(ctx, "DELETE FROM chat_settings WHERE id = ?", id)
}

// ---- conversations ----

const conversationColumns = "id, gid, timestamp, title, model, system_prompt, messages, marker, created_at, updated_at"

func scanConversation(row rowScanner) (*Conversation, error) {
	var (
		c                 Conversation
		mdl, systemPrompt sql.NullString
		messages          string
	)
	if err := row.Scan(&c.ID, &c.GID, &c.Timestamp, &c.Title, &mdl, &systemPrompt, &messages, &c.Marker, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Model = mdl.String
	c.SystemPrompt = systemPrompt.String
	c.Messages = []Message{}
	if messages != "" {
		if err := json.Unmarshal([]byte(messages), &c.Messages); err != nil {
			return nil, fmt.Errorf("invalid messages JSON for conversation %d: %w", c.ID, err)
		}
	}
	return &c, nil
}

func (s *SQLStore) queryConversations(ctx context.Context, query string, args ...any) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func encodeMessages(msgs []Message) (string, error) {
	if msgs == nil {
		msgs = []Message{}
	}
	b, err := json.Marshal(withoutPayloads(msgs))
	if err != nil {
		return "", fmt.Errorf("failed to encode messages: %w", err)
	}
	return string(b), nil
}

// GetConversation returns one conversation with its messages.
func (s *SQLStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx, s.rebind("SELECT "+conversationColumns+" FROM conversations WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// SearchConversationTitles matches titles case-insensitively.
func (s *SQLStore) SearchConversationTitles(ctx context.Context, query string) ([]Conversation, error) {
	return s.queryConversations(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE LOWER(title) LIKE LOWER(?) ORDER BY timestamp DESC", "%"+query+"%")
}

// SearchConversationMessages matches the serialized transcript.
func (s *SQLStore) SearchConversationMessages(ctx context.Context, query string) ([]Conversation, error) {
	return s.queryConversations(ctx, "SELECT "+conversationColumns+" FROM conversations WHERE messages LIKE ? ORDER BY timestamp DESC", "%"+query+"%")
}

// RecentConversations returns up to limit conversations without messages.
func (s *SQLStore) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	out, err := s.queryConversations(ctx, "SELECT id, gid, timestamp, title, model, system_prompt, '[]', marker, created_at, updated_at FROM conversations ORDER BY timestamp DESC LIMIT ?", limit)
	return out, err
}

// CountConversations counts the conversations of a group.
func (s *SQLStore) CountConversations(ctx context.Context, gid int64) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM conversations WHERE gid = ?"), gid).Scan(&n)
	return n, err
}

// AddConversation inserts c. A zero ID lets the database assign one.
func (s *SQLStore) AddConversation(ctx context.Context, c *Conversation) (int64, error) {
	messages, err := encodeMessages(c.Messages)
	if err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	cols := "gid, timestamp, title, model, system_prompt, messages, marker, created_at, updated_at"
	args := []any{c.GID, c.Timestamp, c.Title, nullString(c.Model), c.SystemPrompt, messages, c.Marker, now, now}
	if c.ID != 0 {
		cols = "id, " + cols
		args = append([]any{c.ID}, args...)
	}
	id, err := s.insert(ctx, "INSERT INTO conversations ("+cols+") VALUES ("+placeholders(len(args))+")", args...)
	if err != nil {
		return 0, err
	}
	if c.ID != 0 {
		if err := s.resetSequence(ctx, "conversations"); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// UpdateConversation replaces every field of conversation id.
func (s *SQLStore) UpdateConversation(ctx context.Context, id int64, c *Conversation) error {
	messages, err := encodeMessages(c.Messages)
	if err != nil {
		return err
	}
	return s.execOne(ctx, `UPDATE conversations SET
		gid = ?, timestamp = ?, title = ?, model = ?, system_prompt = ?, messages = ?, marker = ?, updated_at = ?
		WHERE id = ?`,
		c.GID, c.Timestamp, c.Title, nullString(c.Model), c.SystemPrompt, messages, c.Marker, time.Now().UTC(), id)
}

// PatchConversation updates the non-nil fields of p.
func (s *SQLStore) PatchConversation(ctx context.Context, id int64, p ConversationPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+" = ?")
		args = append(args, v)
	}
	if p.GID != nil {
		set("gid", *p.GID)
	}
	if p.Timestamp != nil {
		set("timestamp", *p.Timestamp)
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Model != nil {
		set("model", nullString(*p.Model))
	}
	if p.SystemPrompt != nil {
		set("system_prompt", *p.SystemPrompt)
	}
	if p.Messages != nil {
		messages, err := encodeMessages(*p.Messages)
		if err != nil {
			return err
		}
		set("messages", messages)
	}
	if p.Marker != nil {
		set("marker", *p.Marker)
	}
	set("updated_at", time.Now().UTC())
	args = append(args, id)
	return s.execOne(ctx, "UPDATE conversations SET "+strings.Join(fields, ", ")+" WHERE id = ?", args...)
}

// DeleteConversation removes a conversation and the file data it references.
func (s *SQLStore) DeleteConversation(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var messages string
		err := tx.QueryRowContext(ctx, s.rebind("SELECT messages FROM conversations WHERE id = ?"), id).Scan(&messages)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if err := s.deleteReferencedFiles(ctx, tx, messages); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, s.rebind("DELETE FROM conversations WHERE id = ?"), id)
		return err
	})
}

// DeleteAllConversations removes every conversation and all file data.
func (s *SQLStore) DeleteAllConversations(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM file_data")
		return err
	})
}

// DeleteConversationsByGID removes a group of conversations and their files.
func (s *SQLStore) DeleteConversationsByGID(ctx context.Context, gid int64) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, s.rebind("SELECT messages FROM conversations WHERE gid = ?"), gid)
		if err != nil {
			return err
		}
		var transcripts []string
		for rows.Next() {
			var m string
			if err := rows.Scan(&m); err != nil {
				rows.Close()
				return err
			}
			transcripts = append(transcripts, m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
		for _, m := range transcripts {
			if err := s.deleteReferencedFiles(ctx, tx, m); err != nil {
				return err
			}
		}
		res, err := tx.ExecContext(ctx, s.rebind("DELETE FROM conversations WHERE gid = ?"), gid)
		if err != nil {
			return err
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

func (s *SQLStore) deleteReferencedFiles(ctx context.Context, tx *sql.Tx, messagesJSON string) error {
	var msgs []Message
	if err := json.Unmarshal([]byte(messagesJSON), &msgs); err != nil {
		return fmt.Errorf("invalid messages JSON: %w", err)
	}
	for _, id := range referencedFileIDs(msgs) {
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM file_data WHERE id = ?"), id); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- file data ----

const fileDataColumns = "id, data, type, source, filename, size, created_at"

func scanFileData(row rowScanner) (*FileData, error) {
	var (
		f              FileData
		data, filename sql.NullString
		size           sql.NullInt64
	)
	if err := row.Scan(&f.ID, &data, &f.Type, &f.Source, &filename, &size, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.Data = data.String
	f.Filename = filename.String
	f.Size = size.Int64
	return &f, nil
}

// GetFileData returns one attachment.
func (s *SQLStore) GetFileData(ctx context.Context, id int64) (*FileData, error) {
	f, err := scanFileData(s.db.QueryRowContext(ctx, s.rebind("SELECT "+fileDataColumns+" FROM file_data WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return f, err
}

// AddFileData inserts an attachment and returns its id.
func (s *SQLStore) AddFileData(ctx context.Context, f *FileData) (int64, error) {
	return s.insert(ctx, "INSERT INTO file_data (data, type, source, filename, size, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		f.Data, f.Type, f.Source, nullString(f.Filename), EstimateSize(f.Data), time.Now().UTC())
}

// UpdateFileData replaces the attachment payload and metadata.
func (s *SQLStore) UpdateFileData(ctx context.Context, id int64, f *FileData) error {
	return s.execOne(ctx, "UPDATE file_data SET data = ?, type = ?, source = ?, filename = ?, size = ? WHERE id = ?",
		f.Data, f.Type, f.Source, nullString(f.Filename), EstimateSize(f.Data), id)
}

// PatchFileData updates the non-nil fields of p. The size follows the data.
func (s *SQLStore) PatchFileData(ctx context.Context, id int64, p FileDataPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+" = ?")
		args = append(args, v)
	}
	if p.Data != nil {
		set("data", *p.Data)
		set("size", EstimateSize(*p.Data))
	}
	if p.Type != nil {
		set("type", *p.Type)
	}
	if p.Source != nil {
		set("source", *p.Source)
	}
	if p.Filename != nil {
		set("filename", nullString(*p.Filename))
	}
	args = append(args, id)
	return s.execOne(ctx, "UPDATE file_data SET "+strings.Join(fields, ", ")+" WHERE id = ?", args...)
}

// DeleteFileData removes one attachment.
func (s *SQLStore) DeleteFileData(ctx context.Context, id int64) error {
	return s.execOne(ctx, "DELETE FROM file_data WHERE id = ?", id)
}

// DeleteAllFileData removes every attachment and returns how many were removed.
func (s *SQLStore) DeleteAllFileData(ctx context.Context) (int64, error) {
	return s.exec(ctx, "DELETE FROM file_data")
}

// FileDataStats summarizes stored attachments.
func (s *SQLStore) FileDataStats(ctx context.Context) (*FileStats, error) {
	stats := &FileStats{}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(size), 0), COALESCE(AVG(size), 0) FROM file_data",
	).Scan(&stats.TotalFiles, &stats.TotalSize, &stats.AvgSize); err != nil {
		return nil, err
	}
	if stats.TotalFiles == 0 {
		return stats, nil
	}

	var oldest, newest time.Time
	if err := s.db.QueryRowContext(ctx, "SELECT created_at FROM file_data ORDER BY created_at ASC, id ASC LIMIT 1").Scan(&oldest); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT created_at FROM file_data ORDER BY created_at DESC, id DESC LIMIT 1").Scan(&newest); err != nil {
		return nil, err
	}
	stats.OldestFile = &oldest
	stats.NewestFile = &newest
	return stats, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
