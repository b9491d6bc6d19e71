package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// BackendError is a non-success response from the REST backend.
type BackendError struct {
	Status  int
	Message string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend HTTP %d: %s", e.Status, e.Message)
}

// RemoteStore implements Store against the dchat REST backend.
type RemoteStore struct {
	client  *http.Client
	baseURL string
}

var _ Store = (*RemoteStore)(nil)

// NewRemoteStore creates a client for the backend at baseURL, for example
// "http://localhost:3001". The "/api" prefix is added when missing.
func NewRemoteStore(baseURL string, client *http.Client) (*RemoteStore, error) {
	if baseURL == "" {
		return nil, errors.New("backend URL is required for the remote storage driver")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/api") {
		baseURL += "/api"
	}
	return &RemoteStore{client: client, baseURL: baseURL}, nil
}

// Close is a no-op.
func (r *RemoteStore) Close() error { return nil }

// doRequest sends a JSON request, retrying rate limited and unavailable
// responses, and decodes the JSON response into out when out is non-nil.
func (r *RemoteStore) doRequest(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	for attempt := 1; ; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("failed to create HTTP request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := r.client.Do(req)
		if err != nil {
			return fmt.Errorf("HTTP request failed: %w", err)
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}

		if isRetryableStatus(resp.StatusCode) && attempt < RetryMaxAttempts {
			if err := sleepContext(ctx, ComputeRetryDelay(attempt, resp.Header)); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode == http.StatusNotFound {
			return ErrNotFound
		}
		if resp.StatusCode >= 400 {
			var e struct {
				Error string `json:"error"`
			}
			msg := string(respBody)
			if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
				msg = e.Error
			}
			return &BackendError{Status: resp.StatusCode, Message: msg}
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode backend response: %w", err)
		}
		return nil
	}
}

type idResponse struct {
	ID int64 `json:"id"`
}

type deletedResponse struct {
	DeletedCount int64 `json:"deletedCount"`
}

func idPath(prefix string, id int64) string {
	return fmt.Sprintf("%s/%d", prefix, id)
}

// ---- chat settings ----

func (r *RemoteStore) ListChatSettings(ctx context.Context) ([]ChatSettings, error) {
	var out []ChatSettings
	err := r.doRequest(ctx, http.MethodGet, "/chat-settings", nil, &out)
	return out, err
}

func (r *RemoteStore) GetChatSettings(ctx context.Context, id int64) (*ChatSettings, error) {
	var out ChatSettings
	if err := r.doRequest(ctx, http.MethodGet, idPath("/chat-settings", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteStore) AddChatSettings(ctx context.Context, cs *ChatSettings) (int64, error) {
	var out idResponse
	err := r.doRequest(ctx, http.MethodPost, "/chat-settings", cs, &out)
	return out.ID, err
}

func (r *RemoteStore) UpdateChatSettings(ctx context.Context, id int64, cs *ChatSettings) error {
	return r.doRequest(ctx, http.MethodPut, idPath("/chat-settings", id), cs, nil)
}

func (r *RemoteStore) SetShowInSidebar(ctx context.Context, id int64, show bool) error {
	body := map[string]bool{"showInSidebar": show}
	return r.doRequest(ctx, http.MethodPatch, idPath("/chat-settings", id)+"/sidebar", body, nil)
}

func (r *RemoteStore) DeleteChatSettings(ctx context.Context, id int64) error {
	return r.doRequest(ctx, http.MethodDelete, idPath("/chat-settings", id), nil, nil)
}

// ---- conversations ----

func (r *RemoteStore) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	var out Conversation
	if err := r.doRequest(ctx, http.MethodGet, idPath("/conversations", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteStore) SearchConversationTitles(ctx context.Context, query string) ([]Conversation, error) {
	var out []Conversation
	err := r.doRequest(ctx, http.MethodGet, "/conversations/search/title?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (r *RemoteStore) SearchConversationMessages(ctx context.Context, query string) ([]Conversation, error) {
	var out []Conversation
	err := r.doRequest(ctx, http.MethodGet, "/conversations/search/messages?q="+url.QueryEscape(query), nil, &out)
	return out, err
}

func (r *RemoteStore) RecentConversations(ctx context.Context, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	var out []Conversation
	err := r.doRequest(ctx, http.MethodGet, fmt.Sprintf("/conversations/recent/%d", limit), nil, &out)
	return out, err
}

func (r *RemoteStore) CountConversations(ctx context.Context, gid int64) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	err := r.doRequest(ctx, http.MethodGet, idPath("/conversations/count", gid), nil, &out)
	return out.Count, err
}

func (r *RemoteStore) AddConversation(ctx context.Context, c *Conversation) (int64, error) {
	var out idResponse
	err := r.doRequest(ctx, http.MethodPost, "/conversations", c, &out)
	return out.ID, err
}

func (r *RemoteStore) UpdateConversation(ctx context.Context, id int64, c *Conversation) error {
	return r.doRequest(ctx, http.MethodPut, idPath("/conversations", id), c, nil)
}

func (r *RemoteStore) PatchConversation(ctx context.Context, id int64, p ConversationPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	return r.doRequest(ctx, http.MethodPatch, idPath("/conversations", id), p, nil)
}

func (r *RemoteStore) DeleteConversation(ctx context.Context, id int64) error {
	return r.doRequest(ctx, http.MethodDelete, idPath("/conversations", id), nil, nil)
}

func (r *RemoteStore) DeleteAllConversations(ctx context.Context) error {
	return r.doRequest(ctx, http.MethodDelete, "/conversations", nil, nil)
}

func (r *RemoteStore) DeleteConversationsByGID(ctx context.Context, gid int64) (int64, error) {
	var out deletedResponse
	err := r.doRequest(ctx, http.MethodDelete, idPath("/conversations/gid", gid), nil, &out)
	return out.DeletedCount, err
}

// ---- file data ----

func (r *RemoteStore) GetFileData(ctx context.Context, id int64) (*FileData, error) {
	var out FileData
	if err := r.doRequest(ctx, http.MethodGet, idPath("/file-data", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *RemoteStore) AddFileData(ctx context.Context, f *FileData) (int64, error) {
	var out idResponse
	err := r.doRequest(ctx, http.MethodPost, "/file-data", f, &out)
	return out.ID, err
}

func (r *RemoteStore) UpdateFileData(ctx context.Context, id int64, f *FileData) error {
	return r.doRequest(ctx, http.MethodPut, idPath("/file-data", id), f, nil)
}

func (r *RemoteStore) PatchFileData(ctx context.Context, id int64, p FileDataPatch) error {
	if p.IsEmpty() {
		return &EmptyPatchError{}
	}
	return r.doRequest(ctx, http.MethodPatch, idPath("/file-data", id), p, nil)
}

func (r *RemoteStore) DeleteFileData(ctx context.Context, id int64) error {
	return r.doRequest(ctx, http.MethodDelete, idPath("/file-data", id), nil, nil)
}

func (r *RemoteStore) DeleteAllFileData(ctx context.Context) (int64, error) {
	var out deletedResponse
	err := r.doRequest(ctx, http.MethodDelete, "/file-data", nil, &out)
	return out.DeletedCount, err
}

func (r *RemoteStore) FileDataStats(ctx context.Context) (*FileStats, error) {
	var out FileStats
	if err := r.doRequest(ctx, http.MethodGet, "/file-data/stats/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
