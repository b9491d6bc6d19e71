package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func ptr[T any](v T) *T { return &v }

// runStoreTests exercises the behavior every driver shares.
func runStoreTests(t *testing.T, open func(t *testing.T) Store) {
	t.Run("ChatSettings", func(t *testing.T) { testChatSettings(t, open(t)) })
	t.Run("ConversationCRUD", func(t *testing.T) { testConversationCRUD(t, open(t)) })
	t.Run("ConversationSearch", func(t *testing.T) { testConversationSearch(t, open(t)) })
	t.Run("RecentConversations", func(t *testing.T) { testRecentConversations(t, open(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, open(t)) })
	t.Run("DeleteByGID", func(t *testing.T) { testDeleteByGID(t, open(t)) })
	t.Run("FileData", func(t *testing.T) { testFileData(t, open(t)) })
	t.Run("FileDataStats", func(t *testing.T) { testFileDataStats(t, open(t)) })
}

func testChatSettings(t *testing.T, s Store) {
	ctx := context.Background()

	id, err := s.AddChatSettings(ctx, &ChatSettings{
		Name:         "Reviewer",
		Author:       "me",
		Instructions: "Review the code.",
		Model:        "gpt-4o",
		Temperature:  ptr(0.2),
		Icon:         &Icon{Type: "emoji", Data: "R"},
	})
	if err != nil {
		t.Fatalf("AddChatSettings() error: %v", err)
	}
	if id == 0 {
		t.Fatal("AddChatSettings() returned id 0")
	}

	got, err := s.GetChatSettings(ctx, id)
	if err != nil {
		t.Fatalf("GetChatSettings() error: %v", err)
	}
	if got.Name != "Reviewer" || got.Instructions != "Review the code." {
		t.Errorf("GetChatSettings() = %+v", got)
	}
	if got.Temperature == nil || *got.Temperature != 0.2 {
		t.Errorf("Temperature = %v, want 0.2", got.Temperature)
	}
	if got.TopP != nil {
		t.Errorf("TopP = %v, want nil", *got.TopP)
	}
	if got.Icon == nil || got.Icon.Data != "R" {
		t.Errorf("Icon = %+v", got.Icon)
	}

	if err := s.SetShowInSidebar(ctx, id, true); err != nil {
		t.Fatalf("SetShowInSidebar() error: %v", err)
	}
	got.Name = "Senior reviewer"
	got.ShowInSidebar = true
	if err := s.UpdateChatSettings(ctx, id, got); err != nil {
		t.Fatalf("UpdateChatSettings() error: %v", err)
	}

	list, err := s.ListChatSettings(ctx)
	if err != nil {
		t.Fatalf("ListChatSettings() error: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Senior reviewer" || !list[0].ShowInSidebar {
		t.Errorf("ListChatSettings() = %+v", list)
	}

	if err := s.UpdateChatSettings(ctx, 9999, got); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateChatSettings(missing) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteChatSettings(ctx, id); err != nil {
		t.Fatalf("DeleteChatSettings() error: %v", err)
	}
	if _, err := s.GetChatSettings(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetChatSettings(deleted) error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteChatSettings(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteChatSettings(deleted) error = %v, want ErrNotFound", err)
	}
}

func testConversationCRUD(t *testing.T, s Store) {
	ctx := context.Background()

	conv := &Conversation{
		ID:        42,
		GID:       7,
		Timestamp: 1000,
		Title:     "First chat",
		Model:     "gpt-4o",
		Messages: []Message{
			{Role: "user", Content: "hello"},
			{Role: "assistant", Content: "hi there"},
		},
	}
	id, err := s.AddConversation(ctx, conv)
	if err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}
	if id != 42 {
		t.Errorf("AddConversation() id = %d, want client supplied 42", id)
	}

	next, err := s.AddConversation(ctx, &Conversation{GID: 7, Timestamp: 1001, Title: "Second"})
	if err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}
	if next <= 42 {
		t.Errorf("next id = %d, want > 42", next)
	}

	got, err := s.GetConversation(ctx, 42)
	if err != nil {
		t.Fatalf("GetConversation() error: %v", err)
	}
	if got.Title != "First chat" || len(got.Messages) != 2 || got.Messages[1].Content != "hi there" {
		t.Errorf("GetConversation() = %+v", got)
	}

	n, err := s.CountConversations(ctx, 7)
	if err != nil {
		t.Fatalf("CountConversations() error: %v", err)
	}
	if n != 2 {
		t.Errorf("CountConversations() = %d, want 2", n)
	}

	if err := s.PatchConversation(ctx, 42, ConversationPatch{Title: ptr("Renamed"), Marker: ptr(true)}); err != nil {
		t.Fatalf("PatchConversation() error: %v", err)
	}
	got, _ = s.GetConversation(ctx, 42)
	if got.Title != "Renamed" || !got.Marker || got.Model != "gpt-4o" {
		t.Errorf("after patch = %+v", got)
	}

	var empty *EmptyPatchError
	if err := s.PatchConversation(ctx, 42, ConversationPatch{}); !errors.As(err, &empty) {
		t.Errorf("PatchConversation(empty) error = %v, want EmptyPatchError", err)
	}
	if err := s.PatchConversation(ctx, 9999, ConversationPatch{Title: ptr("x")}); !errors.Is(err, ErrNotFound) {
		t.Errorf("PatchConversation(missing) error = %v, want ErrNotFound", err)
	}

	got.Messages = append(got.Messages, Message{Role: "user", Content: "again"})
	if err := s.UpdateConversation(ctx, 42, got); err != nil {
		t.Fatalf("UpdateConversation() error: %v", err)
	}
	got, _ = s.GetConversation(ctx, 42)
	if len(got.Messages) != 3 {
		t.Errorf("messages after update = %d, want 3", len(got.Messages))
	}
	if err := s.UpdateConversation(ctx, 9999, got); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateConversation(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.DeleteConversation(ctx, 42); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}
	if err := s.DeleteConversation(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteConversation(deleted) error = %v, want ErrNotFound", err)
	}
}

func testConversationSearch(t *testing.T, s Store) {
	ctx := context.Background()

	seed := []Conversation{
		{Timestamp: 1, Title: "Go generics", Messages: []Message{{Role: "user", Content: "type parameters"}}},
		{Timestamp: 2, Title: "Rust lifetimes", Messages: []Message{{Role: "user", Content: "borrow checker"}}},
		{Timestamp: 3, Title: "GO modules", Messages: []Message{{Role: "user", Content: "replace directives"}}},
	}
	for i := range seed {
		if _, err := s.AddConversation(ctx, &seed[i]); err != nil {
			t.Fatalf("AddConversation() error: %v", err)
		}
	}

	titles, err := s.SearchConversationTitles(ctx, "go")
	if err != nil {
		t.Fatalf("SearchConversationTitles() error: %v", err)
	}
	if len(titles) != 2 {
		t.Fatalf("SearchConversationTitles() = %d results, want 2", len(titles))
	}
	if titles[0].Title != "GO modules" {
		t.Errorf("first result = %q, want newest first", titles[0].Title)
	}

	msgs, err := s.SearchConversationMessages(ctx, "borrow")
	if err != nil {
		t.Fatalf("SearchConversationMessages() error: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Title != "Rust lifetimes" {
		t.Errorf("SearchConversationMessages() = %+v", msgs)
	}
}

func testRecentConversations(t *testing.T, s Store) {
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		c := &Conversation{Timestamp: int64(i * 10), Title: strings.Repeat("x", i), Messages: []Message{{Role: "user", Content: "hi"}}}
		if _, err := s.AddConversation(ctx, c); err != nil {
			t.Fatalf("AddConversation() error: %v", err)
		}
	}

	recent, err := s.RecentConversations(ctx, 3)
	if err != nil {
		t.Fatalf("RecentConversations() error: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("RecentConversations(3) = %d results", len(recent))
	}
	if recent[0].Timestamp != 50 || recent[2].Timestamp != 30 {
		t.Errorf("order = %d..%d, want 50..30", recent[0].Timestamp, recent[2].Timestamp)
	}
	for _, c := range recent {
		if len(c.Messages) != 0 {
			t.Errorf("conversation %d has %d messages, want none", c.ID, len(c.Messages))
		}
	}

	all, err := s.RecentConversations(ctx, 0)
	if err != nil {
		t.Fatalf("RecentConversations(0) error: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("RecentConversations(0) = %d results, want 5", len(all))
	}
}

func testDeleteCascades(t *testing.T, s Store) {
	ctx := context.Background()

	fileID, err := s.AddFileData(ctx, &FileData{Data: "data:image/png;base64,AAAA", Type: "image", Source: "filename"})
	if err != nil {
		t.Fatalf("AddFileData() error: %v", err)
	}
	keepID, err := s.AddFileData(ctx, &FileData{Data: "data:image/png;base64,BBBB", Type: "image"})
	if err != nil {
		t.Fatalf("AddFileData() error: %v", err)
	}

	convID, err := s.AddConversation(ctx, &Conversation{
		Timestamp: 1,
		Title:     "with image",
		Messages: []Message{{
			Role:    "user",
			Content: "look",
			FileDataRef: []FileDataRef{{
				ID:       fileID,
				FileData: &FileData{Data: "data:image/png;base64,AAAA"},
			}},
		}},
	})
	if err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}

	got, _ := s.GetConversation(ctx, convID)
	if ref := got.Messages[0].FileDataRef[0]; ref.ID != fileID || ref.FileData != nil {
		t.Errorf("stored ref = %+v, want id only", ref)
	}

	if err := s.DeleteConversation(ctx, convID); err != nil {
		t.Fatalf("DeleteConversation() error: %v", err)
	}
	if _, err := s.GetFileData(ctx, fileID); !errors.Is(err, ErrNotFound) {
		t.Errorf("referenced file survived: %v", err)
	}
	if _, err := s.GetFileData(ctx, keepID); err != nil {
		t.Errorf("unreferenced file removed: %v", err)
	}

	if _, err := s.AddConversation(ctx, &Conversation{Timestamp: 2, Title: "other"}); err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}
	if err := s.DeleteAllConversations(ctx); err != nil {
		t.Fatalf("DeleteAllConversations() error: %v", err)
	}
	if recent, _ := s.RecentConversations(ctx, 0); len(recent) != 0 {
		t.Errorf("conversations left = %d", len(recent))
	}
	if _, err := s.GetFileData(ctx, keepID); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteAllConversations() left file data: %v", err)
	}
}

func testDeleteByGID(t *testing.T, s Store) {
	ctx := context.Background()

	fileID, _ := s.AddFileData(ctx, &FileData{Data: "AAAA", Type: "image"})
	for i, gid := range []int64{1, 1, 2} {
		c := &Conversation{GID: gid, Timestamp: int64(i)}
		if i == 0 {
			c.Messages = []Message{{Role: "user", FileDataRef: []FileDataRef{{ID: fileID}}}}
		}
		if _, err := s.AddConversation(ctx, c); err != nil {
			t.Fatalf("AddConversation() error: %v", err)
		}
	}

	n, err := s.DeleteConversationsByGID(ctx, 1)
	if err != nil {
		t.Fatalf("DeleteConversationsByGID() error: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	if count, _ := s.CountConversations(ctx, 2); count != 1 {
		t.Errorf("gid 2 count = %d, want 1", count)
	}
	if _, err := s.GetFileData(ctx, fileID); !errors.Is(err, ErrNotFound) {
		t.Errorf("file of deleted group survived: %v", err)
	}

	n, err = s.DeleteConversationsByGID(ctx, 99)
	if err != nil || n != 0 {
		t.Errorf("DeleteConversationsByGID(99) = %d, %v", n, err)
	}
}

func testFileData(t *testing.T, s Store) {
	ctx := context.Background()

	data := strings.Repeat("A", 400)
	id, err := s.AddFileData(ctx, &FileData{Data: data, Type: "image", Source: "filename", Filename: "a.png"})
	if err != nil {
		t.Fatalf("AddFileData() error: %v", err)
	}
	got, err := s.GetFileData(ctx, id)
	if err != nil {
		t.Fatalf("GetFileData() error: %v", err)
	}
	if got.Size != 300 {
		t.Errorf("Size = %d, want 300", got.Size)
	}
	if got.Filename != "a.png" {
		t.Errorf("Filename = %q", got.Filename)
	}

	if err := s.PatchFileData(ctx, id, FileDataPatch{Data: ptr(strings.Repeat("B", 8))}); err != nil {
		t.Fatalf("PatchFileData() error: %v", err)
	}
	got, _ = s.GetFileData(ctx, id)
	if got.Size != 6 || got.Type != "image" {
		t.Errorf("after patch = %+v", got)
	}

	var empty *EmptyPatchError
	if err := s.PatchFileData(ctx, id, FileDataPatch{}); !errors.As(err, &empty) {
		t.Errorf("PatchFileData(empty) error = %v", err)
	}

	if err := s.UpdateFileData(ctx, id, &FileData{Data: "CCCC", Type: "text", Source: "paste"}); err != nil {
		t.Fatalf("UpdateFileData() error: %v", err)
	}
	got, _ = s.GetFileData(ctx, id)
	if got.Type != "text" || got.Size != 3 {
		t.Errorf("after update = %+v", got)
	}

	if err := s.DeleteFileData(ctx, id); err != nil {
		t.Fatalf("DeleteFileData() error: %v", err)
	}
	if err := s.DeleteFileData(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteFileData(deleted) error = %v", err)
	}
}

func testFileDataStats(t *testing.T, s Store) {
	ctx := context.Background()

	stats, err := s.FileDataStats(ctx)
	if err != nil {
		t.Fatalf("FileDataStats() error: %v", err)
	}
	if stats.TotalFiles != 0 || stats.OldestFile != nil {
		t.Errorf("empty stats = %+v", stats)
	}

	s.AddFileData(ctx, &FileData{Data: strings.Repeat("A", 4), Type: "image"})
	s.AddFileData(ctx, &FileData{Data: strings.Repeat("A", 12), Type: "image"})

	stats, err = s.FileDataStats(ctx)
	if err != nil {
		t.Fatalf("FileDataStats() error: %v", err)
	}
	if stats.TotalFiles != 2 || stats.TotalSize != 12 || stats.AvgSize != 6 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.OldestFile == nil || stats.NewestFile == nil {
		t.Errorf("missing oldest/newest: %+v", stats)
	}

	n, err := s.DeleteAllFileData(ctx)
	if err != nil || n != 2 {
		t.Errorf("DeleteAllFileData() = %d, %v", n, err)
	}
}
