package storage

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestMemoryStoreCopiesMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	msgs := []Message{{Role: "user", Content: "original"}}
	id, err := s.AddConversation(ctx, &Conversation{Messages: msgs})
	if err != nil {
		t.Fatalf("AddConversation() error: %v", err)
	}
	msgs[0].Content = "mutated"

	got, _ := s.GetConversation(ctx, id)
	if got.Messages[0].Content != "original" {
		t.Errorf("stored message changed through caller slice: %q", got.Messages[0].Content)
	}
	got.Messages[0].Content = "mutated again"

	again, _ := s.GetConversation(ctx, id)
	if again.Messages[0].Content != "original" {
		t.Errorf("stored message changed through returned slice: %q", again.Messages[0].Content)
	}
}
