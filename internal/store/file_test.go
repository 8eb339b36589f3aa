package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/zzstoatzz/slackbot/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s := NewFileStore(filepath.Join(t.TempDir(), "message_cache.json"))
	if err := s.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestLoadMissingFile(t *testing.T) {
	s := newTestStore(t)

	all, err := s.All(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("missing file should yield empty mapping, got %d entries", len(all))
	}
}

func TestLoadEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "message_cache.json")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFileStore(path)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("empty file should not be an error: %v", err)
	}
}

func TestGetUnseenConversation(t *testing.T) {
	s := newTestStore(t)

	msgs, err := s.Get(context.Background(), "999.000")
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Fatalf("unseen conversation should be empty, got %d messages", len(msgs))
	}
}

func TestAppendAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "message_cache.json")

	s := NewFileStore(path)
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	turn := []models.Message{
		models.UserMessage("how do I deploy?"),
		models.AssistantMessage("run the deploy workflow"),
	}
	if err := s.Append(ctx, "111.222", turn); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "111.222", []models.Message{models.UserMessage("thanks")}); err != nil {
		t.Fatal(err)
	}

	// A fresh store over the same file must see the identical mapping.
	reloaded := NewFileStore(path)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}

	want, _ := s.All(ctx)
	got, _ := reloaded.All(ctx)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\ngot  %+v\nwant %+v", got, want)
	}

	msgs, _ := reloaded.Get(ctx, "111.222")
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after reload, got %d", len(msgs))
	}
	if msgs[0].Content != "how do I deploy?" || msgs[2].Content != "thanks" {
		t.Fatalf("append order not preserved: %+v", msgs)
	}
}

func TestAppendEmptyIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Append(ctx, "1.2", nil); err != nil {
		t.Fatal(err)
	}
	all, _ := s.All(ctx)
	if len(all) != 0 {
		t.Fatal("empty append should not create a conversation")
	}
}

func TestConcurrentAppendsSameConversation(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "message_cache.json")

	s := NewFileStore(path)
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}

	const writers = 8
	const perWriter = 20

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				msg := models.UserMessage(fmt.Sprintf("w%d-%d", w, i))
				if err := s.Append(ctx, "111.222", []models.Message{msg}); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	// Every write must be present in the persisted state: reload and count.
	reloaded := NewFileStore(path)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatal(err)
	}
	msgs, _ := reloaded.Get(ctx, "111.222")
	if len(msgs) != writers*perWriter {
		t.Fatalf("lost writes: %d messages persisted, want %d", len(msgs), writers*perWriter)
	}

	// Per-writer relative order must survive.
	next := make(map[int]int)
	for _, m := range msgs {
		var w, i int
		if _, err := fmt.Sscanf(m.Content, "w%d-%d", &w, &i); err != nil {
			t.Fatalf("unexpected message %q", m.Content)
		}
		if i != next[w] {
			t.Fatalf("writer %d out of order: got %d, want %d", w, i, next[w])
		}
		next[w]++
	}
}

func TestConcurrentAppendsDifferentConversations(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 10; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			id := fmt.Sprintf("%d.000", w)
			for i := 0; i < 10; i++ {
				if err := s.Append(ctx, id, []models.Message{models.UserMessage("m")}); err != nil {
					t.Error(err)
					return
				}
			}
		}(w)
	}
	wg.Wait()

	all, _ := s.All(ctx)
	if len(all) != 10 {
		t.Fatalf("expected 10 conversations, got %d", len(all))
	}
	for id, msgs := range all {
		if len(msgs) != 10 {
			t.Fatalf("conversation %s lost writes: %d messages, want 10", id, len(msgs))
		}
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s := NewFileStore(filepath.Join(dir, "message_cache.json"))
	if err := s.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := s.Append(ctx, "1.2", []models.Message{models.UserMessage("hi")}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".cache-") {
			t.Fatalf("temp file %s left behind after save", e.Name())
		}
	}
}

func TestGetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.Append(ctx, "1.2", []models.Message{models.UserMessage("original")}); err != nil {
		t.Fatal(err)
	}

	msgs, _ := s.Get(ctx, "1.2")
	msgs[0].Content = "mutated"

	again, _ := s.Get(ctx, "1.2")
	if again[0].Content != "original" {
		t.Fatal("Get exposed internal state to mutation")
	}
}
