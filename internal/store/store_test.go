package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestMessageLogAppendAndByPhone(t *testing.T) {
	t.Parallel()

	log := NewMessageLog(t.TempDir())
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	log.now = fixedClock(base)

	inputs := []Message{
		{From: "+507 6111-1111", To: "bot", Body: "second", Type: MessageIncoming, Timestamp: base.Add(time.Hour)},
		{From: "bot", To: "50761111111", Body: "first", Type: MessageOutgoing, Timestamp: base},
		{From: "bot", To: "+50762222222", Body: "other", Type: MessageOutgoing},
	}
	for _, m := range inputs {
		if _, err := log.Append(m); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := log.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 || all[2].ID == "" || !all[2].Timestamp.Equal(base) || !all[0].SavedAt.Equal(base) {
		t.Fatalf("unexpected log %+v", all)
	}

	got, err := log.ByPhone("+50761111111")
	if err != nil {
		t.Fatalf("by phone: %v", err)
	}
	if len(got) != 2 || got[0].Body != "first" || got[1].Body != "second" {
		t.Fatalf("unexpected conversation %+v", got)
	}
}

func TestMessageLogMissingFile(t *testing.T) {
	t.Parallel()

	log := NewMessageLog(filepath.Join(t.TempDir(), "nested"))
	all, err := log.All()
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty log, got %v %v", all, err)
	}
	got, err := log.ByPhone("+50799999999")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no messages, got %v %v", got, err)
	}
}

func TestMessageLogCorruptFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, messagesFile), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMessageLog(dir).All(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestReferenceLogMergeDedupeOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	log := NewReferenceLog(dir)
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	log.now = fixedClock(base)

	old := ReferenceResponse{ID: "r1", Timestamp: base.Add(-time.Hour), CandidateName: "Ana Pérez"}
	if _, err := log.Save(old); err != nil {
		t.Fatalf("save: %v", err)
	}
	saved, err := log.Save(ReferenceResponse{ID: "r2", CandidateName: "Luis", CandidatePhone: "+50762222222"})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Status != StatusPendingReview || saved.WillingToRecommend != RecommendUnknown || saved.ReferenceName != "Unknown" {
		t.Fatalf("defaults not applied: %+v", saved)
	}

	extra := []ReferenceResponse{{ID: "r3", Timestamp: base.Add(time.Hour), CandidateName: "Marta"}}
	if err := writeJSON(filepath.Join(dir, referenceHistoryFile), append(mustRead(t, filepath.Join(dir, referenceHistoryFile)), extra...)); err != nil {
		t.Fatal(err)
	}

	all, err := log.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 unique responses, got %d", len(all))
	}
	if all[0].ID != "r3" || all[1].ID != "r2" || all[2].ID != "r1" {
		t.Fatalf("unexpected order %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}

	byName, err := log.ByCandidate("ana pérez", "")
	if err != nil || len(byName) != 1 || byName[0].ID != "r1" {
		t.Fatalf("unexpected by-name result %+v %v", byName, err)
	}
	byPhone, err := log.ByCandidate("", "62222222 ")
	if err != nil || len(byPhone) != 0 {
		t.Fatalf("partial phone must not match: %+v %v", byPhone, err)
	}
	byPhone, err = log.ByCandidate("", "+507 6222-2222")
	if err != nil || len(byPhone) != 1 || byPhone[0].ID != "r2" {
		t.Fatalf("unexpected by-phone result %+v %v", byPhone, err)
	}
}

func mustRead(t *testing.T, path string) []ReferenceResponse {
	t.Helper()
	var out []ReferenceResponse
	if err := readJSON(path, &out); err != nil {
		t.Fatal(err)
	}
	return out
}

func TestChatStore(t *testing.T) {
	t.Parallel()

	s, err := NewChatStore(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	turns := []ChatTurn{
		{ConversationID: "c1", Sender: SenderUser, Message: "hola", Timestamp: base},
		{ConversationID: "c1", Sender: SenderAI, Message: "¿en qué te ayudo?", Timestamp: base.Add(time.Second)},
		{ConversationID: "c1", Sender: SenderUser, Message: "candidatos", Timestamp: base.Add(2 * time.Second)},
		{ConversationID: "c2", Sender: SenderUser, Message: "hello", Timestamp: base.Add(time.Minute)},
	}
	for _, turn := range turns {
		if _, err := s.Append(ctx, turn); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := s.History(ctx, "c1", 2)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Sender != SenderAI || history[1].Message != "candidatos" {
		t.Fatalf("unexpected history %+v", history)
	}
	if history[0].ID == "" || !history[0].Timestamp.Equal(base.Add(time.Second)) {
		t.Fatalf("unexpected turn %+v", history[0])
	}

	convs, err := s.Conversations(ctx)
	if err != nil {
		t.Fatalf("conversations: %v", err)
	}
	if len(convs) != 2 || convs[0].ID != "c2" || convs[1].Turns != 3 {
		t.Fatalf("unexpected conversations %+v", convs)
	}

	deleted, err := s.Delete(ctx, "c1")
	if err != nil || !deleted {
		t.Fatalf("delete: %v %v", deleted, err)
	}
	if deleted, _ := s.Delete(ctx, "c1"); deleted {
		t.Fatal("second delete reported rows")
	}
	if _, err := s.Append(ctx, ChatTurn{Message: "x"}); err == nil {
		t.Fatal("expected error without conversation id")
	}
}

func TestNewChatStoreValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewChatStore("mysql", "x"); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	if _, err := NewChatStore(DriverSQLite, " "); err == nil {
		t.Fatal("expected dsn error")
	}
}
