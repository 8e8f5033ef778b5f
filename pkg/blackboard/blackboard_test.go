package blackboard

import (
	"testing"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
	"github.com/cxbxmxcx/agenticbt/pkg/llm"
)

func TestGetRequiresReadAccess(t *testing.T) {
	board := NewBoard()
	writer := board.Client("writer")
	writer.RegisterKey("answer", Write)
	if err := writer.Set("answer", "42"); err != nil {
		t.Fatal(err)
	}

	if _, err := writer.Get("answer"); !errors.HasCode(err, errors.CodeBlackboardAccess) {
		t.Errorf("expected BLACKBOARD_ACCESS for write-only client, got %v", err)
	}
}

func TestSetRequiresWriteAccess(t *testing.T) {
	board := NewBoard()
	reader := board.Client("reader")
	reader.RegisterKey("answer", Read)

	err := reader.Set("answer", "42")
	if !errors.HasCode(err, errors.CodeBlackboardAccess) {
		t.Errorf("expected BLACKBOARD_ACCESS for read-only client, got %v", err)
	}
}

func TestUnregisteredKeyBehavesLikeNoAccess(t *testing.T) {
	board := NewBoard()
	client := board.Client("nobody")

	if _, err := client.Get("answer"); !errors.HasCode(err, errors.CodeBlackboardAccess) {
		t.Errorf("expected BLACKBOARD_ACCESS for unregistered key, got %v", err)
	}
	if err := client.Set("answer", "x"); !errors.HasCode(err, errors.CodeBlackboardAccess) {
		t.Errorf("expected BLACKBOARD_ACCESS for unregistered key, got %v", err)
	}
}

func TestGetAbsentKeyIsNotFound(t *testing.T) {
	board := NewBoard()
	client := board.Client("reader")
	client.RegisterKey("answer", Read)

	if _, err := client.Get("answer"); !errors.HasCode(err, errors.CodeNotFound) {
		t.Errorf("expected NOT_FOUND for absent key, got %v", err)
	}
}

func TestGetOrFallsBack(t *testing.T) {
	board := NewBoard()
	client := board.Client("reader")
	client.RegisterKey("present", ReadWrite)
	if err := client.Set("present", "value"); err != nil {
		t.Fatal(err)
	}
	client.RegisterKey("absent", Read)

	if got := client.GetOr("present", "fallback"); got != "value" {
		t.Errorf("expected stored value, got %v", got)
	}
	if got := client.GetOr("absent", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for absent key, got %v", got)
	}
	if got := client.GetOr("denied", "fallback"); got != "fallback" {
		t.Errorf("expected fallback for denied key, got %v", got)
	}
}

func TestClientsShareOneStore(t *testing.T) {
	board := NewBoard()
	writer := board.Client("writer")
	writer.RegisterKey("shared", Write)
	reader := board.Client("reader")
	reader.RegisterKey("shared", Read)

	if err := writer.Set("shared", "hello"); err != nil {
		t.Fatal(err)
	}
	got, err := reader.Get("shared")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("expected value visible across clients, got %v", got)
	}
}

func TestKeysAreOverwrittenNotRemoved(t *testing.T) {
	board := NewBoard()
	client := board.Client("writer")
	client.RegisterKey("k", ReadWrite)
	for _, v := range []string{"one", "two"} {
		if err := client.Set("k", v); err != nil {
			t.Fatal(err)
		}
	}
	if got, _ := client.Get("k"); got != "two" {
		t.Errorf("expected overwrite to win, got %v", got)
	}
	if len(board.Keys()) != 1 {
		t.Errorf("expected a single key, got %v", board.Keys())
	}
}

func TestConversationBoardSeedsReservedKeys(t *testing.T) {
	board := NewConversationBoard()
	client := board.Client("loop")
	client.RegisterKey(KeyThread, Read)
	client.RegisterKey(KeyContent, Read)

	thread, err := client.Get(KeyThread)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := thread.(*llm.Thread); !ok {
		t.Errorf("expected seeded thread, got %T", thread)
	}
	content, err := client.Get(KeyContent)
	if err != nil {
		t.Fatal(err)
	}
	if content != "" {
		t.Errorf("expected empty seeded content, got %v", content)
	}
}
