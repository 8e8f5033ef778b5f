// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// ThreadMessage is a message as recorded in a conversation thread. Unlike the
// wire-format Message it keeps tool calls paired with their results so the
// exchange can be replayed or rendered later. Immutable once appended.
type ThreadMessage struct {
	Role        Role
	Content     string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
	Timestamp   time.Time
}

// Thread is an append-only, ordered conversation log. Insertion order is
// chronological order and the replay order for the completion service.
type Thread struct {
	messages []ThreadMessage
}

// NewThread creates an empty conversation thread.
func NewThread() *Thread {
	return &Thread{}
}

// Append adds a message to the thread. A message carrying tool calls must
// carry the matching results in the same append so the service replay never
// observes a dangling call. Prior messages are never mutated.
func (t *Thread) Append(msg ThreadMessage) error {
	if len(msg.ToolCalls) > 0 && len(msg.ToolResults) != len(msg.ToolCalls) {
		return errors.New(errors.CodeInternal, "tool calls appended without matching results", nil).
			WithContext("calls", len(msg.ToolCalls)).
			WithContext("results", len(msg.ToolResults))
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	t.messages = append(t.messages, msg)
	return nil
}

// AppendText adds a plain message with the given role and content.
func (t *Thread) AppendText(role Role, content string) {
	// Plain messages cannot violate the tool-pairing invariant.
	_ = t.Append(ThreadMessage{Role: role, Content: content})
}

// Len returns the number of messages in the thread.
func (t *Thread) Len() int {
	return len(t.messages)
}

// Messages returns a copy of the thread's messages in append order.
func (t *Thread) Messages() []ThreadMessage {
	return append([]ThreadMessage(nil), t.messages...)
}

// Last returns the most recent message, or a zero message for an empty thread.
func (t *Thread) Last() (ThreadMessage, bool) {
	if len(t.messages) == 0 {
		return ThreadMessage{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// ServiceMessages converts the thread into the wire format expected by the
// completion service. A message with paired tool calls expands into one
// assistant record carrying the calls followed by one tool record per result,
// preserving call order. The slice is rebuilt on every invocation so callers
// can replay it as often as needed.
func (t *Thread) ServiceMessages() []Message {
	out := make([]Message, 0, len(t.messages))
	for _, msg := range t.messages {
		if len(msg.ToolCalls) > 0 && len(msg.ToolResults) > 0 {
			out = append(out, Message{
				Role:      msg.Role,
				Content:   msg.Content,
				ToolCalls: msg.ToolCalls,
			})
			for _, res := range msg.ToolResults {
				out = append(out, Message{
					Role:       RoleTool,
					ToolCallID: res.Call.ID,
					Name:       res.Call.Function.Name,
					Content:    fmt.Sprintf("%v", res.Result),
				})
			}
			continue
		}
		out = append(out, Message{Role: msg.Role, Content: msg.Content})
	}
	return out
}

// HistoryText renders a human-readable transcript of the thread, with tool
// calls and results indented under their parent message.
func (t *Thread) HistoryText() string {
	var lines []string
	for _, msg := range t.messages {
		ts := msg.Timestamp.Format("2006-01-02 15:04:05")
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", ts, msg.Role, msg.Content))
		for _, res := range msg.ToolResults {
			lines = append(lines, fmt.Sprintf("  └─ Tool Call: %s", res.Call.Function.Name))
			lines = append(lines, fmt.Sprintf("     Arguments: %s", res.Call.Function.Arguments))
			lines = append(lines, fmt.Sprintf("     Result: %v", res.Result))
		}
	}
	return strings.Join(lines, "\n")
}
