// SPDX-License-Identifier: Apache-2.0

// Package chat runs the session boundary: one free-text line per turn drives
// the behavior tree, and the blackboard's reserved content key becomes the
// reply.
package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/cxbxmxcx/agenticbt/pkg/blackboard"
	"github.com/cxbxmxcx/agenticbt/pkg/btree"
	"github.com/cxbxmxcx/agenticbt/pkg/errors"
)

// Replies reported to the user. Raw errors never surface here; they are
// observable only in logs.
const (
	// NoResponseReply is reported when the tree succeeds without producing
	// content.
	NoResponseReply = "No response generated."
	// FailedReply is the generic reply for a failed or exhausted turn.
	FailedReply = "Failed to generate a response."
)

// Loop drives one behavior tree through user turns.
type Loop struct {
	tree   *btree.Tree
	client *blackboard.Client
	prompt string
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithPrompt overrides the interactive input prompt.
func WithPrompt(prompt string) LoopOption {
	return func(l *Loop) { l.prompt = prompt }
}

// NewLoop binds a tree to a board. The loop writes the reserved question key
// and reads the reserved content key.
func NewLoop(tree *btree.Tree, board *blackboard.Board, opts ...LoopOption) (*Loop, error) {
	if tree == nil {
		return nil, errors.New(errors.CodeConfig, "chat loop needs a tree", nil)
	}
	if board == nil {
		return nil, errors.New(errors.CodeConfig, "chat loop needs a board", nil)
	}
	client := board.Client("chat-loop")
	client.RegisterKey(blackboard.KeyQuestion, blackboard.Write)
	client.RegisterKey(blackboard.KeyContent, blackboard.Read)

	l := &Loop{tree: tree, client: client, prompt: "> "}
	for _, opt := range opts {
		opt(l)
	}
	l.tree.Setup(context.Background())
	return l, nil
}

// Turn processes one user question: it lands on the question key, the tree
// is ticked until the root reaches a terminal status or the tick budget
// (node count + 1) runs out, and the reply is read back from the content
// key. Node states reset afterwards so the next turn starts fresh.
func (l *Loop) Turn(ctx context.Context, question string) string {
	defer l.tree.ResetNodes()

	if err := l.client.Set(blackboard.KeyQuestion, question); err != nil {
		slog.ErrorContext(ctx, "failed to set question", "error", err)
		return FailedReply
	}

	budget := len(l.tree.Nodes()) + 1
	status := btree.StatusInvalid
	for i := 0; i < budget; i++ {
		status = l.tree.Tick(ctx)
		if status.Terminal() {
			break
		}
	}

	if status != btree.StatusSuccess {
		slog.WarnContext(ctx, "turn did not succeed",
			"tree", l.tree.ID(), "status", status.String(), "ticks", l.tree.TickCount())
		return FailedReply
	}
	content := l.client.GetString(blackboard.KeyContent, NoResponseReply)
	if content == "" {
		return NoResponseReply
	}
	return content
}

// Run reads lines from in until EOF or an exit command, answering each turn
// on out.
func (l *Loop) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, l.prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		fmt.Fprintln(out, l.Turn(ctx, line))
	}
	return scanner.Err()
}
