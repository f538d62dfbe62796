// Package agent answers questions over the ingested documents: it embeds
// the question, pulls nearby chunks from the vector store, and sends them
// as context to the chat model together with recent conversation turns.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tome/internal/memory"
	"tome/internal/vector"
)

const systemPrompt = "You are a helpful AI assistant with access to a knowledge base."

// Chat roles understood by the completion API.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLM produces one chat completion for an ordered message list.
type LLM interface {
	Model() string
	Complete(ctx context.Context, messages []Message) (string, error)
}

type Result struct {
	Answer    string
	Model     string
	ToolsUsed int
}

type Agent struct {
	llm    LLM
	tool   *Tool
	memory *memory.Store
	logger *QueryLogger
}

func New(llm LLM, tool *Tool, mem *memory.Store, logger *QueryLogger) *Agent {
	return &Agent{llm: llm, tool: tool, memory: mem, logger: logger}
}

// Model reports the chat model answers are generated with.
func (a *Agent) Model() string { return a.llm.Model() }

// Tools lists the names of the registered tools.
func (a *Agent) Tools() []string { return []string{a.tool.Name} }

// MemoryEnabled reports whether conversation turns are recorded.
func (a *Agent) MemoryEnabled() bool { return a.memory != nil }

// ClearMemory drops the history of one conversation. It reports whether
// the conversation existed.
func (a *Agent) ClearMemory(conversationID string) bool {
	if a.memory == nil {
		return false
	}
	return a.memory.Clear(conversationID)
}

// History returns the recorded turns of one conversation, oldest first.
func (a *Agent) History(conversationID string) []memory.Turn {
	if a.memory == nil {
		return nil
	}
	return a.memory.Get(conversationID)
}

// Query retrieves context for the question and asks the chat model. The
// retrieval tool is always invoked; ToolsUsed reports whether it
// contributed any chunks, so an empty store still yields an answer with
// ToolsUsed zero. A failed completion is returned as-is, no retry.
func (a *Agent) Query(ctx context.Context, question, conversationID string) (Result, error) {
	start := time.Now()

	matches, err := a.tool.Run(ctx, question)
	if err != nil {
		// Retrieval trouble must not take chat down; answer without context.
		slog.WarnContext(ctx, "retrieval failed, answering without context", "tool", a.tool.Name, "error", err)
		matches = nil
	}

	answer, err := a.llm.Complete(ctx, a.buildMessages(question, conversationID, matches))
	if err != nil {
		return Result{}, err
	}

	toolsUsed := 0
	if len(matches) > 0 {
		toolsUsed = 1
	}

	if a.memory != nil && conversationID != "" {
		a.memory.Append(conversationID, memory.RoleUser, question)
		a.memory.Append(conversationID, memory.RoleAssistant, answer)
	}

	if a.logger != nil {
		a.logger.Log(ctx, QueryLogEntry{
			Question:   question,
			NumResults: len(matches),
			ToolsUsed:  toolsUsed,
			Duration:   time.Since(start),
		})
	}

	slog.InfoContext(ctx, "query answered", "num_results", len(matches), "tools_used", toolsUsed, "duration", time.Since(start))

	return Result{Answer: answer, Model: a.llm.Model(), ToolsUsed: toolsUsed}, nil
}

func (a *Agent) buildMessages(question, conversationID string, matches []vector.Match) []Message {
	messages := []Message{{Role: RoleSystem, Content: systemPrompt}}

	if a.memory != nil && conversationID != "" {
		for _, turn := range a.memory.Get(conversationID) {
			messages = append(messages, Message{Role: turn.Role, Content: turn.Content})
		}
	}

	content := question
	if len(matches) > 0 {
		content = "Context from the knowledge base:\n\n" + contextBlock(matches) + "\n\nQuestion: " + question
	}
	return append(messages, Message{Role: RoleUser, Content: content})
}

func contextBlock(matches []vector.Match) string {
	sections := make([]string, len(matches))
	for i, m := range matches {
		sections[i] = fmt.Sprintf("Result %d:\nSource: %s\nContent: %s\n", i+1, m.Source, m.Content)
	}
	return strings.Join(sections, "\n---\n")
}
