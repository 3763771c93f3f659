// Package planner is the boundary to the upstream text-generation
// collaborator. It sends the flattened document text and an editing
// instruction to an OpenAI-compatible endpoint and parses the returned
// change-operation array. Deciding what to change stays on the other side
// of this boundary; the planner never interprets the operations itself.
package planner

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/landmark-intel/docpatch/internal/config"
	"github.com/landmark-intel/docpatch/internal/engine"
)

const systemPrompt = `You are a document editing assistant. Given a document's text and an instruction, respond with ONLY a JSON array of edit operations. Each element must be one of:
{"type":"replace_all","old":"...","new":"..."}
{"type":"replace_value","context":"...","old":"...","new":"..."}
{"type":"replace_section","find":"...","replace":"..."}
{"type":"add_after","anchor":"...","content":"..."}
Copy "old", "find", "context" and "anchor" values verbatim from the document text. Do not wrap the array in markdown or commentary.`

type Planner struct {
	client *openai.Client
	cfg    config.PlannerConfig
	logger *zap.Logger
}

func New(cfg config.PlannerConfig, logger *zap.Logger) (*Planner, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("planner requires an API key (set planner.api_key or OPENAI_API_KEY)")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		// The client's API suffixes start with a slash; a trailing slash
		// here would produce a double slash in request URLs.
		clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		logger.Debug("planner using custom base URL", zap.String("base_url", clientConfig.BaseURL))
	}

	return &Planner{
		client: openai.NewClientWithConfig(clientConfig),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Plan asks the model for the operations implementing instruction against
// documentText.
func (p *Planner) Plan(ctx context.Context, documentText, instruction string) ([]engine.Op, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.cfg.Model,
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Document text:\n---\n%s\n---\n\nInstruction: %s",
					documentText, instruction),
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("planner request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("planner returned no choices")
	}

	content := stripFences(resp.Choices[0].Message.Content)
	ops, err := engine.ParseOps([]byte(content))
	if err != nil {
		return nil, fmt.Errorf("planner returned unparseable operations: %w", err)
	}

	p.logger.Info("planner produced operations",
		zap.Int("count", len(ops)),
		zap.String("model", p.cfg.Model))
	return ops, nil
}

// stripFences removes a markdown code fence if the model wrapped its answer
// in one despite the prompt.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
