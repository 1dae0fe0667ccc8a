package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/planora/planora/internal/capability"
	"github.com/planora/planora/internal/conversation"
)

// OpenAIConfig holds the settings for the LLM-backed decider.
type OpenAIConfig struct {
	APIKey      string        `json:"api_key" mapstructure:"api_key"`
	BaseURL     string        `json:"base_url" mapstructure:"base_url"`
	Model       string        `json:"model" mapstructure:"model"`
	Temperature float32       `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OpenAIDecider asks a chat model which capabilities to call next, exposing
// the offered cards as tool definitions. Transport failures come back wrapped
// in ErrUnavailable so the caller can retry.
type OpenAIDecider struct {
	client  *openai.Client
	model   string
	temp    float32
	maxTok  int
	timeout time.Duration
}

// NewOpenAIDecider builds a decider from config.
func NewOpenAIDecider(cfg OpenAIConfig) *OpenAIDecider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &OpenAIDecider{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   model,
		temp:    cfg.Temperature,
		maxTok:  cfg.MaxTokens,
		timeout: timeout,
	}
}

func (d *OpenAIDecider) Decide(ctx context.Context, log *conversation.Log, cards []capability.Card, directive string) (Decision, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       d.model,
		Temperature: d.temp,
		MaxTokens:   d.maxTok,
		Messages:    buildMessages(log, directive),
		Tools:       buildTools(cards),
	}
	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Decision{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return Decision{}, fmt.Errorf("%w: empty completion", ErrUnavailable)
	}
	msg := resp.Choices[0].Message

	dec := Decision{Narrative: msg.Content}
	for _, tc := range msg.ToolCalls {
		if tc.Type != openai.ToolTypeFunction {
			continue
		}
		args := map[string]any{}
		if tc.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
				return Decision{}, fmt.Errorf("%w: malformed tool arguments for %s: %v", ErrUnavailable, tc.Function.Name, err)
			}
		}
		dec.ToolCalls = append(dec.ToolCalls, conversation.ToolCall{
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}
	return dec, nil
}

func buildMessages(log *conversation.Log, directive string) []openai.ChatCompletionMessage {
	msgs := []openai.ChatCompletionMessage{{
		Role:    openai.ChatMessageRoleSystem,
		Content: directive,
	}}
	for _, t := range log.Turns() {
		switch t.Kind {
		case conversation.KindUserInput:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: t.Text,
			})
		case conversation.KindAgentOutput:
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: t.Text,
			})
		case conversation.KindToolResult:
			prefix := "Result"
			if t.IsError {
				prefix = "Error"
			}
			msgs = append(msgs, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("%s from %s:\n%s", prefix, t.Tool, t.Text),
			})
		}
	}
	return msgs
}

func buildTools(cards []capability.Card) []openai.Tool {
	tools := make([]openai.Tool, 0, len(cards))
	for _, c := range cards {
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        c.Name,
				Description: c.Description,
				Parameters:  c.InputSchema,
			},
		})
	}
	return tools
}
