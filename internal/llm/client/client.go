package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

const claudeMaxTokens = 8192

// LLMClient wraps one configured chat model. The core treats it as an
// opaque streaming capability: every StreamChat invocation terminates with
// either io.EOF on the reader (done) or an error.
type LLMClient struct {
	chatModel  einomodel.BaseChatModel
	providerID string
	apiName    string
	baseURL    string
}

// LocalModelOptions configures a model served by an OpenAI-compatible local
// endpoint (Ollama, LM Studio, llama.cpp server). No API key is needed.
type LocalModelOptions struct {
	Model   string
	BaseURL string
}

type OpenAIModelOptions struct {
	Model           string
	ReasoningEffort string
}

type ClaudeModelOptions struct {
	Model    string
	Thinking bool
}

type GeminiModelOptions struct {
	Model    string
	Thinking bool
}

// NewLocalClient connects to the local inference server through the OpenAI
// wire protocol.
func NewLocalClient(ctx context.Context, opts LocalModelOptions) (*LLMClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("local endpoint base URL is required")
	}
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: baseURL,
		APIKey:  "local",
		Model:   opts.Model,
	})
	if err != nil {
		log.Printf("Error creating local client: %v", err)
		return nil, err
	}
	return &LLMClient{chatModel: chatModel, providerID: "local", apiName: opts.Model, baseURL: baseURL}, nil
}

func NewOpenAIClient(ctx context.Context, key string, opts OpenAIModelOptions) (*LLMClient, error) {
	chatModel, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		APIKey: key,
		Model:  opts.Model,
	})
	if err != nil {
		log.Printf("Error creating OpenAI client: %v", err)
		return nil, err
	}
	return &LLMClient{chatModel: chatModel, providerID: "openai", apiName: opts.Model}, nil
}

func NewClaudeClient(ctx context.Context, key string, opts ClaudeModelOptions) (*LLMClient, error) {
	chatModel, err := claude.NewChatModel(ctx, &claude.Config{
		APIKey:    key,
		Model:     opts.Model,
		MaxTokens: claudeMaxTokens,
	})
	if err != nil {
		log.Printf("Error creating Claude client: %v", err)
		return nil, err
	}
	return &LLMClient{chatModel: chatModel, providerID: "anthropic", apiName: opts.Model}, nil
}

func NewGeminiClient(ctx context.Context, key string, opts GeminiModelOptions) (*LLMClient, error) {
	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Printf("Error creating Gemini client: %v", err)
		return nil, err
	}
	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client: genaiClient,
		Model:  opts.Model,
	})
	if err != nil {
		log.Printf("Error creating Gemini chat model: %v", err)
		return nil, err
	}
	return &LLMClient{chatModel: chatModel, providerID: "gemini", apiName: opts.Model}, nil
}

func (c *LLMClient) ProviderID() string { return c.providerID }
func (c *LLMClient) APIName() string    { return c.apiName }

// StreamChat starts one streaming completion over the given conversation.
// The returned reader yields content fragments in order and terminates with
// io.EOF; callers own closing it.
func (c *LLMClient) StreamChat(ctx context.Context, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	if c == nil || c.chatModel == nil {
		return nil, fmt.Errorf("chat model not initialized")
	}
	reader, err := c.chatModel.Stream(ctx, messages)
	if err != nil {
		return nil, err
	}
	if reader == nil {
		return nil, fmt.Errorf("model returned nil stream reader")
	}
	return reader, nil
}

// HealthStatus reports endpoint reachability plus whether the configured
// model is actually served.
type HealthStatus struct {
	Reachable      bool   `json:"reachable"`
	ModelAvailable bool   `json:"modelAvailable"`
	Detail         string `json:"detail,omitempty"`
}

// HealthCheck probes the endpoint. For the local provider it lists the
// server's models over HTTP; cloud providers are assumed reachable once the
// client constructed, since probing them costs tokens.
func (c *LLMClient) HealthCheck(ctx context.Context) HealthStatus {
	if c.providerID != "local" {
		return HealthStatus{Reachable: true, ModelAvailable: true}
	}
	return LocalEndpointHealth(ctx, c.baseURL, c.apiName)
}

// LocalEndpointHealth queries {base}/models on an OpenAI-compatible server.
func LocalEndpointHealth(ctx context.Context, baseURL, model string) HealthStatus {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return HealthStatus{Detail: "no base URL configured"}
	}

	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, baseURL+"/models", nil)
	if err != nil {
		return HealthStatus{Detail: err.Error()}
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return HealthStatus{Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return HealthStatus{Reachable: true, Detail: fmt.Sprintf("endpoint returned %d", resp.StatusCode)}
	}

	var listing struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return HealthStatus{Reachable: true, Detail: "malformed model listing"}
	}
	for _, entry := range listing.Data {
		if entry.ID == model {
			return HealthStatus{Reachable: true, ModelAvailable: true}
		}
	}
	return HealthStatus{Reachable: true, Detail: fmt.Sprintf("model %s not served", model)}
}
