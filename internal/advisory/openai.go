package advisory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/osanyin/herbal/pkg/logger"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-3.5-turbo"
	defaultOpenAITimeout = 30 * time.Second

	// Low temperature keeps verdicts deterministic across repeat checks.
	openAITemperature = 0.1
	openAIMaxTokens   = 400
)

// OpenAIConfig carries the credentials and knobs for the chat-completions API.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// OpenAIAnalyzer asks a chat-completion model for an interaction verdict and
// parses the structured JSON it is instructed to reply with.
type OpenAIAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	log     *zap.Logger
}

// NewOpenAIAnalyzer constructs an analyzer from config, applying defaults for
// anything unset. The API key is mandatory.
func NewOpenAIAnalyzer(cfg OpenAIConfig) (*OpenAIAnalyzer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("advisory: openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultOpenAIBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultOpenAITimeout
	}

	return &OpenAIAnalyzer{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     logger.WithModule("advisory.openai"),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type verdictPayload struct {
	Severity       string `json:"severity"`
	Mechanism      string `json:"mechanism"`
	Recommendation string `json:"recommendation"`
}

// AnalyzeInteraction posts the herb/drug pair to the chat-completions endpoint
// and extracts the JSON verdict from the reply. Transport failures and
// non-200 statuses map to ErrUnavailable.
func (a *OpenAIAnalyzer) AnalyzeInteraction(ctx context.Context, herbName, drugName string) (*Report, error) {
	body, err := json.Marshal(chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Herb: %s\nDrug: %s", herbName, drugName)},
		},
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("advisory: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("advisory: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.Warn("chat completion request failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		a.log.Warn("chat completion rejected",
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var reply chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(reply.Choices) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	verdict, err := parseVerdict(reply.Choices[0].Message.Content)
	if err != nil {
		a.log.Warn("unparseable verdict", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &Report{
		HerbName:       herbName,
		DrugName:       drugName,
		Severity:       verdict.Severity,
		Mechanism:      verdict.Mechanism,
		Recommendation: verdict.Recommendation,
		Provider:       "openai",
	}, nil
}

const systemPrompt = `You are a clinical pharmacology assistant. Given an herb and a drug,
assess their interaction. Respond with ONLY a JSON object:
{"severity":"none|low|moderate|high","mechanism":"...","recommendation":"..."}`

// parseVerdict pulls the JSON object out of the model reply, tolerating
// surrounding prose or markdown fences.
func parseVerdict(content string) (*verdictPayload, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		return nil, errors.New("no JSON object in reply")
	}

	var verdict verdictPayload
	if err := json.Unmarshal([]byte(content[start:end+1]), &verdict); err != nil {
		return nil, err
	}

	verdict.Severity = strings.ToLower(strings.TrimSpace(verdict.Severity))
	if !validSeverity(verdict.Severity) {
		return nil, fmt.Errorf("unexpected severity %q", verdict.Severity)
	}
	return &verdict, nil
}
