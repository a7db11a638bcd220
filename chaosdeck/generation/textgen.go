package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTextBaseURL = "https://api.openai.com/v1"

// ChatClient implements ContentGenerator against a chat-completions API.
type ChatClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

func NewChatClient(apiKey, baseURL string) *ChatClient {
	if baseURL == "" {
		baseURL = defaultTextBaseURL
	}
	return &ChatClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   "gpt-3.5-turbo",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *ChatClient) GenerateText(ctx context.Context, prompt string, maxTokens int) (string, error) {
	payload := chatRequest{
		Model:     c.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxTokens,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: text API returned status %d", ErrContentGeneration, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", ErrContentGeneration)
	}

	return strings.TrimSpace(chatResp.Choices[0].Message.Content), nil
}

func (c *ChatClient) GenerateStructuredCard(ctx context.Context, prompt string) (StructuredCard, error) {
	raw, err := c.GenerateText(ctx, prompt+" Respond with a single JSON object with keys name, rarity_hint, attack, health, ability.", 200)
	if err != nil {
		return StructuredCard{}, err
	}

	// Models occasionally wrap JSON in code fences
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var card StructuredCard
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &card); err != nil {
		return StructuredCard{}, fmt.Errorf("%w: malformed structured card: %v", ErrContentGeneration, err)
	}
	return card, nil
}
