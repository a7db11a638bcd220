package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
)

const defaultLeonardoBaseURL = "https://cloud.leonardo.ai/api/rest/v1"

// Diffusion models the art service rotates through per generation.
var leonardoModels = []string{
	"2067ae52-33fd-4a82-bb92-c2c55e7d2786", // AlbedoBase XL
	"b63f7119-31dc-4540-969b-2a9df997e173", // SDXL 0.9
	"5c232a9e-9061-4777-980a-ddc8e65647c6", // Leonardo Vision XL
	"1e60896f-3c26-4296-8ecc-53e2afecc132", // Leonardo Diffusion XL
}

// LeonardoClient implements ImageGenerator against the Leonardo REST API.
type LeonardoClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	rng     gacha.RandomSource
}

func NewLeonardoClient(apiKey, baseURL string) *LeonardoClient {
	if baseURL == "" {
		baseURL = defaultLeonardoBaseURL
	}
	return &LeonardoClient{
		apiKey:  apiKey,
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		rng:     gacha.DefaultRNG(),
	}
}

type leonardoSubmitRequest struct {
	Prompt         string `json:"prompt"`
	ModelID        string `json:"modelId"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	NumImages      int    `json:"num_images"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type leonardoSubmitResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
}

type leonardoPollResponse struct {
	GenerationsByPK struct {
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

func (c *LeonardoClient) Submit(ctx context.Context, prompt string) (string, error) {
	payload := leonardoSubmitRequest{
		Prompt:         prompt,
		ModelID:        leonardoModels[c.rng.IntN(len(leonardoModels))],
		Width:          512,
		Height:         768,
		NumImages:      1,
		NegativePrompt: "multiple images, blurry, low quality, collage, extra elements",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generations", bytes.NewReader(body))
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
		return "", fmt.Errorf("%w: submit returned status %d", ErrContentGeneration, resp.StatusCode)
	}

	var submitResp leonardoSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}
	if submitResp.SDGenerationJob.GenerationID == "" {
		return "", fmt.Errorf("%w: empty generation id", ErrContentGeneration)
	}

	return submitResp.SDGenerationJob.GenerationID, nil
}

func (c *LeonardoClient) Poll(ctx context.Context, jobID string) (string, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/generations/"+jobID, nil)
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}
	defer resp.Body.Close()

	var pollResp leonardoPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pollResp); err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrContentGeneration, err)
	}

	images := pollResp.GenerationsByPK.GeneratedImages
	if len(images) == 0 {
		return "", false, nil
	}
	return images[0].URL, true, nil
}
