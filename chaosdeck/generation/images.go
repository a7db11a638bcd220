package generation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
)

// PlaceholderImageURL is served when generation never produces an image.
const PlaceholderImageURL = "https://placeholder.com/512x768"

const (
	defaultPollAttempts = 30
	defaultPollInterval = 5 * time.Second
	defaultMaxRegens    = 3
)

var errImagePending = errors.New("image not ready")

// ImageGenerator is the submit/poll surface of the external art service.
type ImageGenerator interface {
	Submit(ctx context.Context, prompt string) (jobID string, err error)
	// Poll returns the image URL once the job completes; ready is false
	// while the job is still running.
	Poll(ctx context.Context, jobID string) (url string, ready bool, err error)
}

// Validator optionally gates generated art. A non-nil error fails the
// image and triggers a regeneration attempt.
type Validator interface {
	Validate(ctx context.Context, imageURL, cardName string, rarity models.Rarity) error
}

// Poller owns the bounded retry/poll loop around an ImageGenerator.
// It never fails the caller: exhausted budgets degrade to the
// placeholder URL.
type Poller struct {
	gen       ImageGenerator
	validator Validator
	attempts  int
	interval  time.Duration
	maxRegens int
}

type PollerOption func(*Poller)

func WithPollBudget(attempts int, interval time.Duration) PollerOption {
	return func(p *Poller) {
		p.attempts = attempts
		p.interval = interval
	}
}

func WithValidator(v Validator) PollerOption {
	return func(p *Poller) { p.validator = v }
}

func WithMaxRegens(n int) PollerOption {
	return func(p *Poller) { p.maxRegens = n }
}

func NewPoller(gen ImageGenerator, opts ...PollerOption) *Poller {
	p := &Poller{
		gen:       gen,
		attempts:  defaultPollAttempts,
		interval:  defaultPollInterval,
		maxRegens: defaultMaxRegens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate submits the prompt and polls until an image is ready, the
// budget runs out, or ctx is done. When a validator rejects the result
// the whole submit/poll cycle reruns, up to maxRegens times.
func (p *Poller) Generate(ctx context.Context, prompt, cardName string, rarity models.Rarity) string {
	for regen := 0; regen < p.maxRegens; regen++ {
		url, err := p.generateOnce(ctx, prompt)
		if err != nil {
			slog.Warn("Image generation attempt failed",
				slog.String("type", "gen"),
				slog.Int("attempt", regen+1),
				slog.String("error", err.Error()))
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if p.validator != nil {
			if err := p.validator.Validate(ctx, url, cardName, rarity); err != nil {
				slog.Warn("Generated image failed validation",
					slog.String("type", "gen"),
					slog.Int("attempt", regen+1),
					slog.String("url", url),
					slog.String("error", err.Error()))
				continue
			}
		}

		return url
	}

	slog.Warn("Image generation exhausted, using placeholder",
		slog.String("type", "gen"),
		slog.String("card", cardName))
	return PlaceholderImageURL
}

func (p *Poller) generateOnce(ctx context.Context, prompt string) (string, error) {
	jobID, err := p.gen.Submit(ctx, prompt)
	if err != nil {
		return "", err
	}

	for i := 0; i < p.attempts; i++ {
		url, ready, err := p.gen.Poll(ctx, jobID)
		if err != nil {
			return "", err
		}
		if ready {
			return url, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.interval):
		}
	}

	return "", errImagePending
}
