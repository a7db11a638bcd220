package campaign

import (
	"context"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chaosdeckai/chaosdeck/chaosdeck/gacha"
)

// ChoiceProvider supplies the player's decisions during a run. The
// service bounds each call with the configured timeout; errors and
// timeouts fall back to a random pick so a run never stalls.
type ChoiceProvider interface {
	// ChooseAction picks one of options actions (1-based) for the turn.
	ChooseAction(ctx context.Context, camp *models.Campaign, turn int, narrative string, options int) (int, error)
	// ChooseCard picks an index into the offered hand.
	ChooseCard(ctx context.Context, camp *models.Campaign, hand []*models.Card) (int, error)
}

// RandomProvider plays autonomously. It also serves as the fallback
// when a real provider times out.
type RandomProvider struct {
	rng gacha.RandomSource
}

func NewRandomProvider(rng gacha.RandomSource) *RandomProvider {
	if rng == nil {
		rng = gacha.DefaultRNG()
	}
	return &RandomProvider{rng: rng}
}

func (p *RandomProvider) ChooseAction(_ context.Context, _ *models.Campaign, _ int, _ string, options int) (int, error) {
	return 1 + p.rng.IntN(options), nil
}

func (p *RandomProvider) ChooseCard(_ context.Context, _ *models.Campaign, hand []*models.Card) (int, error) {
	return p.rng.IntN(len(hand)), nil
}

// waitChoice runs fn under the timeout and substitutes the fallback
// value when the provider errors out or the clock runs out.
func waitChoice(ctx context.Context, timeout time.Duration, fn func(context.Context) (int, error), fallback func() int) (choice int, timedOut bool) {
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		choice int
		err    error
	}
	done := make(chan result, 1)
	go func() {
		c, err := fn(timeoutCtx)
		done <- result{c, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return fallback(), true
		}
		return res.choice, false
	case <-timeoutCtx.Done():
		return fallback(), true
	}
}
