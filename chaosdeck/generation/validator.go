package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/chaosdeckai/chaosdeck/chaosdeck/database/models"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

const (
	minImageWidth  = 256
	minImageHeight = 384
)

// ChromeValidator gates generated art by loading it in a headless page
// and checking the decoded dimensions. Broken URLs and thumbnails from
// half-finished generations fail the gate.
type ChromeValidator struct {
	timeout time.Duration
}

func NewChromeValidator() *ChromeValidator {
	return &ChromeValidator{timeout: 30 * time.Second}
}

func (v *ChromeValidator) Validate(ctx context.Context, imageURL, cardName string, rarity models.Rarity) error {
	if imageURL == "" || imageURL == PlaceholderImageURL {
		return fmt.Errorf("no image to validate for %q", cardName)
	}

	allocCtx, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(allocCtx, v.timeout)
	defer cancelTimeout()

	var width, height int64
	script := fmt.Sprintf(`new Promise((resolve, reject) => {
		const img = new Image();
		img.onload = () => resolve([img.naturalWidth, img.naturalHeight]);
		img.onerror = () => reject(new Error("image failed to load"));
		img.src = %q;
	})`, imageURL)

	var dims []int64
	if err := chromedp.Run(timeoutCtx,
		chromedp.Navigate("about:blank"),
		chromedp.Evaluate(script, &dims, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
	); err != nil {
		return fmt.Errorf("image validation failed for %q: %w", cardName, err)
	}

	if len(dims) == 2 {
		width, height = dims[0], dims[1]
	}
	if width < minImageWidth || height < minImageHeight {
		return fmt.Errorf("image for %q too small: %dx%d", cardName, width, height)
	}

	return nil
}
