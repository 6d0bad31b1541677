package social

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/disintegration/imaging"

	"github.com/pustelto/sitepipe/builder/generators"
	"github.com/pustelto/sitepipe/builder/headless"
)

// Card is everything a Renderer needs for one image.
type Card struct {
	Entry   Entry
	Options CardOptions
	HTML    string
	Scale   int
	Quality int
}

// Renderer turns a card into JPEG bytes.
type Renderer interface {
	Render(ctx context.Context, card Card) ([]byte, error)
}

// waitForAssets resolves once fonts are ready and every <img> has loaded. An
// image that finished with no height, or fired error, rejects.
const waitForAssets = `Promise.all([
  document.fonts.ready,
  ...Array.from(document.querySelectorAll("img")).map((img) => {
    if (img.complete) {
      if (img.naturalHeight !== 0) return;
      throw new Error("Image failed to load: " + img.src);
    }
    return new Promise((resolve, reject) => {
      img.addEventListener("load", resolve);
      img.addEventListener("error", () => reject(new Error("Image failed to load: " + img.src)));
    });
  }),
]).then(() => true)`

// ChromeRenderer screenshots the card in one shared tab. Renders are
// serialized on that tab.
type ChromeRenderer struct {
	orch *headless.Orchestrator

	mu     sync.Mutex
	tab    context.Context
	cancel context.CancelFunc
	sized  bool
}

func NewChromeRenderer(orch *headless.Orchestrator) *ChromeRenderer {
	return &ChromeRenderer{orch: orch}
}

func (r *ChromeRenderer) Render(ctx context.Context, card Card) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tab == nil {
		tab, cancel, err := r.orch.NewTab(context.Background())
		if err != nil {
			return nil, err
		}
		if err := chromedp.Run(tab); err != nil {
			cancel()
			return nil, fmt.Errorf("failed to open tab: %w", err)
		}
		r.tab, r.cancel = tab, cancel
	}

	// The tab outlives ctx; cancelling ctx only abandons this card.
	runCtx, stop := context.WithCancel(r.tab)
	defer stop()
	unregister := context.AfterFunc(ctx, stop)
	defer unregister()

	var actions []chromedp.Action
	if !r.sized {
		actions = append(actions, emulation.SetDeviceMetricsOverride(int64(card.Options.Width), int64(card.Options.Height), float64(card.Scale), false))
	}
	var buf []byte
	actions = append(actions,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, card.HTML).Do(ctx)
		}),
		chromedp.Evaluate(waitForAssets, nil, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatJpeg).
				WithQuality(int64(card.Quality)).
				WithFromSurface(true).
				Do(ctx)
			return err
		}),
	)
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("chrome: %w", err)
	}
	r.sized = true
	return buf, nil
}

// Close releases the shared tab.
func (r *ChromeRenderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.tab, r.cancel = nil, nil
	}
	return nil
}

// CanvasRenderer draws the card without a browser.
type CanvasRenderer struct{}

func (CanvasRenderer) Render(_ context.Context, card Card) ([]byte, error) {
	img, err := generators.DrawSocialCard(generators.SocialCard{
		Title:       card.Entry.Title,
		Description: card.Entry.Description,
		Byline:      card.Options.Byline,
		Tags:        card.Entry.Tags,
		Link:        card.Options.Link,
		Width:       card.Options.Width,
		Height:      card.Options.Height,
		Scale:       float64(card.Scale),
	})
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(card.Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
