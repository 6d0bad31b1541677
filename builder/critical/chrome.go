package critical

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"path"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/spf13/afero"

	"github.com/pustelto/sitepipe/builder/headless"
)

// extractScript collects the rules that style anything visible above the
// fold, in stylesheet order. @font-face is always kept and @media blocks are
// kept when they apply to the current viewport.
const extractScript = `(() => {
  const fold = window.innerHeight;
  const out = [];
  const visible = (sel) => {
    let els;
    try { els = document.querySelectorAll(sel); } catch (e) { return true; }
    for (const el of els) {
      const r = el.getBoundingClientRect();
      if (r.top < fold) return true;
    }
    return false;
  };
  const strip = (sel) => {
    const s = sel.replace(/::?[a-zA-Z-]+(\([^)]*\))?/g, '').trim();
    return s === '' || /[>+~]$/.test(s) ? (s + ' *').trim() : s;
  };
  const walk = (rules) => {
    const kept = [];
    for (const rule of rules) {
      if (rule instanceof CSSFontFaceRule) {
        kept.push(rule.cssText);
      } else if (rule instanceof CSSMediaRule) {
        if (window.matchMedia(rule.media.mediaText).matches) {
          const inner = walk(rule.cssRules);
          if (inner.length) kept.push('@media ' + rule.media.mediaText + '{' + inner.join('') + '}');
        }
      } else if (rule instanceof CSSStyleRule) {
        const sels = rule.selectorText.split(',');
        if (sels.some((s) => /^\s*(html|body|:root)\b/.test(s) || visible(strip(s)))) {
          kept.push(rule.cssText);
        }
      }
    }
    return kept;
  };
  for (const sheet of document.styleSheets) {
    let rules;
    try { rules = sheet.cssRules; } catch (e) { continue; }
    if (sheet.ownerNode && sheet.ownerNode.hasAttribute('data-critical')) continue;
    out.push(...walk(rules));
  }
  return out.join('\n');
})()`

// ChromeExtractor loads pages in headless Chrome from a loopback HTTP server
// over the output filesystem, so root-relative stylesheet hrefs resolve.
type ChromeExtractor struct {
	orch   *headless.Orchestrator
	fs     afero.Fs
	root   string
	logger *slog.Logger

	once    sync.Once
	baseURL string
	server  *http.Server
	err     error
}

func NewChromeExtractor(orch *headless.Orchestrator, fs afero.Fs, root string, logger *slog.Logger) *ChromeExtractor {
	return &ChromeExtractor{orch: orch, fs: fs, root: root, logger: logger}
}

func (c *ChromeExtractor) start() error {
	c.once.Do(func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			c.err = fmt.Errorf("failed to listen: %w", err)
			return
		}
		c.server = &http.Server{Handler: http.FileServer(afero.NewHttpFs(c.fs).Dir(c.root))}
		go func() {
			if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				c.logger.Error("Page server stopped", "error", err)
			}
		}()
		c.baseURL = "http://" + ln.Addr().String()
	})
	return c.err
}

func (c *ChromeExtractor) Extract(ctx context.Context, p Page) (string, error) {
	if err := c.start(); err != nil {
		return "", err
	}
	tabCtx, cancel, err := c.orch.NewTab(ctx)
	if err != nil {
		return "", err
	}
	defer cancel()

	var css string
	err = chromedp.Run(tabCtx,
		emulation.SetDeviceMetricsOverride(int64(p.Width), int64(p.Height), 1, false),
		chromedp.Navigate(pageURL(c.baseURL, p.Rel)),
		chromedp.Evaluate(`document.fonts.ready.then(() => true)`, nil, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
			return ep.WithAwaitPromise(true)
		}),
		chromedp.Evaluate(extractScript, &css),
	)
	if err != nil {
		return "", fmt.Errorf("chrome: %w", err)
	}
	return css, nil
}

// pageURL escapes rel so names with spaces, '#' or '?' reach the right file.
func pageURL(base, rel string) string {
	return base + (&url.URL{Path: path.Clean("/" + rel)}).EscapedPath()
}

// Close stops the page server and the browser.
func (c *ChromeExtractor) Close() error {
	var err error
	if c.server != nil {
		err = c.server.Close()
	}
	c.orch.Stop()
	return err
}
