package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"dinehall/internal/services"
)

// hideWebdriver masks the automation flag before any page script runs.
const hideWebdriver = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = window.chrome || {runtime: {}};
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});`

// ChromeLauncher starts Chrome through the DevTools protocol.
type ChromeLauncher struct{}

// Launch starts a Chrome process with the stealth flags applied. The session
// outlives ctx; only Close stops the process.
func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("disable-infobars", true),
		chromedp.WindowSize(opts.WindowWidth, opts.WindowHeight),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	s := &chromeSession{
		ctx:          browserCtx,
		cancel:       func() { browserCancel(); allocCancel() },
		waitTimeout:  opts.WaitTimeout,
		probeTimeout: opts.ProbeTimeout,
	}
	if s.waitTimeout <= 0 {
		s.waitTimeout = 10 * time.Second
	}
	if s.probeTimeout <= 0 {
		s.probeTimeout = 3 * time.Second
	}

	// The first Run starts the process.
	err := s.run(ctx, "launch", 3*s.waitTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(hideWebdriver).Do(ctx)
		return err
	}))
	if err != nil {
		s.cancel()
		return nil, err
	}
	return s, nil
}

type chromeSession struct {
	ctx          context.Context
	cancel       context.CancelFunc
	waitTimeout  time.Duration
	probeTimeout time.Duration
}

// run executes actions on the browser context bounded by timeout and by the
// caller's ctx.
func (s *chromeSession) run(ctx context.Context, op string, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	switch {
	case s.ctx.Err() != nil:
		return services.Wrap(services.ErrCrash, "browser", op, "browser context closed", err)
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, "browser", op, fmt.Sprintf("no result within %s", timeout), err)
	case Classify(err.Error()) == Crash:
		return services.Wrap(services.ErrCrash, "browser", op, "", err)
	default:
		return services.Wrap(services.ErrTransient, "browser", op, "", err)
	}
}

func queryOpts(q Query, all bool) []chromedp.QueryOption {
	if q.XPath {
		return []chromedp.QueryOption{chromedp.BySearch}
	}
	if all {
		return []chromedp.QueryOption{chromedp.ByQueryAll}
	}
	return []chromedp.QueryOption{chromedp.ByQuery}
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, "navigate", 3*s.waitTimeout, chromedp.Navigate(url))
}

func (s *chromeSession) Click(ctx context.Context, q Query) error {
	opts := append(queryOpts(q, false), chromedp.NodeVisible)
	return s.run(ctx, "click "+q.String(), s.waitTimeout, chromedp.Click(q.Selector, opts...))
}

func (s *chromeSession) ClickNth(ctx context.Context, q Query, index int) error {
	var nodes []*cdp.Node
	op := fmt.Sprintf("click %s[%d]", q, index)
	return s.run(ctx, op, s.waitTimeout,
		chromedp.Nodes(q.Selector, &nodes, append(queryOpts(q, true), chromedp.NodeVisible)...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if index < 0 || index >= len(nodes) {
				return services.Wrap(services.ErrNotFound, "browser", op, fmt.Sprintf("%d nodes matched", len(nodes)), nil)
			}
			return chromedp.MouseClickNode(nodes[index]).Do(ctx)
		}),
	)
}

func (s *chromeSession) WaitVisible(ctx context.Context, q Query) error {
	return s.run(ctx, "wait visible "+q.String(), s.waitTimeout, chromedp.WaitVisible(q.Selector, queryOpts(q, false)...))
}

func (s *chromeSession) WaitNotVisible(ctx context.Context, q Query) error {
	return s.run(ctx, "wait hidden "+q.String(), s.waitTimeout, chromedp.WaitNotVisible(q.Selector, queryOpts(q, false)...))
}

func (s *chromeSession) Texts(ctx context.Context, q Query) ([]string, error) {
	var nodes []*cdp.Node
	var texts []string
	err := s.run(ctx, "texts "+q.String(), s.waitTimeout,
		chromedp.Nodes(q.Selector, &nodes, append(queryOpts(q, true), chromedp.AtLeast(0))...),
		chromedp.ActionFunc(func(ctx context.Context) error {
			texts = make([]string, 0, len(nodes))
			for _, node := range nodes {
				var text string
				if err := chromedp.Text([]cdp.NodeID{node.NodeID}, &text, chromedp.ByNodeID).Do(ctx); err != nil {
					return err
				}
				texts = append(texts, strings.TrimSpace(text))
			}
			return nil
		}),
	)
	return texts, err
}

func (s *chromeSession) OuterHTML(ctx context.Context, q Query) (string, error) {
	var html string
	err := s.run(ctx, "outer html "+q.String(), s.waitTimeout, chromedp.OuterHTML(q.Selector, &html, queryOpts(q, false)...))
	return html, err
}

func (s *chromeSession) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := s.run(ctx, "screenshot", s.waitTimeout, chromedp.CaptureScreenshot(&buf))
	return buf, err
}

func (s *chromeSession) Jitter(ctx context.Context) error {
	dy := 80 + rand.IntN(320)
	x := float64(100 + rand.IntN(600))
	y := float64(100 + rand.IntN(400))
	return s.run(ctx, "jitter", s.waitTimeout,
		chromedp.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", dy), nil),
		chromedp.MouseEvent(input.MouseMoved, x, y),
		chromedp.MouseEvent(input.MouseMoved, x+float64(rand.IntN(40)), y+float64(rand.IntN(40))),
	)
}

func (s *chromeSession) Alive(ctx context.Context) bool {
	if s.ctx.Err() != nil {
		return false
	}
	var location string
	return s.run(ctx, "probe", s.probeTimeout, chromedp.Location(&location)) == nil
}

func (s *chromeSession) Close() error {
	err := chromedp.Cancel(s.ctx)
	s.cancel()
	return err
}
