package browser

import (
	"context"
	"time"
)

// Query addresses DOM nodes either by CSS selector or by XPath expression.
type Query struct {
	Selector string
	XPath    bool
}

// CSS returns a CSS selector query.
func CSS(selector string) Query { return Query{Selector: selector} }

// XPath returns an XPath query.
func XPath(expr string) Query { return Query{Selector: expr, XPath: true} }

func (q Query) String() string {
	if q.XPath {
		return "xpath:" + q.Selector
	}
	return q.Selector
}

// Session is a live browser automation handle. Every wait is bounded by the
// session's wait timeout or an earlier ctx deadline; a wait that expires
// returns an error wrapping services.ErrTimeout. Once a Session reports a
// crash it must be replaced through Manager.Restart.
type Session interface {
	Navigate(ctx context.Context, url string) error
	// Click clicks the first node matching q once it is visible.
	Click(ctx context.Context, q Query) error
	// ClickNth clicks the index-th node (0-based) matching q.
	ClickNth(ctx context.Context, q Query, index int) error
	WaitVisible(ctx context.Context, q Query) error
	WaitNotVisible(ctx context.Context, q Query) error
	// Texts returns the visible text of every node matching q in document
	// order. No match is not an error.
	Texts(ctx context.Context, q Query) ([]string, error)
	OuterHTML(ctx context.Context, q Query) (string, error)
	Screenshot(ctx context.Context) ([]byte, error)
	// Jitter performs a small scroll and mouse movement.
	Jitter(ctx context.Context) error
	// Alive reports whether the browser still answers; it never fails.
	Alive(ctx context.Context) bool
	Close() error
}

// LaunchOptions describes how a browser process is started.
type LaunchOptions struct {
	Headless     bool
	ExecPath     string
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	WaitTimeout  time.Duration
	ProbeTimeout time.Duration
}

// Launcher starts a browser process and returns a session bound to it.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Session, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, opts LaunchOptions) (Session, error)

// Launch calls f.
func (f LauncherFunc) Launch(ctx context.Context, opts LaunchOptions) (Session, error) {
	return f(ctx, opts)
}
