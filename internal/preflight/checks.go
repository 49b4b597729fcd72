package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"dinehall/internal/config"
	"dinehall/internal/deps"
)

// CheckSite verifies that the menu site's landing page answers.
func CheckSite(ctx context.Context, baseURL string) Result {
	const name = "Menu site"

	base := strings.TrimSpace(baseURL)
	if base == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, base, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: summarizeHTTPError(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Result{Name: name, Detail: fmt.Sprintf("%s returned %d", base, resp.StatusCode)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", base)}
}

// CheckDirectoryAccess verifies that path is a directory the process can
// read, write, and traverse.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(reason string) Result {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %s)", path, reason)}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail("stat: " + err.Error())
	case !info.IsDir():
		return fail("is not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("insufficient permissions: " + err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path + " (read/write ok)"}
}

// chromeAlternates mirrors the binary names chromedp probes when no
// explicit path is configured.
var chromeAlternates = []string{"google-chrome-stable", "chromium", "chromium-browser", "chrome"}

// CheckSystemDeps evaluates the external binaries a scrape needs. An explicit
// browser.chrome_path is checked alone; otherwise common Chrome and Chromium
// names are accepted. Xvfb is reported as optional for visible runs.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	chrome := deps.Requirement{
		Name:        "Chrome",
		Command:     cfg.ChromeBinary(),
		Description: "Required for browser automation",
	}
	if strings.TrimSpace(cfg.Browser.ChromePath) == "" {
		chrome.Alternates = chromeAlternates
	}
	requirements := []deps.Requirement{chrome}
	if !cfg.Browser.Headless {
		requirements = append(requirements, deps.Requirement{
			Name:        "Xvfb",
			Command:     "Xvfb",
			Description: "Virtual display for visible browser runs without a desktop",
			Optional:    true,
		})
	}
	return deps.CheckBinaries(requirements)
}

func summarizeHTTPError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out (site unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (site unreachable)"
	}
	return err.Error()
}
