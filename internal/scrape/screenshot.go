package scrape

import (
	"context"
	"os"
	"path/filepath"

	"dinehall/internal/browser"
	"dinehall/internal/logging"
	"dinehall/internal/textutil"
)

const screenshotStamp = "20060102-150405"

// captureScreenshot saves the viewport while the session is alive and
// scrape.screenshot_on_failure is set. Every failure is swallowed; the
// returned path is empty when nothing was written.
func (o *Orchestrator) captureScreenshot(ctx context.Context, session browser.Session, label string) string {
	if !o.cfg.Scrape.ScreenshotOnFailure || o.cfg.Paths.ScreenshotDir == "" {
		return ""
	}
	if session == nil || !o.browser.IsAlive(ctx, session) {
		return ""
	}
	logger := logging.WithContext(ctx, o.logger)
	data, err := session.Screenshot(ctx)
	if err != nil {
		logger.Debug("screenshot capture failed", logging.Error(err))
		return ""
	}
	if err := os.MkdirAll(o.cfg.Paths.ScreenshotDir, 0o755); err != nil {
		logger.Debug("screenshot directory unavailable", logging.Error(err))
		return ""
	}
	name := o.now().Format(screenshotStamp) + "-" + textutil.Slug(label) + ".png"
	path := filepath.Join(o.cfg.Paths.ScreenshotDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Debug("screenshot write failed", logging.Error(err))
		return ""
	}
	logger.Info("failure screenshot saved",
		logging.String("path", path),
		logging.Event("screenshot_saved"),
	)
	return path
}
