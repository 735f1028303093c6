// Package browser drives a Chrome instance, running headed inside a virtual
// display, that renders the page a session is casting.
package browser

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/webcast/webcastd/internal/logging"
)

var log = logging.L("browser")

// ErrCookieSourceConflict is returned by Launch when both a cookie file and
// a persistent user-data directory are supplied; the two are mutually
// exclusive sources of session state.
var ErrCookieSourceConflict = errors.New("browser: cookies_path and user_data_dir are mutually exclusive")

const visibilitySpoofScript = `document.addEventListener('visibilitychange', () => {
	Object.defineProperty(document, 'hidden', { get() { return false } });
});`

// LaunchOptions configures one Controller.Launch call.
type LaunchOptions struct {
	URL           string
	Width, Height int
	CookiesPath   string        // optional: JSON array of rod-style cookie objects
	UserDataDir   string        // optional: enables a persistent profile
	ExtraHeaders  map[string]string
	WaitUntil     string        // "load", "domcontentloaded", "networkidle" (default)
	Timeout       time.Duration
}

// Controller owns the lifecycle of one browser rendering one page
// for one cast session.
type Controller struct {
	displayID string

	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// New returns a controller that will launch Chrome bound to the given
// X display identifier (DISPLAY is set in the launched process's environment
// so Chrome renders into the session's own virtual display, not a shared
// default).
func New(displayID string) *Controller {
	return &Controller{displayID: displayID}
}

// Launch starts Chrome on the controller's display, opens a page, and
// navigates it to opts.URL.
func (c *Controller) Launch(opts LaunchOptions) error {
	if opts.CookiesPath != "" && opts.UserDataDir != "" {
		return ErrCookieSourceConflict
	}
	if opts.Width <= 0 {
		opts.Width = 1920
	}
	if opts.Height <= 0 {
		opts.Height = 1080
	}
	if opts.WaitUntil == "" {
		opts.WaitUntil = "networkidle"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 25 * time.Second
	}

	l := launcher.New().
		Headless(false).
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Env(append(os.Environ(), "DISPLAY="+c.displayID)...)

	if opts.UserDataDir != "" {
		l = l.UserDataDir(opts.UserDataDir)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browser: launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("browser: connect to chrome: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		browser.MustClose()
		return fmt.Errorf("browser: open page: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.Width,
		Height: opts.Height,
	}); err != nil {
		browser.MustClose()
		return fmt.Errorf("browser: set viewport: %w", err)
	}

	if len(opts.ExtraHeaders) > 0 {
		headers := make([]string, 0, len(opts.ExtraHeaders)*2)
		for k, v := range opts.ExtraHeaders {
			headers = append(headers, k, v)
		}
		if _, err := page.SetExtraHeaders(headers); err != nil {
			browser.MustClose()
			return fmt.Errorf("browser: set extra headers: %w", err)
		}
	}

	if opts.CookiesPath != "" {
		if err := loadCookies(page, opts.CookiesPath); err != nil {
			browser.MustClose()
			return fmt.Errorf("browser: load cookies: %w", err)
		}
	}

	if _, err := page.EvalOnNewDocument(visibilitySpoofScript); err != nil {
		browser.MustClose()
		return fmt.Errorf("browser: install visibility spoof script: %w", err)
	}

	page = page.Timeout(opts.Timeout)
	if err := page.Navigate(opts.URL); err != nil {
		browser.MustClose()
		return fmt.Errorf("browser: navigate to %s: %w", opts.URL, err)
	}
	if err := waitUntil(page, opts.WaitUntil); err != nil {
		browser.MustClose()
		return fmt.Errorf("browser: wait for page load: %w", err)
	}

	c.launcher = l
	c.browser = browser
	c.page = page

	log.Info("browser launched", "display", c.displayID, "url", opts.URL)
	return nil
}

func waitUntil(page *rod.Page, mode string) error {
	switch mode {
	case "load":
		return page.WaitLoad()
	case "domcontentloaded":
		return page.WaitDOMStable(500*time.Millisecond, 0)
	default:
		return page.WaitIdle(2 * time.Second)
	}
}

func loadCookies(page *rod.Page, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return fmt.Errorf("parse cookie file: %w", err)
	}

	return page.SetCookies(cookies)
}

// Close tears down the page, browser, and launched Chrome process. Close is
// best-effort and swallows errors from an already-dead browser, matching the
// teardown style used by every other component in this package.
func (c *Controller) Close() {
	if c.browser != nil {
		if err := c.browser.Close(); err != nil {
			log.Warn("browser close failed", "display", c.displayID, "error", err)
		}
	}
	if c.launcher != nil {
		c.launcher.Kill()
	}
}
