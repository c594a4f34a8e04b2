package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/resilience"
)

// Config configures the browser connection.
type Config struct {
	// ControlURL is a DevTools websocket URL, or an http address whose
	// /json/version names one. Empty launches a local browser.
	ControlURL     string
	Headless       bool
	ViewportWidth  int
	ViewportHeight int
	JPEGQuality    int
	Breaker        resilience.Settings
}

// DefaultConfig returns a headless 1280x800 setup.
func DefaultConfig() Config {
	return Config{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 800,
		JPEGQuality:    75,
		Breaker: resilience.Settings{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
	}
}

// Renderer opens capture pages in one shared browser.
type Renderer struct {
	cfg      Config
	logger   *zap.Logger
	browser  *rod.Browser
	launcher *launcher.Launcher
	breaker  *resilience.Breaker

	// open is replaced in tests.
	open func(ctx context.Context, url string) (capture.Page, error)

	closeOnce sync.Once
	closeErr  error
}

// New connects to the configured browser, launching one if needed.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Renderer, error) {
	r := newRenderer(cfg, logger)
	logger = r.logger

	controlURL := cfg.ControlURL
	if controlURL == "" {
		// Not bound to ctx: a cancelled launcher context kills the process.
		r.launcher = launcher.New().Headless(cfg.Headless)
		u, err := r.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	} else {
		u, err := ResolveControlURL(ctx, resty.New().SetTimeout(10*time.Second), controlURL)
		if err != nil {
			return nil, err
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		r.killLauncher()
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	r.browser = browser
	r.open = r.openPage

	logger.Info("Browser connected",
		zap.String("control_url", controlURL),
		zap.Bool("launched", r.launcher != nil),
	)
	return r, nil
}

func newRenderer(cfg Config, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = def.ViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = def.ViewportHeight
	}
	if cfg.JPEGQuality <= 0 || cfg.JPEGQuality > 100 {
		cfg.JPEGQuality = def.JPEGQuality
	}

	settings := cfg.Breaker
	if settings.OnStateChange == nil {
		settings.OnStateChange = func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state change",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
	}

	return &Renderer{
		cfg:     cfg,
		logger:  logger,
		breaker: resilience.New("browser", settings),
	}
}

// Open creates a tab, applies the viewport, arms the load waiter and
// navigates. Repeated failures trip the breaker and later calls fail fast.
func (r *Renderer) Open(ctx context.Context, url string) (capture.Page, error) {
	var p capture.Page
	err := r.breaker.Execute(func() error {
		var err error
		p, err = r.open(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// BreakerState reports the state of the page open breaker.
func (r *Renderer) BreakerState() resilience.State {
	return r.breaker.State()
}

func (r *Renderer) openPage(ctx context.Context, url string) (capture.Page, error) {
	tab, err := r.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	// Closing must work after the job context is gone.
	p := &page{
		tab:     tab,
		base:    tab.Context(context.Background()),
		quality: r.cfg.JPEGQuality,
	}

	err = tab.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             r.cfg.ViewportWidth,
		Height:            r.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	// Armed before navigating so a fast load is not missed.
	p.loaded = tab.WaitEvent(&proto.PageLoadEventFired{})

	if err := tab.Navigate(url); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("navigate: %w", err)
	}
	return p, nil
}

// Close closes the browser and stops a launched process.
func (r *Renderer) Close() error {
	r.closeOnce.Do(func() {
		if r.browser != nil {
			r.closeErr = r.browser.Close()
		}
		r.killLauncher()
	})
	return r.closeErr
}

func (r *Renderer) killLauncher() {
	if r.launcher != nil {
		r.launcher.Kill()
		r.launcher.Cleanup()
	}
}
