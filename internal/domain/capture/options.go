package capture

import (
	"encoding/json"
	"math"
	"net/url"
	"time"
)

const (
	DefaultScrollFactor    = 1.0
	DefaultScrollTimeoutMs = 500

	// FixedElementSettle is waited after fixed/sticky elements were stripped.
	FixedElementSettle = 500 * time.Millisecond
)

// Options describe one capture request. Wire names follow the extension
// protocol, so the scroll delay travels as "scrollTimeout" in milliseconds.
type Options struct {
	URL                 string  `json:"url"`
	WithScroll          bool    `json:"withScroll"`
	ScrollFactor        float64 `json:"scrollFactor"`
	ScrollTimeoutMs     int     `json:"scrollTimeout"`
	RemoveFixedElements bool    `json:"removeFixedElements"`
}

// DefaultOptions returns options for url with every other field defaulted.
func DefaultOptions(url string) Options {
	return Options{
		URL:             url,
		ScrollFactor:    DefaultScrollFactor,
		ScrollTimeoutMs: DefaultScrollTimeoutMs,
	}
}

// UnmarshalJSON applies defaults for fields missing from the payload.
func (o *Options) UnmarshalJSON(data []byte) error {
	type plain Options
	p := plain(DefaultOptions(""))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Options(p)
	return nil
}

// ScrollTimeout returns the per-segment settle delay.
func (o Options) ScrollTimeout() time.Duration {
	return time.Duration(o.ScrollTimeoutMs) * time.Millisecond
}

// Validate rejects options that can never produce a capture.
func (o Options) Validate() error {
	if o.URL == "" {
		return InvalidConfig("options", "url is required")
	}
	u, err := url.Parse(o.URL)
	if err != nil {
		return InvalidConfig("options", "url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return InvalidConfig("options", "url scheme %q not supported", u.Scheme)
	}
	if math.IsNaN(o.ScrollFactor) || math.IsInf(o.ScrollFactor, 0) || o.ScrollFactor <= 0 {
		return InvalidConfig("options", "scrollFactor must be > 0, got %v", o.ScrollFactor)
	}
	if o.ScrollTimeoutMs < 0 {
		return InvalidConfig("options", "scrollTimeout must be >= 0, got %d", o.ScrollTimeoutMs)
	}
	return nil
}
