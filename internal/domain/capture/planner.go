package capture

import (
	"math"
	"time"
)

// Geometry is the measured size of a loaded page in CSS pixels.
type Geometry struct {
	PageWidth      int
	PageHeight     int
	ViewportHeight int
}

// Step is one planned capture.
type Step struct {
	OffsetY int
	Height  int
	// StripFixed asks for fixed/sticky elements to be removed before this
	// capture, followed by StripSettle.
	StripFixed  bool
	StripSettle time.Duration
	// Settle is waited after scrolling, before the capture.
	Settle time.Duration
}

// Plan is the ordered capture sequence for one page.
type Plan struct {
	Width  int
	Scroll bool
	Steps  []Step
}

// TotalHeight is the sum of all step heights.
func (p Plan) TotalHeight() int {
	total := 0
	for _, s := range p.Steps {
		total += s.Height
	}
	return total
}

// NewPlan computes the capture steps for a page of geometry g.
func NewPlan(g Geometry, opts Options) (Plan, error) {
	if g.PageWidth <= 0 || g.PageHeight <= 0 || g.ViewportHeight <= 0 {
		return Plan{}, InvalidConfig("plan", "page geometry must be positive, got %dx%d viewport %d",
			g.PageWidth, g.PageHeight, g.ViewportHeight)
	}

	if !opts.WithScroll {
		return Plan{
			Width: g.PageWidth,
			Steps: []Step{{OffsetY: 0, Height: g.PageHeight}},
		}, nil
	}

	// A step past the page is one segment; clamp before the int conversion.
	raw := math.Floor(float64(g.ViewportHeight) * opts.ScrollFactor)
	step := g.PageHeight
	if raw < float64(g.PageHeight) {
		step = int(raw)
	}
	if step < 1 {
		return Plan{}, InvalidConfig("plan", "scrollFactor %v yields step %d for viewport %d",
			opts.ScrollFactor, step, g.ViewportHeight)
	}

	plan := Plan{
		Width:  g.PageWidth,
		Scroll: true,
		Steps:  make([]Step, 0, (g.PageHeight+step-1)/step),
	}
	stripped := false
	for offset := 0; offset < g.PageHeight; offset += step {
		s := Step{
			OffsetY: offset,
			Height:  min(step, g.PageHeight-offset),
			Settle:  opts.ScrollTimeout(),
		}
		if offset > 0 && opts.RemoveFixedElements && !stripped {
			s.StripFixed = true
			s.StripSettle = FixedElementSettle
			stripped = true
		}
		plan.Steps = append(plan.Steps, s)
	}
	return plan, nil
}
