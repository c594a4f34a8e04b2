package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrollOptions() Options {
	opts := DefaultOptions("https://example.com")
	opts.WithScroll = true
	return opts
}

func TestNewPlanWithoutScroll(t *testing.T) {
	plan, err := NewPlan(Geometry{PageWidth: 1280, PageHeight: 4321, ViewportHeight: 800}, DefaultOptions("https://example.com"))
	require.NoError(t, err)

	require.Len(t, plan.Steps, 1)
	assert.False(t, plan.Scroll)
	assert.Equal(t, 1280, plan.Width)
	assert.Equal(t, Step{OffsetY: 0, Height: 4321}, plan.Steps[0])
}

func TestNewPlanExample(t *testing.T) {
	opts := scrollOptions()
	opts.RemoveFixedElements = true

	plan, err := NewPlan(Geometry{PageWidth: 1000, PageHeight: 2500, ViewportHeight: 1000}, opts)
	require.NoError(t, err)

	var offsets, heights []int
	for _, s := range plan.Steps {
		offsets = append(offsets, s.OffsetY)
		heights = append(heights, s.Height)
		assert.Equal(t, 500*time.Millisecond, s.Settle)
	}
	assert.Equal(t, []int{0, 1000, 2000}, offsets)
	assert.Equal(t, []int{1000, 1000, 500}, heights)
	assert.Equal(t, 2500, plan.TotalHeight())

	assert.False(t, plan.Steps[0].StripFixed)
	assert.True(t, plan.Steps[1].StripFixed)
	assert.Equal(t, FixedElementSettle, plan.Steps[1].StripSettle)
	assert.False(t, plan.Steps[2].StripFixed)
}

func TestNewPlanHeightsSumToPage(t *testing.T) {
	tests := []struct {
		name     string
		height   int
		viewport int
		factor   float64
	}{
		{"exact multiple", 3000, 1000, 1},
		{"remainder", 2999, 1000, 1},
		{"page shorter than viewport", 300, 1000, 1},
		{"fractional factor", 5000, 777, 0.37},
		{"factor above one", 5000, 600, 1.5},
		{"one pixel step", 17, 1, 1},
		{"single pixel page", 1, 900, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := scrollOptions()
			opts.ScrollFactor = tt.factor
			opts.RemoveFixedElements = true

			plan, err := NewPlan(Geometry{PageWidth: 100, PageHeight: tt.height, ViewportHeight: tt.viewport}, opts)
			require.NoError(t, err)

			assert.Equal(t, tt.height, plan.TotalHeight())
			strips := 0
			prev := -1
			for _, s := range plan.Steps {
				assert.Greater(t, s.OffsetY, prev, "offsets must increase")
				assert.LessOrEqual(t, s.OffsetY+s.Height, tt.height)
				assert.Positive(t, s.Height)
				prev = s.OffsetY
				if s.StripFixed {
					strips++
				}
			}
			assert.LessOrEqual(t, strips, 1)
		})
	}
}

func TestNewPlanStripFiresOnce(t *testing.T) {
	opts := scrollOptions()
	opts.RemoveFixedElements = true

	plan, err := NewPlan(Geometry{PageWidth: 100, PageHeight: 10000, ViewportHeight: 1000}, opts)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 10)

	strips := 0
	for _, s := range plan.Steps {
		if s.StripFixed {
			strips++
		}
	}
	assert.Equal(t, 1, strips)
}

func TestNewPlanNoStripWhenDisabled(t *testing.T) {
	plan, err := NewPlan(Geometry{PageWidth: 100, PageHeight: 5000, ViewportHeight: 1000}, scrollOptions())
	require.NoError(t, err)

	for _, s := range plan.Steps {
		assert.False(t, s.StripFixed)
	}
}

func TestNewPlanHugeScrollFactorIsOneSegment(t *testing.T) {
	opts := scrollOptions()
	opts.ScrollFactor = 1e300
	require.NoError(t, opts.Validate())

	plan, err := NewPlan(Geometry{PageWidth: 100, PageHeight: 2500, ViewportHeight: 1000}, opts)
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)
	assert.Equal(t, 0, plan.Steps[0].OffsetY)
	assert.Equal(t, 2500, plan.Steps[0].Height)
}

func TestNewPlanInvalid(t *testing.T) {
	tiny := scrollOptions()
	tiny.ScrollFactor = 0.0001

	tests := []struct {
		name string
		geom Geometry
		opts Options
	}{
		{"zero step", Geometry{PageWidth: 100, PageHeight: 1000, ViewportHeight: 1000}, tiny},
		{"zero height", Geometry{PageWidth: 100, PageHeight: 0, ViewportHeight: 1000}, scrollOptions()},
		{"zero width", Geometry{PageWidth: 0, PageHeight: 10, ViewportHeight: 1000}, scrollOptions()},
		{"zero viewport", Geometry{PageWidth: 100, PageHeight: 10, ViewportHeight: 0}, scrollOptions()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlan(tt.geom, tt.opts)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))
		})
	}
}
