// Package capture defines the data model of a page capture job.
//
// A job is described by Options, executed by a Renderer as a sequence of
// Steps computed by the planner, and produces one Segment per step. The
// segments are later stitched into a single Image.
//
// Planning:
//   - withScroll=false: one step covering the whole page
//   - withScroll=true: steps of floor(viewport*scrollFactor) pixels, the last
//     one clamped so the heights sum to the page height exactly
//   - removeFixedElements: the first step with offset > 0 strips fixed and
//     sticky elements once, followed by a fixed settle delay
//
// Errors:
//   - ErrInvalidConfig: bad options or geometry, raised before any renderer call
//   - ErrRenderer: navigation, load or capture failure
//   - ErrEmptyInput, ErrFormatMismatch: stitcher contract violations
package capture
