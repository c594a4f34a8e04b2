/*
Package browser renders capture pages in Chrome over the DevTools protocol.

# Overview

One browser serves every job; each job gets its own tab. The browser is
either reached at RENDERER_CONTROL_URL or launched locally (headless by
default). An http control URL is resolved to its websocket debugger URL
through /json/version.

# Page lifecycle

 1. Open: blank tab, viewport override at device scale 1, a one-shot
    Page.loadEventFired waiter, then navigation.
 2. WaitLoaded: blocks on that waiter.
 3. Measure: document scroll width and height, window inner height.
 4. ScrollTo / StripFixedElements: page scripts.
 5. CaptureRect: JPEG clip in document coordinates.
 6. Close: closes the tab, even after the job context ended.

# Resilience

Open runs through a circuit breaker. After MaxFailures consecutive failures
it rejects for Timeout with resilience.ErrCircuitOpen, so jobs fail fast
while the browser is unreachable instead of holding dispatcher slots.
*/
package browser
