// Package feed drives a capture server the way a browser extension would:
// it waits for /health, opens the stream endpoint, sends screenshot jobs at
// a fixed interval and stores every returned image.
package feed
