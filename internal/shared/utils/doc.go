// Package utils holds small request validation helpers shared by the
// HTTP and stream surfaces.
package utils
