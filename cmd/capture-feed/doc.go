/*
Command capture-feed submits screenshot jobs to a running capture server
and writes the results to a directory.

Usage:

	capture-feed -url https://example.com -count 3
	capture-feed -jobs jobs.yaml -out ./shots -interval 500ms

Each image is saved as screenshot-<unix-ms>.<ext>. The exit status is
non-zero when any job failed.
*/
package main
