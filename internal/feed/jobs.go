package feed

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
)

// JobFile is the YAML document listing capture jobs.
//
//	jobs:
//	  - url: https://example.com
//	    withScroll: true
//	    scrollTimeout: 250
type JobFile struct {
	Jobs []JobSpec `yaml:"jobs"`
}

// JobSpec is one capture job. Unset fields take the capture defaults.
type JobSpec struct {
	URL                 string   `yaml:"url"`
	WithScroll          *bool    `yaml:"withScroll"`
	ScrollFactor        *float64 `yaml:"scrollFactor"`
	ScrollTimeout       *int     `yaml:"scrollTimeout"`
	RemoveFixedElements *bool    `yaml:"removeFixedElements"`
}

// Options converts the spec to capture options.
func (s JobSpec) Options() capture.Options {
	opts := capture.DefaultOptions(s.URL)
	if s.WithScroll != nil {
		opts.WithScroll = *s.WithScroll
	}
	if s.ScrollFactor != nil {
		opts.ScrollFactor = *s.ScrollFactor
	}
	if s.ScrollTimeout != nil {
		opts.ScrollTimeoutMs = *s.ScrollTimeout
	}
	if s.RemoveFixedElements != nil {
		opts.RemoveFixedElements = *s.RemoveFixedElements
	}
	return opts
}

// ParseJobs decodes a job file and validates every entry.
func ParseJobs(data []byte) ([]capture.Options, error) {
	var file JobFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse job file: %w", err)
	}
	if len(file.Jobs) == 0 {
		return nil, fmt.Errorf("job file lists no jobs")
	}

	jobs := make([]capture.Options, 0, len(file.Jobs))
	for i, spec := range file.Jobs {
		opts := spec.Options()
		if err := opts.Validate(); err != nil {
			return nil, fmt.Errorf("job %d: %w", i+1, err)
		}
		jobs = append(jobs, opts)
	}
	return jobs, nil
}

// LoadJobs reads and parses the job file at path.
func LoadJobs(path string) ([]capture.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}
	return ParseJobs(data)
}

// Repeat returns count jobs capturing url with scrolling and fixed-element
// removal enabled.
func Repeat(url string, count int) []capture.Options {
	jobs := make([]capture.Options, count)
	for i := range jobs {
		jobs[i] = capture.DefaultOptions(url)
		jobs[i].WithScroll = true
		jobs[i].RemoveFixedElements = true
	}
	return jobs
}
