package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/PageCapture/backend/internal/domain/capture"
	"github.com/GriffinCanCode/PageCapture/backend/internal/feed"
	"github.com/GriffinCanCode/PageCapture/backend/internal/infrastructure/logging"
	"github.com/GriffinCanCode/PageCapture/backend/internal/storage/localfs"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "Capture server base URL")
	jobsFile := flag.String("jobs", "", "YAML job file")
	url := flag.String("url", "", "Capture this URL instead of a job file")
	count := flag.Int("count", 1, "Times to capture -url")
	interval := flag.Duration("interval", time.Second, "Delay between submitted jobs")
	out := flag.String("out", "screenshots", "Directory for saved screenshots")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	logger := logging.NewDefault()
	if *dev {
		logger = logging.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Component("feed")

	jobs, err := loadJobs(*jobsFile, *url, *count)
	if err != nil {
		fmt.Fprintf(os.Stderr, "capture-feed: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f := feed.New(feed.Config{
		ServerURL:     *server,
		Interval:      *interval,
		HealthRetries: 10,
	}, localfs.New(*out), log)

	report, err := f.Run(ctx, jobs)
	log.Info("Feed finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("saved", len(report.Saved)),
		zap.Int("failed", len(report.Failures)),
		zap.String("dir", *out),
	)
	if err != nil {
		log.Error("Feed aborted", zap.Error(err))
		os.Exit(1)
	}
	if len(report.Failures) > 0 {
		os.Exit(1)
	}
}

func loadJobs(path, url string, count int) ([]capture.Options, error) {
	switch {
	case path != "" && url != "":
		return nil, fmt.Errorf("use either -jobs or -url")
	case path != "":
		return feed.LoadJobs(path)
	case url != "":
		if count < 1 {
			return nil, fmt.Errorf("-count must be at least 1")
		}
		jobs := feed.Repeat(url, count)
		if err := jobs[0].Validate(); err != nil {
			return nil, err
		}
		return jobs, nil
	default:
		return nil, fmt.Errorf("one of -jobs or -url is required")
	}
}
