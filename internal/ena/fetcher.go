package ena

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// RetryPolicy bounds the download retry loop. Delays grow geometrically:
// InitialDelay, InitialDelay*Multiplier, ... before attempts 2..MaxAttempts.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
}

// DefaultRetryPolicy matches the archive-recommended schedule: five attempts
// with 2s, 4s, 8s and 16s pauses between them.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 5, InitialDelay: 2 * time.Second, Multiplier: 2}
}

// SleepFunc pauses for d or returns early with the context's error. Injectable
// so tests can assert the backoff schedule without waiting.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Fetcher downloads one assembly report per call into the configured local
// directory, retrying failed download attempts under its RetryPolicy. The
// caller owns deletion of the returned artifact.
type Fetcher struct {
	downloadDir string
	policy      RetryPolicy
	sleep       SleepFunc
	logger      *slog.Logger
}

// NewFetcher constructs a fetcher writing artifacts under downloadDir.
func NewFetcher(downloadDir string, policy RetryPolicy, logger *slog.Logger) *Fetcher {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{downloadDir: downloadDir, policy: policy, sleep: sleepContext, logger: logger}
}

// OverrideSleep swaps the backoff sleep function for tests and returns a restore function.
func (f *Fetcher) OverrideSleep(fn SleepFunc) func() {
	prev := f.sleep
	f.sleep = fn
	return func() { f.sleep = prev }
}

// Fetch resolves and downloads the sequence report for accession using the
// supplied session. It returns the local artifact path and true on success.
// Absence (unresolvable directory or report metadata, or retry exhaustion) is
// reported as ok=false with a nil error; a non-nil error means local storage
// failed or the context was cancelled.
func (f *Fetcher) Fetch(ctx context.Context, session Session, accession string) (string, bool, error) {
	dirPath, err := session.AssemblyDirPath(accession)
	if err != nil {
		f.logger.Warn("ena: cannot derive assembly directory", "accession", accession, "err", err)
		return "", false, nil
	}
	file, err := session.ReportFile(ctx, dirPath, accession)
	if err != nil {
		// Metadata resolution failure is plain absence: the report will not
		// appear mid-loop, so no retry schedule applies here.
		f.logger.Warn("ena: report file not resolvable", "accession", accession, "err", err)
		return "", false, nil
	}
	remotePath := dirPath + file.Name

	delay := f.policy.InitialDelay
	for attempt := 1; attempt <= f.policy.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := f.sleep(ctx, delay); err != nil {
				return "", false, err
			}
			delay = time.Duration(float64(delay) * f.policy.Multiplier)
		}
		localPath, fatal, err := f.attempt(ctx, session, remotePath, file)
		if err == nil {
			f.logger.Info("ena: assembly report downloaded", "accession", accession, "path", localPath)
			return localPath, true, nil
		}
		if fatal {
			return "", false, err
		}
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		f.logger.Warn("ena: download attempt failed", "accession", accession, "attempt", attempt, "err", err)
	}
	f.logger.Warn("ena: download attempts exhausted", "accession", accession, "attempts", f.policy.MaxAttempts)
	return "", false, nil
}

// attempt performs exactly one download into a fresh local file. The file name
// keeps the remote name as prefix with a unique suffix so concurrent fetches
// for the same accession never collide. fatal marks local-storage failures,
// which the retry loop must not absorb.
func (f *Fetcher) attempt(ctx context.Context, session Session, remotePath string, file FileInfo) (localPath string, fatal bool, err error) {
	tmp, err := os.CreateTemp(f.downloadDir, file.Name+".*")
	if err != nil {
		return "", true, fmt.Errorf("create artifact: %w", err)
	}
	localPath = tmp.Name()
	if err := tmp.Close(); err != nil {
		_ = os.Remove(localPath)
		return "", true, fmt.Errorf("close artifact: %w", err)
	}
	ok, err := session.Download(ctx, remotePath, localPath, file.Size)
	if err != nil {
		_ = os.Remove(localPath)
		return "", false, err
	}
	if !ok {
		_ = os.Remove(localPath)
		return "", false, fmt.Errorf("download %s: size mismatch", remotePath)
	}
	return localPath, false, nil
}
