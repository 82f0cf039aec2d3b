// Package progress persists calculation progress into a JSON sidecar file
// that other processes poll.
//
// Writers and readers race on the sidecar, so every update is a
// read-modify-write retried a few times. Progress is best effort: when the
// retries run out the update is dropped and the caller carries on.
package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Sidecar keys.
const (
	KeyValue = "calculation"
	KeyStage = "calculationStep"
)

const (
	defaultTries = 5
	defaultDelay = 10 * time.Millisecond
)

// Sink writes progress updates to the sidecar at Path. Other keys in the
// file are preserved.
type Sink struct {
	Path   string
	Tries  uint
	Delay  time.Duration
	Logger *slog.Logger
}

// New returns a sink with the default retry policy.
func New(path string, logger *slog.Logger) *Sink {
	return &Sink{Path: path, Tries: defaultTries, Delay: defaultDelay, Logger: logger}
}

// Emit records value and stage. Failures are logged at debug and otherwise
// ignored.
func (s *Sink) Emit(value float64, stage string) {
	if err := s.Update(context.Background(), value, stage); err != nil {
		s.logger().Debug("progress update dropped", "path", s.Path, "stage", stage, "error", err)
	}
}

// Update is Emit with the error returned.
func (s *Sink) Update(ctx context.Context, value float64, stage string) error {
	tries := s.Tries
	if tries == 0 {
		tries = defaultTries
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, s.write(value, stage)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(s.Delay)),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger().Debug("progress update failed, retrying", "path", s.Path, "error", err, "retry_in", next)
		}),
	)
	return err
}

// Read returns the current sidecar contents.
func Read(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc := map[string]any{}
	if len(data) == 0 {
		return doc, nil
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode progress file: %w", err)
	}
	return doc, nil
}

func (s *Sink) write(value float64, stage string) error {
	doc, err := Read(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		doc, err = map[string]any{}, nil
	}
	if err != nil {
		return err
	}
	doc[KeyValue] = value
	doc[KeyStage] = stage

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return backoff.Permanent(err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), "."+filepath.Base(s.Path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

func (s *Sink) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
