package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	config "github.com/xilidan/automator/config/automator"
	"github.com/xilidan/automator/services/automator/consts"
	"github.com/xilidan/automator/services/automator/entity"
	"github.com/xilidan/automator/services/automator/usecase"
)

const (
	// settleDelay gives writers time to finish a file before it is read.
	settleDelay = 500 * time.Millisecond
	queueSize   = 64
)

// Watcher runs the pipeline for every audio file dropped into the input
// directory, one file at a time, and writes the reports to the output directory.
type Watcher struct {
	input   string
	output  string
	formats []string
	usecase usecase.Usecase
	log     *slog.Logger
	fsw     *fsnotify.Watcher
	settle  time.Duration

	queue chan string
	wg    sync.WaitGroup
}

func New(cfg config.WatchConfig, formats []string, uc usecase.Usecase, log *slog.Logger) (*Watcher, error) {
	for _, dir := range []string{cfg.Input, cfg.Output} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(cfg.Input); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &Watcher{
		input:   cfg.Input,
		output:  cfg.Output,
		formats: formats,
		usecase: uc,
		log:     log,
		fsw:     fsw,
		settle:  settleDelay,
		queue:   make(chan string, queueSize),
	}, nil
}

// Start blocks until ctx is done. Files still queued at that point are dropped;
// the file being processed is finished first.
func (w *Watcher) Start(ctx context.Context) error {
	w.log.Info("file watcher started",
		slog.String("input", w.input),
		slog.String("output", w.output),
		slog.Any("formats", w.formats))

	w.wg.Add(1)
	go w.worker(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("waiting for ongoing processing to complete")
			w.wg.Wait()
			w.log.Info("file watcher stopped")
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !w.accepts(event.Name) {
				w.log.Debug("ignoring file", slog.String("path", event.Name))
				continue
			}

			w.log.Info("new recording detected", slog.String("path", event.Name))
			select {
			case w.queue <- event.Name:
			default:
				w.log.Warn("queue full, file skipped", slog.String("path", event.Name))
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.log.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func (w *Watcher) worker(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-w.queue:
			select {
			case <-time.After(w.settle):
			case <-ctx.Done():
				return
			}
			if err := w.Process(ctx, path); err != nil {
				w.log.Error("failed to process recording",
					slog.String("path", path),
					slog.String("error", err.Error()))
			}
		}
	}
}

// Process runs the pipeline for one file and writes its reports.
func (w *Watcher) Process(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}

	audio := entity.AudioInput{Filename: filepath.Base(path), Data: data}
	if err := usecase.ValidateAudio(audio, w.formats); err != nil {
		return err
	}

	outcome := w.usecase.Run(context.WithoutCancel(ctx), audio)

	md, yml, err := WriteReports(w.output, audio.Filename, outcome, time.Now())
	if err != nil {
		return err
	}
	w.log.Info("reports written",
		slog.String("outcome", string(outcome.Kind)),
		slog.String("markdown", md),
		slog.String("yaml", yml))
	return nil
}

func (w *Watcher) accepts(path string) bool {
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		return false
	}
	return consts.FormatAllowed(filepath.Ext(path), w.formats)
}
