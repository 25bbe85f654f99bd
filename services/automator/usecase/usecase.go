package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/xilidan/automator/pkg/metrics"
	"github.com/xilidan/automator/services/automator/consts"
	"github.com/xilidan/automator/services/automator/entity"
)

// Backend performs the three remote stages. Implementations normalize every wire
// format into entity values.
type Backend interface {
	Transcribe(ctx context.Context, audio entity.AudioInput) (string, error)
	Summarize(ctx context.Context, transcript string) (string, error)
	ExtractActionItems(ctx context.Context, transcript string) ([]entity.ActionItem, error)
}

// Observer is told about every stage transition of a run. Calls for the two
// sibling stages may arrive from different goroutines.
type Observer interface {
	StageChanged(stage entity.Stage, state entity.StageState)
}

type ObserverFunc func(stage entity.Stage, state entity.StageState)

func (f ObserverFunc) StageChanged(stage entity.Stage, state entity.StageState) {
	f(stage, state)
}

type Usecase interface {
	Run(ctx context.Context, audio entity.AudioInput) entity.RunOutcome
	RunObserved(ctx context.Context, audio entity.AudioInput, obs Observer) entity.RunOutcome
}

type usecase struct {
	backend Backend
	log     *slog.Logger
}

// New returns the pipeline orchestrator. A nil backend makes every run fail with a
// configuration error without any network call.
func New(backend Backend, log *slog.Logger) Usecase {
	if log == nil {
		log = slog.Default()
	}
	return &usecase{
		backend: backend,
		log:     log,
	}
}

// ValidateAudio checks an upload before a run is started.
func ValidateAudio(audio entity.AudioInput, allowed []string) error {
	if !consts.FormatAllowed(audio.Format(), allowed) {
		return fmt.Errorf("%w: %q (allowed: %v)", entity.ErrUnsupportedFormat, audio.Format(), allowed)
	}
	if len(audio.Data) == 0 {
		return entity.ErrEmptyAudio
	}
	if len(audio.Data) > consts.MaxAudioSize {
		return fmt.Errorf("%w: %d bytes", entity.ErrAudioTooLarge, len(audio.Data))
	}
	return nil
}

func (u *usecase) Run(ctx context.Context, audio entity.AudioInput) entity.RunOutcome {
	return u.RunObserved(ctx, audio, nil)
}

func (u *usecase) RunObserved(ctx context.Context, audio entity.AudioInput, obs Observer) (outcome entity.RunOutcome) {
	log := u.log.With(slog.String("filename", audio.Filename))
	log.Info("run started", slog.Int("audio_size", len(audio.Data)))
	started := time.Now()
	metrics.RecordRunStart()

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", slog.Any("panic", r))
			outcome = totalFailure(entity.StageTranscribe, fmt.Errorf("%v", r))
		}
		metrics.RecordRunEnd(string(outcome.Kind))
		log.Info("run finished",
			slog.String("outcome", string(outcome.Kind)),
			slog.Int("failures", len(outcome.Failures)),
			slog.Duration("elapsed", time.Since(started)))
	}()

	notify := func(stage entity.Stage, state entity.StageState) {
		if obs != nil {
			obs.StageChanged(stage, state)
		}
	}

	if u.backend == nil {
		return totalFailure(entity.StageTranscribe, &entity.ConfigurationError{Field: "API_BASE", Msg: entity.MsgNotSet})
	}

	var transcript string
	err := u.stage(ctx, entity.StageTranscribe, notify, func(ctx context.Context) error {
		var err error
		transcript, err = u.backend.Transcribe(ctx, audio)
		if err == nil && transcript == "" {
			err = &entity.EmptyTranscriptionError{}
		}
		return err
	})
	if err != nil {
		log.Warn("transcription failed, run stopped", slog.String("error", err.Error()))
		return totalFailure(entity.StageTranscribe, err)
	}

	var (
		summary  string
		items    []entity.ActionItem
		sumErr   error
		itemsErr error
	)

	// a plain group: one sibling failing must not cancel the other
	var g errgroup.Group
	g.Go(func() error {
		sumErr = u.stage(ctx, entity.StageSummarize, notify, func(ctx context.Context) error {
			var err error
			summary, err = u.backend.Summarize(ctx, transcript)
			return err
		})
		return nil
	})
	g.Go(func() error {
		itemsErr = u.stage(ctx, entity.StageActionItems, notify, func(ctx context.Context) error {
			var err error
			items, err = u.backend.ExtractActionItems(ctx, transcript)
			return err
		})
		return nil
	})
	_ = g.Wait()

	outcome = entity.RunOutcome{
		Kind:       entity.OutcomeSuccess,
		Transcript: transcript,
	}
	if sumErr != nil {
		outcome.Failures = append(outcome.Failures, stageFailure(entity.StageSummarize, sumErr))
	} else {
		outcome.Summary = &summary
	}
	if itemsErr != nil {
		outcome.Failures = append(outcome.Failures, stageFailure(entity.StageActionItems, itemsErr))
	} else {
		outcome.ActionItems = items
	}
	if len(outcome.Failures) > 0 {
		outcome.Kind = entity.OutcomePartialFailure
	}
	return outcome
}

// stage runs fn as one pipeline stage: observer notifications, metrics, and a
// recover so that a panic in a sibling goroutine becomes that stage's error.
func (u *usecase) stage(ctx context.Context, stage entity.Stage, notify func(entity.Stage, entity.StageState), fn func(context.Context) error) (err error) {
	notify(stage, entity.StateRunning)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			u.log.Error("stage panicked", slog.String("stage", string(stage)), slog.Any("panic", r))
			err = fmt.Errorf("%s: %v", stage, r)
		}

		state := entity.StateDone
		if err != nil {
			state = entity.StateFailed
			u.log.Warn("stage failed",
				slog.String("stage", string(stage)),
				slog.String("kind", entity.ErrorKind(err)),
				slog.String("error", err.Error()))
		}
		metrics.RecordStage(string(stage), err == nil, entity.ErrorKind(err), time.Since(start).Seconds())
		notify(stage, state)
	}()

	return fn(ctx)
}

func stageFailure(stage entity.Stage, err error) entity.StageFailure {
	return entity.StageFailure{
		Stage:   stage,
		Reason:  err.Error(),
		Message: entity.UserMessage(err),
	}
}

func totalFailure(stage entity.Stage, err error) entity.RunOutcome {
	return entity.RunOutcome{
		Kind:     entity.OutcomeTotalFailure,
		Failures: []entity.StageFailure{stageFailure(stage, err)},
		Reason:   entity.UserMessage(err),
	}
}
