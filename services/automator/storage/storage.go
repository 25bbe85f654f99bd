package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/xilidan/automator/pkg/gen"
	"github.com/xilidan/automator/services/automator/consts"
	"github.com/xilidan/automator/services/automator/entity"
)

var (
	ErrBusy     = errors.New("a run is already in progress")
	ErrNotFound = errors.New("run not found")
)

// Storage keeps runs in memory. At most one run is in flight at a time; finished
// runs stay available for lookup until they are pushed out by newer ones.
type Storage interface {
	Begin(ctx context.Context, filename string) (*entity.Run, error)
	SetStage(ctx context.Context, runID string, stage entity.Stage, state entity.StageState) error
	Finish(ctx context.Context, runID string, outcome entity.RunOutcome) (*entity.Run, error)
	Current(ctx context.Context) (*entity.Run, error)
	Get(ctx context.Context, runID string) (*entity.Run, error)
}

type storage struct {
	mu      sync.RWMutex
	ids     gen.UUIDGenerator
	now     func() time.Time
	current string
	runs    map[string]*entity.Run
	order   []string
}

func New() Storage {
	return &storage{
		ids:  gen.UUID(),
		now:  time.Now,
		runs: make(map[string]*entity.Run),
	}
}

// Begin registers a new run with every stage idle. It fails with ErrBusy while
// another run is unfinished.
func (s *storage) Begin(ctx context.Context, filename string) (*entity.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != "" {
		return nil, ErrBusy
	}

	run := &entity.Run{
		ID:        s.ids.NextString(),
		Filename:  filename,
		StartedAt: s.now(),
		Stages:    make(map[entity.Stage]entity.StageState, len(entity.Stages)),
	}
	for _, stage := range entity.Stages {
		run.Stages[stage] = entity.StateIdle
	}

	s.runs[run.ID] = run
	s.order = append(s.order, run.ID)
	s.current = run.ID
	s.evict()

	return clone(run), nil
}

func (s *storage) SetStage(ctx context.Context, runID string, stage entity.Stage, state entity.StageState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return ErrNotFound
	}
	run.Stages[stage] = state
	return nil
}

// Finish stores the outcome and frees the slot for the next run. Stages still
// marked running are marked failed.
func (s *storage) Finish(ctx context.Context, runID string, outcome entity.RunOutcome) (*entity.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}

	finished := s.now()
	run.FinishedAt = &finished
	run.Outcome = &outcome
	for stage, state := range run.Stages {
		if state == entity.StateRunning {
			run.Stages[stage] = entity.StateFailed
		}
	}
	if s.current == runID {
		s.current = ""
	}

	return clone(run), nil
}

// Current returns the in-flight run, or ErrNotFound when idle.
func (s *storage) Current(ctx context.Context) (*entity.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == "" {
		return nil, ErrNotFound
	}
	return clone(s.runs[s.current]), nil
}

func (s *storage) Get(ctx context.Context, runID string) (*entity.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(run), nil
}

// evict drops the oldest finished runs beyond the retention limit. Callers hold mu.
func (s *storage) evict() {
	for len(s.order) > consts.RecentRuns {
		id := s.order[0]
		if id == s.current {
			return
		}
		delete(s.runs, id)
		s.order = s.order[1:]
	}
}

func clone(run *entity.Run) *entity.Run {
	c := *run
	c.Stages = make(map[entity.Stage]entity.StageState, len(run.Stages))
	for k, v := range run.Stages {
		c.Stages[k] = v
	}
	if run.FinishedAt != nil {
		t := *run.FinishedAt
		c.FinishedAt = &t
	}
	if run.Outcome != nil {
		o := *run.Outcome
		c.Outcome = &o
	}
	return &c
}
