// Package playback loops frame sequences onto drawing surfaces. Each target
// owns at most one timer; starting a target again replaces its session.
package playback

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"

	"github.com/ivlev/spritegrid/internal/animation"
)

var (
	ErrEmptySequence = errors.New("playback needs at least one frame")
	ErrInvalidFPS    = errors.New("fps must be positive")
	ErrNoSource      = errors.New("playback needs a source image")
	ErrNotPlaying    = errors.New("target is not playing")
)

// Surface is where frames are rendered. Calls arrive from timer goroutines
// while the engine holds its lock, so implementations must not call back
// into the engine.
type Surface interface {
	Resize(w, h int)
	Draw(src image.Image, from, to image.Rectangle)
	Clear()
}

// Target addresses one playback session.
type Target struct {
	EntityID  string
	Animation string
}

// Preview is the target for unsaved sequences.
var Preview = Target{}

func (t Target) String() string {
	if t == Preview {
		return "preview"
	}
	return t.EntityID + "/" + t.Animation
}

// State is a snapshot of one session. Index is the next frame to render.
type State struct {
	Sequence []animation.Frame
	Index    int
	Playing  bool
	FPS      float64
}

type session struct {
	state   State
	src     image.Image
	surface Surface
	timer   Timer
	gen     uint64
}

type Engine struct {
	mu       sync.Mutex
	sched    Scheduler
	logger   *slog.Logger
	sessions map[Target]*session
	gen      uint64
}

type Option func(*Engine)

func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		sched:    RealScheduler{},
		logger:   slog.Default(),
		sessions: make(map[Target]*session),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Start begins looping seq from src onto surface. A session already running
// for t is stopped first. The first frame renders on a tick scheduled
// without delay.
func (e *Engine) Start(t Target, src image.Image, seq []animation.Frame, fps float64, surface Surface) error {
	switch {
	case len(seq) == 0:
		return ErrEmptySequence
	case fps <= 0:
		return fmt.Errorf("%w: %v", ErrInvalidFPS, fps)
	case src == nil:
		return ErrNoSource
	case surface == nil:
		return errors.New("playback needs a surface")
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.stopLocked(t)

	e.gen++
	s := &session{
		state: State{
			Sequence: append([]animation.Frame(nil), seq...),
			Playing:  true,
			FPS:      fps,
		},
		src:     src,
		surface: surface,
		gen:     e.gen,
	}
	e.sessions[t] = s
	gen := s.gen
	s.timer = e.sched.AfterFunc(0, func() { e.tick(t, gen) })
	e.logger.Debug("playback started", "target", t.String(), "frames", len(seq), "fps", fps)
	return nil
}

// Stop cancels t's timer and clears its surface. Stopping an idle target is
// a no-op.
func (e *Engine) Stop(t Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(t)
}

// StopAll stops every session.
func (e *Engine) StopAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for t := range e.sessions {
		e.stopLocked(t)
	}
}

func (e *Engine) stopLocked(t Target) {
	s, ok := e.sessions[t]
	if !ok {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.surface.Clear()
	delete(e.sessions, t)
	e.logger.Debug("playback stopped", "target", t.String())
}

// SetFPS changes the rate of a running session from the next tick on.
func (e *Engine) SetFPS(t Target, fps float64) error {
	if fps <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidFPS, fps)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[t]
	if !ok {
		return ErrNotPlaying
	}
	s.state.FPS = fps
	return nil
}

// State returns a copy of t's session; a stopped target reports Playing false.
func (e *Engine) State(t Target) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[t]
	if !ok {
		return State{}
	}
	st := s.state
	st.Sequence = append([]animation.Frame(nil), s.state.Sequence...)
	return st
}

// Targets lists the running sessions.
func (e *Engine) Targets() []Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Target, 0, len(e.sessions))
	for t := range e.sessions {
		out = append(out, t)
	}
	return out
}

func (e *Engine) tick(t Target, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[t]
	if !ok || s.gen != gen || !s.state.Playing {
		return
	}

	f := s.state.Sequence[s.state.Index]
	s.surface.Resize(f.W, f.H)
	s.surface.Draw(s.src, f.Rect(), image.Rect(0, 0, f.W, f.H))
	s.state.Index = (s.state.Index + 1) % len(s.state.Sequence)

	s.timer = e.sched.AfterFunc(period(s.state.FPS), func() { e.tick(t, gen) })
}
