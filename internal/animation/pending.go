package animation

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ivlev/spritegrid/internal/analyzer"
	"github.com/ivlev/spritegrid/internal/classifier"
	"github.com/ivlev/spritegrid/internal/grouping"
)

var (
	// ErrEmptySelection is returned when an add would contribute no frames.
	ErrEmptySelection = errors.New("no sprites selected")
	// ErrEmptyAnimationSet is returned when saving a set without frames.
	ErrEmptyAnimationSet = errors.New("no animations to save")
	// ErrMissingImageReference is returned when saving before a sheet is stored.
	ErrMissingImageReference = errors.New("no stored spritesheet to reference")
	// ErrInvalidName is returned for blank animation or entity names.
	ErrInvalidName = errors.New("name is required")
)

// PendingSet is the curator's not-yet-saved name -> frames mapping. Names keep
// their insertion order. It is not safe for concurrent use.
type PendingSet struct {
	order []string
	seqs  map[string][]Frame
}

// NewPendingSet returns an empty set.
func NewPendingSet() *PendingSet {
	return &PendingSet{seqs: make(map[string][]Frame)}
}

// Len returns the number of names in the set.
func (p *PendingSet) Len() int { return len(p.order) }

// Names returns the names in insertion order.
func (p *PendingSet) Names() []string {
	return append([]string(nil), p.order...)
}

// Frames returns a copy of the sequence stored under name.
func (p *PendingSet) Frames(name string) []Frame {
	return cloneFrames(p.seqs[name])
}

// Append adds frames to the end of name's sequence, creating it if needed.
func (p *PendingSet) Append(name string, frames ...Frame) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrInvalidName
	}
	if len(frames) == 0 {
		return ErrEmptySelection
	}
	if _, ok := p.seqs[name]; !ok {
		p.order = append(p.order, name)
	}
	p.seqs[name] = append(p.seqs[name], cloneFrames(frames)...)
	return nil
}

// AddSelection converts the selected boxes to frames and appends them to name.
// Indices are applied in ascending order, duplicates once. An out-of-range
// index rejects the whole call without changing the set.
func (p *PendingSet) AddSelection(name string, boxes []analyzer.BoundingBox, selected []int) (int, error) {
	if strings.TrimSpace(name) == "" {
		return 0, ErrInvalidName
	}

	uniq := make(map[int]struct{}, len(selected))
	idx := make([]int, 0, len(selected))
	for _, i := range selected {
		if i < 0 || i >= len(boxes) {
			return 0, fmt.Errorf("sprite index %d out of range [0,%d)", i, len(boxes))
		}
		if _, dup := uniq[i]; dup {
			continue
		}
		uniq[i] = struct{}{}
		idx = append(idx, i)
	}
	if len(idx) == 0 {
		return 0, ErrEmptySelection
	}
	sort.Ints(idx)

	frames := make([]Frame, len(idx))
	for j, i := range idx {
		frames[j] = FrameFromBox(boxes[i])
	}
	if err := p.Append(name, frames...); err != nil {
		return 0, err
	}
	return len(frames), nil
}

// ApplyGroups writes each labelled group as its own sequence, replacing any
// sequence already stored under that label. Unlabelled groups go to "unknown".
// When the label is a classifier profile, its frame entries are copied onto
// the frames by position.
func (p *PendingSet) ApplyGroups(groups []grouping.Group) {
	for _, g := range groups {
		if len(g.Members) == 0 {
			continue
		}
		name := strings.TrimSpace(g.Label)
		if name == "" {
			name = grouping.UnknownLabel
		}
		frames := make([]Frame, len(g.Members))
		for i, b := range g.Members {
			frames[i] = FrameFromBox(b)
		}
		if prof, ok := classifier.ParseProfile(name); ok {
			applyProfile(frames, prof.Frames)
		}
		if _, ok := p.seqs[name]; !ok {
			p.order = append(p.order, name)
		}
		p.seqs[name] = frames
	}
}

func applyProfile(frames []Frame, profile []classifier.FrameProfile) {
	for i := range frames {
		if i >= len(profile) {
			return
		}
		fp := profile[i]
		frames[i].Duration = fp.Duration
		if len(fp.Tags) > 0 {
			frames[i].Tags = append([]string(nil), fp.Tags...)
		}
		if len(fp.TriggerEvents) > 0 {
			frames[i].Events = append([]string(nil), fp.TriggerEvents...)
		}
	}
}

// Remove deletes name entirely. It reports whether name was present.
func (p *PendingSet) Remove(name string) bool {
	if _, ok := p.seqs[name]; !ok {
		return false
	}
	delete(p.seqs, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear empties the set.
func (p *PendingSet) Clear() {
	p.order = nil
	p.seqs = make(map[string][]Frame)
}

// Snapshot returns a deep copy of the non-empty sequences.
func (p *PendingSet) Snapshot() map[string][]Frame {
	out := make(map[string][]Frame, len(p.seqs))
	for n, frames := range p.seqs {
		if len(frames) > 0 {
			out[n] = cloneFrames(frames)
		}
	}
	return out
}

// SaveRequest carries what Build needs besides the pending frames.
type SaveRequest struct {
	Name         string
	SheetRef     string
	SourceWidth  int
	SourceHeight int
	Scale        string
}

// Build validates the set and returns the entity that saving would persist.
// The set itself is left untouched so the caller can clear it only after the
// entity is stored.
func (p *PendingSet) Build(req SaveRequest, newID func() (string, error)) (Entity, error) {
	anims := p.Snapshot()
	if len(anims) == 0 {
		return Entity{}, ErrEmptyAnimationSet
	}
	if strings.TrimSpace(req.SheetRef) == "" {
		return Entity{}, ErrMissingImageReference
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return Entity{}, ErrInvalidName
	}
	id, err := newID()
	if err != nil {
		return Entity{}, fmt.Errorf("generate entity id: %w", err)
	}
	return Entity{
		ID:         id,
		Name:       name,
		Sheet:      req.SheetRef,
		Animations: anims,
		Meta:       NewMeta(req.SourceWidth, req.SourceHeight, req.Scale),
	}, nil
}
