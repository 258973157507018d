package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/ivlev/spritegrid/internal/analyzer"
	"github.com/ivlev/spritegrid/internal/animation"
	"github.com/ivlev/spritegrid/internal/playback"
)

func newFrames(boxes []analyzer.BoundingBox) []animation.Frame {
	frames := make([]animation.Frame, len(boxes))
	for i, b := range boxes {
		frames[i] = animation.FrameFromBox(b)
	}
	return frames
}

// AddSelected appends the selected boxes of the last detection to the
// pending animation name.
func (p *SpriteProject) AddSelected(name string, selected []int) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return 0, ErrNoDetection
	}
	n, err := p.pending.AddSelection(name, p.last.Boxes, selected)
	if err != nil {
		return 0, err
	}
	p.logger.Debug("frames added", "animation", strings.TrimSpace(name), "added", n)
	return n, nil
}

// RemovePending drops a pending animation. ok is false when name was absent.
func (p *SpriteProject) RemovePending(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Remove(name)
}

// Pending returns a copy of the pending animations.
func (p *SpriteProject) Pending() map[string][]animation.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Snapshot()
}

// PendingNames lists pending animation names in the order they were created.
func (p *SpriteProject) PendingNames() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending.Names()
}

// Save persists the pending animations as one entity over the current sheet.
// The pending set is cleared only after the entity is stored.
func (p *SpriteProject) Save(ctx context.Context, name string) (animation.Entity, error) {
	if err := ctx.Err(); err != nil {
		return animation.Entity{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	req := animation.SaveRequest{Name: name, Scale: p.Config.Scale}
	if p.sheet != nil {
		req.SheetRef = animation.SheetRef(p.sheet.ID)
		req.SourceWidth = p.sheet.Buffer.Width()
		req.SourceHeight = p.sheet.Buffer.Height()
	}
	e, err := p.pending.Build(req, p.newID)
	if err != nil {
		return animation.Entity{}, err
	}
	if err := p.docs.AddEntity(e); err != nil {
		return animation.Entity{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	p.pending.Clear()
	p.logger.Info("sprite animation saved", "id", e.ID, "name", e.Name, "sequences", len(e.Animations))
	return e, nil
}

// PreviewPending loops one pending animation over the current sheet.
func (p *SpriteProject) PreviewPending(name string, surface playback.Surface) error {
	p.mu.Lock()
	frames := p.pending.Frames(name)
	sheet := p.sheet
	p.mu.Unlock()

	if sheet == nil {
		return ErrNoSheet
	}
	if len(frames) == 0 {
		return fmt.Errorf("%w: pending animation %q", ErrNotFound, name)
	}
	return p.player.Start(playback.Preview, sheet.Buffer.Image(), frames, float64(p.Config.PreviewFPS), surface)
}

func (p *SpriteProject) StopPreview() {
	p.player.Stop(playback.Preview)
}
