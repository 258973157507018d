package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ivlev/spritegrid/internal/animation"
	"github.com/ivlev/spritegrid/internal/gameconfig"
	"github.com/ivlev/spritegrid/internal/playback"
	"github.com/ivlev/spritegrid/internal/raster"
	"github.com/ivlev/spritegrid/internal/storage"
)

func (p *SpriteProject) Entities() []animation.Entity {
	return p.docs.Entities()
}

func (p *SpriteProject) Entity(id string) (animation.Entity, error) {
	return p.docs.Entity(id)
}

// UpdateEntity overwrites the non-zero fields of patch.
func (p *SpriteProject) UpdateEntity(id string, patch animation.Entity) (animation.Entity, error) {
	e, err := p.docs.UpdateEntity(id, patch)
	if err != nil && !errors.Is(err, ErrNotFound) && !isValidation(err) {
		return e, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return e, err
}

// DeleteEntity stops the entity's playback and removes it.
func (p *SpriteProject) DeleteEntity(id string) (animation.Entity, error) {
	for _, t := range p.player.Targets() {
		if t.EntityID == id {
			p.player.Stop(t)
		}
	}
	e, err := p.docs.DeleteEntity(id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return e, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return e, err
}

// SheetBuffer resolves a sheet reference to decoded pixels, going to the
// blob store on a cache miss.
func (p *SpriteProject) SheetBuffer(ctx context.Context, ref string) (*raster.Buffer, error) {
	sheetID, err := animation.ParseSheetRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingImageReference, err)
	}
	if buf, ok := p.cache.Get(sheetID); ok {
		return buf, nil
	}
	rec, err := p.sheets.Sheet(ctx, sheetID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: sheet %d: %w", ErrStoreUnavailable, sheetID, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	buf, _, err := raster.DecodeBytes(rec.Data)
	if err != nil {
		return nil, err
	}
	p.cache.Add(sheetID, buf)
	return buf, nil
}

// PlayEntity loops one animation of a saved entity. The sheet is resolved
// before the first tick.
func (p *SpriteProject) PlayEntity(ctx context.Context, entityID, anim string, surface playback.Surface) error {
	e, err := p.docs.Entity(entityID)
	if err != nil {
		return err
	}
	seq, ok := e.Sequence(anim)
	if !ok {
		return fmt.Errorf("%w: animation %q on %s", ErrNotFound, anim, entityID)
	}
	buf, err := p.SheetBuffer(ctx, e.Sheet)
	if err != nil {
		return err
	}
	return p.player.Start(playback.Target{EntityID: entityID, Animation: anim},
		buf.Image(), seq, float64(p.Config.EntityFPS), surface)
}

func (p *SpriteProject) StopEntity(entityID, anim string) {
	p.player.Stop(playback.Target{EntityID: entityID, Animation: anim})
}

// SetFPS changes the rate of a running playback.
func (p *SpriteProject) SetFPS(t playback.Target, fps float64) error {
	return p.player.SetFPS(t, fps)
}

// PlaybackState reports the state of one playback target.
func (p *SpriteProject) PlaybackState(t playback.Target) playback.State {
	return p.player.State(t)
}

// Export renders the configuration document as "json" or "yaml".
func (p *SpriteProject) Export(format string) ([]byte, error) {
	doc := p.docs.Document()
	switch strings.ToLower(format) {
	case "", "json":
		return doc.ExportJSON()
	case "yaml", "yml":
		return doc.ExportYAML()
	default:
		return nil, fmt.Errorf("unknown export format: %s", format)
	}
}

// Import replaces the configuration document. Running entity playbacks are
// stopped since every id changes.
func (p *SpriteProject) Import(data []byte) (gameconfig.Document, error) {
	for _, t := range p.player.Targets() {
		if t != playback.Preview {
			p.player.Stop(t)
		}
	}
	doc, err := p.docs.Import(data)
	if err != nil {
		return doc, err
	}
	p.logger.Info("configuration imported", "sprites", doc.SpriteAnimations.Len(),
		"skills", doc.Skills.Len(), "characters", doc.Characters.Len())
	return doc, nil
}

func isValidation(err error) bool {
	return errors.Is(err, ErrEmptyAnimationSet) || errors.Is(err, animation.ErrInvalidName)
}
