// Package engine drives one curation session: upload a sheet, detect and
// group sprites, assemble pending animations, save them and play them back.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dustin/go-humanize"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ivlev/spritegrid/internal/animation"
	"github.com/ivlev/spritegrid/internal/classifier"
	"github.com/ivlev/spritegrid/internal/config"
	"github.com/ivlev/spritegrid/internal/gameconfig"
	"github.com/ivlev/spritegrid/internal/grouping"
	"github.com/ivlev/spritegrid/internal/id"
	"github.com/ivlev/spritegrid/internal/playback"
	"github.com/ivlev/spritegrid/internal/raster"
	"github.com/ivlev/spritegrid/internal/storage"
	"github.com/ivlev/spritegrid/internal/system"
)

// ModelLister is the optional part of a classifier that can enumerate models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]classifier.Model, error)
}

// Deps are the collaborators a Project works with. Sheets and Documents are
// required.
type Deps struct {
	Sheets     storage.SheetStore
	Documents  *gameconfig.Store
	Classifier grouping.Classifier
	Player     *playback.Engine

	// PreviewSurface receives the automatic preview after classifier grouping.
	PreviewSurface playback.Surface
	Logger         *slog.Logger
	NewID          func() (string, error)
}

// Sheet is the currently loaded upload.
type Sheet struct {
	ID     int64
	Name   string
	Format string
	Size   int
	Buffer *raster.Buffer
}

type SpriteProject struct {
	Config config.Config

	sheets     storage.SheetStore
	docs       *gameconfig.Store
	classifier grouping.Classifier
	player     *playback.Engine
	preview    playback.Surface
	logger     *slog.Logger
	newID      func() (string, error)
	cache      *lru.Cache[int64, *raster.Buffer]

	mu         sync.Mutex
	sheet      *Sheet
	background raster.Color
	pass       uint64
	last       *Detection
	pending    *animation.PendingSet
}

func NewSpriteProject(cfg config.Config, deps Deps) (*SpriteProject, error) {
	if deps.Sheets == nil || deps.Documents == nil {
		return nil, fmt.Errorf("sheet store and document store are required")
	}
	cfg.Normalize()
	cache, err := lru.New[int64, *raster.Buffer](cfg.SheetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("sheet cache: %w", err)
	}

	p := &SpriteProject{
		Config:     cfg,
		sheets:     deps.Sheets,
		docs:       deps.Documents,
		classifier: deps.Classifier,
		player:     deps.Player,
		preview:    deps.PreviewSurface,
		logger:     deps.Logger,
		newID:      deps.NewID,
		cache:      cache,
		background: raster.White,
		pending:    animation.NewPendingSet(),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.player == nil {
		p.player = playback.NewEngine(playback.WithLogger(p.logger))
	}
	if p.newID == nil {
		p.newID = id.NewID
	}
	return p, nil
}

// Upload decodes data, stores the raw bytes and makes it the current sheet.
// The background is re-sampled; any pending animations and detection results
// from the previous sheet are dropped.
func (p *SpriteProject) Upload(ctx context.Context, name string, data []byte) (Sheet, error) {
	buf, format, err := raster.DecodeBytes(data)
	if err != nil {
		return Sheet{}, err
	}
	sheetID, err := p.sheets.StoreSheet(ctx, name, data)
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	p.cache.Add(sheetID, buf)

	sh := Sheet{ID: sheetID, Name: name, Format: format, Size: len(data), Buffer: buf}
	bg := raster.SampleBackground(buf)

	p.mu.Lock()
	p.sheet = &sh
	p.background = bg
	p.pass++
	p.last = nil
	p.pending.Clear()
	p.mu.Unlock()

	p.player.Stop(playback.Preview)
	p.logger.Info("spritesheet stored",
		"id", sheetID, "name", name, "format", format,
		"width", buf.Width(), "height", buf.Height(), "size", humanize.Bytes(uint64(len(data))),
		"background", bg.Hex())
	return sh, nil
}

// CurrentSheet returns the loaded sheet, if any.
func (p *SpriteProject) CurrentSheet() (Sheet, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sheet == nil {
		return Sheet{}, false
	}
	return *p.sheet, true
}

func (p *SpriteProject) Background() raster.Color {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.background
}

// SetBackground overrides the sampled background for later detections.
func (p *SpriteProject) SetBackground(c raster.Color) {
	p.mu.Lock()
	p.background = c
	p.mu.Unlock()
	p.logger.Debug("background changed", "color", c.String())
}

// Models lists the classifier's vision-capable models.
func (p *SpriteProject) Models(ctx context.Context) ([]classifier.Model, error) {
	lister, ok := p.classifier.(ModelLister)
	if !ok {
		return nil, fmt.Errorf("%w: classifier cannot list models", ErrClassifierUnavailable)
	}
	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	return classifier.FilterVisionModels(models), nil
}

// Stats samples process resources for the -stats report.
func (p *SpriteProject) Stats() system.ResourceStats {
	return system.CollectStats()
}

// Close stops all playback.
func (p *SpriteProject) Close() {
	p.player.StopAll()
}
