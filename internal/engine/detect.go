package engine

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ivlev/spritegrid/internal/analyzer"
	"github.com/ivlev/spritegrid/internal/grouping"
	"github.com/ivlev/spritegrid/internal/playback"
	"github.com/ivlev/spritegrid/internal/raster"
)

// DetectOptions selects the segmentation thresholds and grouping strategy for
// one pass. Background is taken from the project, not from Params.
type DetectOptions struct {
	Params   analyzer.Params
	Detector string
	Grouping string
	Model    string
}

// DefaultDetectOptions returns the configured thresholds and strategy.
func (p *SpriteProject) DefaultDetectOptions() DetectOptions {
	return DetectOptions{
		Params: analyzer.Params{
			Tolerance: p.Config.Tolerance,
			MinWidth:  p.Config.MinWidth,
			MinHeight: p.Config.MinHeight,
		},
		Detector: p.Config.Detector,
		Grouping: p.Config.Grouping,
		Model:    p.Config.ClassifierModel,
	}
}

// RowView is one display row: the indices of its boxes and the label the
// classifier gave it, if any.
type RowView struct {
	Index   int
	Label   string
	Indices []int
}

type Detection struct {
	Pass       uint64
	Background raster.Color
	Boxes      []analyzer.BoundingBox
	Groups     []grouping.Group
	Rows       []RowView
	Strategy   string
	Elapsed    time.Duration
}

// Detect segments the current sheet and groups the result. Grouping finishes,
// classifier calls included, before anything is exposed. A pass overtaken by
// a newer Detect or Upload returns ErrStalePass and leaves no trace. With the
// classifier strategy the labelled groups replace same-named pending
// sequences and the first group starts previewing.
func (p *SpriteProject) Detect(ctx context.Context, opts DetectOptions) (*Detection, error) {
	start := time.Now()

	p.mu.Lock()
	if p.sheet == nil {
		p.mu.Unlock()
		return nil, ErrNoSheet
	}
	p.pass++
	pass := p.pass
	buf := p.sheet.Buffer
	params := opts.Params
	params.Background = p.background
	p.mu.Unlock()

	det, err := analyzer.NewDetector(opts.Detector, params)
	if err != nil {
		return nil, err
	}
	boxes, err := det.Detect(buf)
	if err != nil {
		return nil, fmt.Errorf("segment: %w", err)
	}

	strategy, err := grouping.New(opts.Grouping, grouping.Options{
		Classifier: p.classifier,
		Model:      opts.Model,
		ClassifierOptions: grouping.ClassifierOptions{
			Timeout:     p.Config.ClassifierTimeout,
			Concurrency: p.Config.ClassifierConcurrency,
			Logger:      p.logger,
		},
	})
	if err != nil {
		return nil, err
	}
	groups, err := strategy.Group(ctx, boxes)
	if err != nil {
		return nil, err
	}

	d := &Detection{
		Pass:       pass,
		Background: params.Background,
		Boxes:      boxes,
		Groups:     groups,
		Rows:       rowViews(boxes, groups),
		Strategy:   strategy.Name(),
		Elapsed:    time.Since(start),
	}

	_, labelled := strategy.(*grouping.ByClassifier)

	p.mu.Lock()
	if p.pass != pass {
		p.mu.Unlock()
		p.logger.Debug("discarding stale detection", "pass", pass)
		return nil, ErrStalePass
	}
	p.last = d
	if labelled {
		p.pending.ApplyGroups(groups)
	}
	p.mu.Unlock()

	p.logger.Info("detection finished",
		"pass", pass, "sprites", len(boxes), "groups", len(groups),
		"strategy", d.Strategy, "elapsed", d.Elapsed)

	if labelled && len(groups) > 0 && p.preview != nil {
		if err := p.PreviewGroup(0, p.preview); err != nil {
			p.logger.Warn("auto preview failed", "error", err)
		}
	}
	return d, nil
}

// LastDetection returns the most recent completed pass.
func (p *SpriteProject) LastDetection() (*Detection, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.last != nil
}

func rowViews(boxes []analyzer.BoundingBox, groups []grouping.Group) []RowView {
	labels := make(map[int]string)
	for _, g := range groups {
		if g.Key.Kind == grouping.KeyRow {
			labels[g.Key.Index] = g.Label
		}
	}

	byRow := make(map[int]*RowView)
	for i, b := range boxes {
		rv, ok := byRow[b.RowIndex]
		if !ok {
			rv = &RowView{Index: b.RowIndex, Label: labels[b.RowIndex]}
			byRow[b.RowIndex] = rv
		}
		rv.Indices = append(rv.Indices, i)
	}

	out := make([]RowView, 0, len(byRow))
	for _, rv := range byRow {
		out = append(out, *rv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// PreviewGroup loops the boxes of one group from the last detection.
func (p *SpriteProject) PreviewGroup(index int, surface playback.Surface) error {
	p.mu.Lock()
	last, sheet := p.last, p.sheet
	p.mu.Unlock()

	if sheet == nil {
		return ErrNoSheet
	}
	if last == nil {
		return ErrNoDetection
	}
	if index < 0 || index >= len(last.Groups) {
		return fmt.Errorf("group %d out of range [0,%d)", index, len(last.Groups))
	}
	frames := newFrames(last.Groups[index].Members)
	return p.player.Start(playback.Preview, sheet.Buffer.Image(), frames, float64(p.Config.PreviewFPS), surface)
}
