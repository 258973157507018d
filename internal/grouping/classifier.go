package grouping

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/spritegrid/internal/analyzer"
)

// UnknownLabel names a row group the classifier could not label.
const UnknownLabel = "unknown"

// Classifier labels an animation from its frame count.
type Classifier interface {
	Classify(ctx context.Context, length int, model string) (string, error)
}

// ClassifierOptions tunes the per-group collaborator calls.
type ClassifierOptions struct {
	Timeout     time.Duration // per call; zero means no extra deadline
	Concurrency int           // parallel calls; <= 0 means one at a time
	Logger      *slog.Logger
}

// ByClassifier groups by row and asks the classifier for one label per row group.
// A failed or empty answer becomes UnknownLabel; grouping itself never fails
// because of the classifier.
type ByClassifier struct {
	classifier Classifier
	model      string
	opts       ClassifierOptions
}

// NewByClassifier creates the classifier-backed strategy.
func NewByClassifier(c Classifier, model string, opts ClassifierOptions) *ByClassifier {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ByClassifier{classifier: c, model: model, opts: opts}
}

func (s *ByClassifier) Name() string { return "classifier" }

func (s *ByClassifier) Group(ctx context.Context, boxes []analyzer.BoundingBox) ([]Group, error) {
	groups := partition(boxes, rowKey)
	for i := range groups {
		groups[i].Label = UnknownLabel
	}
	if s.classifier == nil || strings.TrimSpace(s.model) == "" {
		return groups, nil
	}

	limit := s.opts.Concurrency
	if limit <= 0 {
		limit = 1
	}
	var g errgroup.Group
	g.SetLimit(limit)
	for i := range groups {
		i := i
		g.Go(func() error {
			groups[i].Label = s.label(ctx, groups[i])
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *ByClassifier) label(ctx context.Context, grp Group) string {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}

	label, err := s.classifier.Classify(ctx, len(grp.Members), s.model)
	if err != nil {
		s.opts.Logger.Warn("classifier unavailable, using fallback label",
			"group", grp.Key.String(), "frames", len(grp.Members), "error", err)
		return UnknownLabel
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return UnknownLabel
	}
	return label
}
