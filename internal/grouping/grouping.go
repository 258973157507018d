// Package grouping partitions detected sprite boxes into candidate animations.
package grouping

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ivlev/spritegrid/internal/analyzer"
)

// KeyKind tells which partition produced a group key.
type KeyKind int

const (
	KeyAll KeyKind = iota
	KeyRow
	KeyColumn
)

// Key identifies a group: "all", a row index or a column bucket.
type Key struct {
	Kind  KeyKind
	Index int
}

func (k Key) String() string {
	if k.Kind == KeyAll {
		return "all"
	}
	return strconv.Itoa(k.Index)
}

// Group is one candidate animation. Indices holds the position of every member
// in the segmenter output so a curator can select members by index.
type Group struct {
	Key     Key
	Label   string
	Members []analyzer.BoundingBox
	Indices []int
}

// Strategy partitions boxes into groups. Every input box lands in exactly one group.
type Strategy interface {
	Name() string
	Group(ctx context.Context, boxes []analyzer.BoundingBox) ([]Group, error)
}

// None puts every box in a single "all" group.
type None struct{}

func (None) Name() string { return "none" }

func (None) Group(_ context.Context, boxes []analyzer.BoundingBox) ([]Group, error) {
	return partition(boxes, func(analyzer.BoundingBox) Key { return Key{Kind: KeyAll} }), nil
}

// ByRow groups boxes by the row the segmenter found them in.
type ByRow struct{}

func (ByRow) Name() string { return "row" }

func (ByRow) Group(_ context.Context, boxes []analyzer.BoundingBox) ([]Group, error) {
	return partition(boxes, rowKey), nil
}

// ByColumn buckets boxes by x / width, an approximate grid column.
type ByColumn struct{}

func (ByColumn) Name() string { return "column" }

func (ByColumn) Group(_ context.Context, boxes []analyzer.BoundingBox) ([]Group, error) {
	return partition(boxes, func(b analyzer.BoundingBox) Key {
		w := b.Width
		if w < 1 {
			w = 1
		}
		return Key{Kind: KeyColumn, Index: b.X / w}
	}), nil
}

func rowKey(b analyzer.BoundingBox) Key {
	return Key{Kind: KeyRow, Index: b.RowIndex}
}

// partition keeps groups in first-seen key order and members in input order.
func partition(boxes []analyzer.BoundingBox, keyOf func(analyzer.BoundingBox) Key) []Group {
	groups := []Group{}
	pos := make(map[Key]int)
	for i, b := range boxes {
		k := keyOf(b)
		gi, ok := pos[k]
		if !ok {
			gi = len(groups)
			pos[k] = gi
			groups = append(groups, Group{Key: k})
		}
		groups[gi].Members = append(groups[gi].Members, b)
		groups[gi].Indices = append(groups[gi].Indices, i)
	}
	return groups
}

// Options configures strategies built by New.
type Options struct {
	Classifier Classifier
	Model      string
	ClassifierOptions
}

// New creates a strategy based on the specified name. Legacy spellings
// ("None", "ollama") are accepted.
func New(name string, opts Options) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None{}, nil
	case "row":
		return ByRow{}, nil
	case "column", "col":
		return ByColumn{}, nil
	case "classifier", "ollama":
		return NewByClassifier(opts.Classifier, opts.Model, opts.ClassifierOptions), nil
	default:
		return nil, fmt.Errorf("unknown grouping strategy: %s", name)
	}
}
