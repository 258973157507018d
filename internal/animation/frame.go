// Package animation holds the curator-facing pending set and the persisted
// sprite animation entity.
package animation

import (
	"encoding/json"
	"fmt"
	"image"
	"sort"
	"strconv"
	"strings"

	"github.com/ivlev/spritegrid/internal/analyzer"
)

// Frame is one step of an animation: a rectangle inside the stored sheet.
// Duration, Tags and Events are filled from a classifier profile label by
// ApplyGroups and carried through import and export.
type Frame struct {
	X        int      `json:"x" yaml:"x"`
	Y        int      `json:"y" yaml:"y"`
	W        int      `json:"w" yaml:"w"`
	H        int      `json:"h" yaml:"h"`
	Duration float64  `json:"duration,omitempty" yaml:"duration,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Events   []string `json:"triggerEvents,omitempty" yaml:"triggerEvents,omitempty"`
}

// FrameFromBox keeps only the rectangle of a detected box.
func FrameFromBox(b analyzer.BoundingBox) Frame {
	return Frame{X: b.X, Y: b.Y, W: b.Width, H: b.Height}
}

// Rect returns the frame as an image.Rectangle.
func (f Frame) Rect() image.Rectangle {
	return image.Rect(f.X, f.Y, f.X+f.W, f.Y+f.H)
}

// Size is a width/height pair.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// Meta describes where an entity came from. Meta decoded from JSON keeps the
// source object and encodes back to it unchanged, so keys and value types
// written by other tools survive export and import.
type Meta struct {
	App     string `json:"app" yaml:"app"`
	Version string `json:"version" yaml:"version"`
	Size    Size   `json:"size" yaml:"size"`
	Scale   string `json:"scale" yaml:"scale"`
	Type    string `json:"type" yaml:"type"`

	raw json.RawMessage
}

type metaFields struct {
	App     string `json:"app"`
	Version string `json:"version"`
	Size    Size   `json:"size"`
	Scale   string `json:"scale"`
	Type    string `json:"type"`
}

// IsZero reports whether m carries neither typed fields nor a decoded object.
func (m Meta) IsZero() bool {
	return m.raw == nil && m.fields() == metaFields{}
}

func (m Meta) fields() metaFields {
	return metaFields{App: m.App, Version: m.Version, Size: m.Size, Scale: m.Scale, Type: m.Type}
}

// MarshalJSON writes the decoded object verbatim when there is one, {} for a
// zero Meta and the typed fields otherwise.
func (m Meta) MarshalJSON() ([]byte, error) {
	if m.raw != nil {
		return append([]byte(nil), m.raw...), nil
	}
	if m.IsZero() {
		return []byte("{}"), nil
	}
	return json.Marshal(m.fields())
}

// UnmarshalJSON accepts any JSON object. The typed fields are filled where the
// object has them; a non-string scale keeps its literal text.
func (m *Meta) UnmarshalJSON(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("meta: %w", err)
	}
	*m = Meta{}
	if obj == nil {
		return nil
	}
	m.raw = append(json.RawMessage(nil), data...)
	str := func(key string) string {
		v, ok := obj[key]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(v))
	}
	m.App = str("app")
	m.Version = str("version")
	m.Scale = str("scale")
	m.Type = str("type")
	if v, ok := obj["size"]; ok {
		_ = json.Unmarshal(v, &m.Size)
	}
	return nil
}

const (
	ToolName    = "Advanced Sprite Grid Extractor"
	ToolVersion = "1.0"
)

// NewMeta returns the metadata written on save for a sheet of w x h pixels.
func NewMeta(w, h int, scale string) Meta {
	if scale == "" {
		scale = "1"
	}
	return Meta{
		App:     ToolName,
		Version: ToolVersion,
		Size:    Size{W: w, H: h},
		Scale:   scale,
		Type:    "sprite",
	}
}

// Entity is a saved set of named frame sequences over one stored sheet.
type Entity struct {
	ID         string             `json:"id" yaml:"id"`
	Name       string             `json:"name" yaml:"name"`
	Sheet      string             `json:"sheet" yaml:"sheet"`
	Animations map[string][]Frame `json:"animations" yaml:"animations"`
	Meta       Meta               `json:"meta" yaml:"meta"`
}

// AnimationNames returns the animation names in sorted order.
func (e Entity) AnimationNames() []string {
	names := make([]string, 0, len(e.Animations))
	for n := range e.Animations {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Sequence returns the frames of one animation.
func (e Entity) Sequence(name string) ([]Frame, bool) {
	frames, ok := e.Animations[name]
	if !ok || len(frames) == 0 {
		return nil, false
	}
	return cloneFrames(frames), true
}

// Clone returns a deep copy.
func (e Entity) Clone() Entity {
	out := e
	if e.Meta.raw != nil {
		out.Meta.raw = append(json.RawMessage(nil), e.Meta.raw...)
	}
	out.Animations = make(map[string][]Frame, len(e.Animations))
	for n, frames := range e.Animations {
		out.Animations[n] = cloneFrames(frames)
	}
	return out
}

// SheetRef renders a blob store id the way entities reference it.
func SheetRef(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseSheetRef extracts the numeric blob id from an entity sheet reference.
func ParseSheetRef(ref string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(ref), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("sheet reference %q is not a numeric id", ref)
	}
	return id, nil
}

// ValidateAnimations rejects an empty mapping and any blank name or empty
// sequence in it.
func ValidateAnimations(anims map[string][]Frame) error {
	if len(anims) == 0 {
		return ErrEmptyAnimationSet
	}
	for name, frames := range anims {
		if strings.TrimSpace(name) == "" {
			return ErrInvalidName
		}
		if len(frames) == 0 {
			return fmt.Errorf("%w: sequence %q is empty", ErrEmptyAnimationSet, name)
		}
	}
	return nil
}

func cloneFrames(frames []Frame) []Frame {
	out := make([]Frame, len(frames))
	for i, f := range frames {
		out[i] = f
		if f.Tags != nil {
			out[i].Tags = append([]string(nil), f.Tags...)
		}
		if f.Events != nil {
			out[i].Events = append([]string(nil), f.Events...)
		}
	}
	return out
}
