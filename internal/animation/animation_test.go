package animation

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/ivlev/spritegrid/internal/analyzer"
	"github.com/ivlev/spritegrid/internal/grouping"
)

func detected() []analyzer.BoundingBox {
	return []analyzer.BoundingBox{
		{X: 2, Y: 2, Width: 8, Height: 9, RowIndex: 0},
		{X: 20, Y: 2, Width: 10, Height: 9, RowIndex: 0},
		{X: 2, Y: 30, Width: 8, Height: 9, RowIndex: 1},
	}
}

func fixedID(id string) func() (string, error) {
	return func() (string, error) { return id, nil }
}

func TestAddSelectionAppendsNotReplaces(t *testing.T) {
	p := NewPendingSet()
	boxes := detected()

	if n, err := p.AddSelection("walk", boxes, []int{1, 0}); err != nil || n != 2 {
		t.Fatalf("first add: n=%d err=%v", n, err)
	}
	if n, err := p.AddSelection("walk", boxes, []int{2, 2}); err != nil || n != 1 {
		t.Fatalf("second add: n=%d err=%v", n, err)
	}

	want := []Frame{
		{X: 2, Y: 2, W: 8, H: 9},
		{X: 20, Y: 2, W: 10, H: 9},
		{X: 2, Y: 30, W: 8, H: 9},
	}
	if got := p.Frames("walk"); !reflect.DeepEqual(got, want) {
		t.Fatalf("frames = %+v, want %+v", got, want)
	}
}

func TestAddSelectionRejections(t *testing.T) {
	p := NewPendingSet()
	boxes := detected()
	_, _ = p.AddSelection("idle", boxes, []int{0})

	tests := []struct {
		name     string
		anim     string
		selected []int
		wantErr  error
	}{
		{"empty selection", "idle", nil, ErrEmptySelection},
		{"blank name", "  ", []int{1}, ErrInvalidName},
		{"out of range", "idle", []int{1, 9}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AddSelection(tt.anim, boxes, tt.selected)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if got := p.Frames("idle"); len(got) != 1 {
				t.Errorf("rejected add changed the set: %+v", got)
			}
		})
	}
}

func TestApplyGroupsAndRemove(t *testing.T) {
	p := NewPendingSet()
	boxes := detected()
	groups := []grouping.Group{
		{Key: grouping.Key{Kind: grouping.KeyRow, Index: 0}, Label: "run", Members: boxes[:2], Indices: []int{0, 1}},
		{Key: grouping.Key{Kind: grouping.KeyRow, Index: 1}, Label: "", Members: boxes[2:], Indices: []int{2}},
	}
	p.ApplyGroups(groups)

	if got := p.Names(); !reflect.DeepEqual(got, []string{"run", "unknown"}) {
		t.Fatalf("names = %v", got)
	}
	if len(p.Frames("run")) != 2 || len(p.Frames("unknown")) != 1 {
		t.Fatalf("unexpected sequences: %+v", p.Snapshot())
	}

	if !p.Remove("run") {
		t.Fatal("Remove(run) = false")
	}
	if p.Remove("run") {
		t.Fatal("second Remove(run) = true")
	}
	if got := p.Names(); !reflect.DeepEqual(got, []string{"unknown"}) {
		t.Errorf("names after remove = %v", got)
	}
}

func TestBuild(t *testing.T) {
	p := NewPendingSet()
	_, _ = p.AddSelection("walk", detected(), []int{0})

	e, err := p.Build(SaveRequest{Name: " Hero ", SheetRef: "7", SourceWidth: 40, SourceHeight: 20}, fixedID("abc"))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if e.ID != "abc" || e.Name != "Hero" || e.Sheet != "7" {
		t.Errorf("entity = %+v", e)
	}
	want := Meta{App: ToolName, Version: ToolVersion, Size: Size{W: 40, H: 20}, Scale: "1", Type: "sprite"}
	if !reflect.DeepEqual(e.Meta, want) {
		t.Errorf("meta = %+v, want %+v", e.Meta, want)
	}
	if p.Len() != 1 {
		t.Error("Build must not clear the pending set")
	}

	// The entity does not alias pending storage.
	e.Animations["walk"][0].X = 99
	if p.Frames("walk")[0].X != 2 {
		t.Error("entity shares frames with the pending set")
	}
}

func TestBuildRejections(t *testing.T) {
	empty := NewPendingSet()
	if _, err := empty.Build(SaveRequest{Name: "x", SheetRef: "1"}, fixedID("a")); !errors.Is(err, ErrEmptyAnimationSet) {
		t.Errorf("empty set err = %v", err)
	}

	p := NewPendingSet()
	_, _ = p.AddSelection("walk", detected(), []int{0})
	if _, err := p.Build(SaveRequest{Name: "x"}, fixedID("a")); !errors.Is(err, ErrMissingImageReference) {
		t.Errorf("missing ref err = %v", err)
	}
	if _, err := p.Build(SaveRequest{SheetRef: "1"}, fixedID("a")); !errors.Is(err, ErrInvalidName) {
		t.Errorf("blank name err = %v", err)
	}
	failing := func() (string, error) { return "", errors.New("entropy exhausted") }
	if _, err := p.Build(SaveRequest{Name: "x", SheetRef: "1"}, failing); err == nil {
		t.Error("expected id generation error")
	}
}

func TestSheetRef(t *testing.T) {
	if SheetRef(42) != "42" {
		t.Errorf("SheetRef(42) = %s", SheetRef(42))
	}
	id, err := ParseSheetRef(" 42 ")
	if err != nil || id != 42 {
		t.Errorf("ParseSheetRef = %d, %v", id, err)
	}
	if _, err := ParseSheetRef("sheet.png"); err == nil {
		t.Error("expected error for non-numeric reference")
	}
}

func TestEntitySequence(t *testing.T) {
	e := Entity{Animations: map[string][]Frame{"walk": {{X: 1}}, "empty": {}}}
	if _, ok := e.Sequence("empty"); ok {
		t.Error("empty sequence reported as playable")
	}
	if seq, ok := e.Sequence("walk"); !ok || len(seq) != 1 {
		t.Errorf("Sequence(walk) = %+v, %v", seq, ok)
	}
	if got := e.AnimationNames(); !reflect.DeepEqual(got, []string{"empty", "walk"}) {
		t.Errorf("AnimationNames = %v", got)
	}
}

func TestApplyGroupsCopiesProfileFrames(t *testing.T) {
	label := `{"name":"walk right","frames":[{"index":0,"duration":1.5,"tags":["footstep"],"triggerEvents":["step_sound"]}]}`
	boxes := detected()
	p := NewPendingSet()
	p.ApplyGroups([]grouping.Group{
		{Key: grouping.Key{Kind: grouping.KeyRow, Index: 0}, Label: label, Members: boxes[:2], Indices: []int{0, 1}},
	})

	want := []Frame{
		{X: 2, Y: 2, W: 8, H: 9, Duration: 1.5, Tags: []string{"footstep"}, Events: []string{"step_sound"}},
		{X: 20, Y: 2, W: 10, H: 9},
	}
	if got := p.Frames(label); !reflect.DeepEqual(got, want) {
		t.Errorf("frames = %+v, want %+v", got, want)
	}
}

func TestValidateAnimations(t *testing.T) {
	tests := []struct {
		name    string
		anims   map[string][]Frame
		wantErr error
	}{
		{"ok", map[string][]Frame{"walk": {{W: 1, H: 1}}}, nil},
		{"nil", nil, ErrEmptyAnimationSet},
		{"empty map", map[string][]Frame{}, ErrEmptyAnimationSet},
		{"empty sequence", map[string][]Frame{"walk": {{W: 1, H: 1}}, "idle": {}}, ErrEmptyAnimationSet},
		{"blank name", map[string][]Frame{" ": {{W: 1, H: 1}}}, ErrInvalidName},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAnimations(tt.anims)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMetaJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"foreign keys", `{"app":"Other Tool","frameRate":8}`},
		{"numeric scale", `{"app":"Other Tool","scale":1,"size":{"w":64,"h":32}}`},
		{"empty", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Meta
			if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			out, err := json.Marshal(m)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(out) != tt.in {
				t.Errorf("round trip = %s, want %s", out, tt.in)
			}
		})
	}

	var m Meta
	if err := json.Unmarshal([]byte(`{"app":"Other Tool","scale":1,"size":{"w":64,"h":32}}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.App != "Other Tool" || m.Scale != "1" || m.Size != (Size{W: 64, H: 32}) {
		t.Errorf("typed fields = %+v", m)
	}

	if out, _ := json.Marshal(Meta{}); string(out) != "{}" {
		t.Errorf("zero meta = %s, want {}", out)
	}
	built, _ := json.Marshal(NewMeta(40, 20, ""))
	if want := `{"app":"Advanced Sprite Grid Extractor","version":"1.0","size":{"w":40,"h":20},"scale":"1","type":"sprite"}`; string(built) != want {
		t.Errorf("built meta = %s", built)
	}
}
