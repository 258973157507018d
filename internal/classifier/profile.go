package classifier

import (
	"encoding/json"
	"strings"
)

// Profile is the richer answer the rubric asks for. Models often return it as
// the label itself; nothing downstream depends on it being present.
type Profile struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Classification string         `json:"classification"`
	Confidence     float64        `json:"confidence"`
	Category       string         `json:"category"`
	FrameRate      float64        `json:"frameRate"`
	Loop           bool           `json:"loop"`
	Frames         []FrameProfile `json:"frames"`
	Transition     Transition     `json:"transition"`
}

type FrameProfile struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Index         int      `json:"index"`
	Duration      float64  `json:"duration"`
	Tags          []string `json:"tags"`
	TriggerEvents []string `json:"triggerEvents"`
}

type Transition struct {
	Next   []string `json:"next"`
	Cancel []string `json:"cancel"`
}

// ParseProfile decodes a label that carries the JSON profile. ok is false for
// plain labels and malformed JSON.
func ParseProfile(label string) (*Profile, bool) {
	label = strings.TrimSpace(label)
	if !strings.HasPrefix(label, "{") {
		return nil, false
	}
	var p Profile
	if err := json.Unmarshal([]byte(label), &p); err != nil {
		return nil, false
	}
	return &p, true
}

// DisplayName returns the profile name when key is a JSON profile with one,
// and key unchanged otherwise.
func DisplayName(key string) string {
	if p, ok := ParseProfile(key); ok && p.Name != "" {
		return p.Name
	}
	return key
}
