// Package gameconfig holds the exported game configuration document: skills,
// characters, settings, the activity log and saved sprite animations.
package gameconfig

import (
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ivlev/spritegrid/internal/animation"
)

const (
	DefaultGameName   = "My Awesome Game"
	DefaultMaxPlayers = 100
	maxActivities     = 100
)

type Skill struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Damage         int             `json:"damage"`
	ManaCost       int             `json:"manaCost"`
	Cooldown       int             `json:"cooldown"`
	CharacterClass string          `json:"characterClass"`
	Sprite         json.RawMessage `json:"sprite,omitempty"`
}

type Character struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Attributes []json.RawMessage `json:"attributes"`
}

type Settings struct {
	GameName        string `json:"gameName"`
	MaxPlayers      int    `json:"maxPlayers"`
	MaintenanceMode bool   `json:"maintenanceMode"`
}

func DefaultSettings() Settings {
	return Settings{GameName: DefaultGameName, MaxPlayers: DefaultMaxPlayers}
}

type Activity struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ActivityLog keeps the newest maxActivities entries, newest first.
type ActivityLog struct {
	entries []Activity
}

func (l ActivityLog) Entries() []Activity {
	return append([]Activity(nil), l.entries...)
}

// With returns a log with msg prepended.
func (l ActivityLog) With(msg string, at time.Time) ActivityLog {
	entries := make([]Activity, 0, len(l.entries)+1)
	entries = append(entries, Activity{Message: msg, Timestamp: at.Format(time.DateTime)})
	entries = append(entries, l.entries...)
	if len(entries) > maxActivities {
		entries = entries[:maxActivities]
	}
	return ActivityLog{entries: entries}
}

// Document is one complete configuration snapshot.
type Document struct {
	Skills           Collection[Skill]
	Characters       Collection[Character]
	Settings         Settings
	ActivityLog      ActivityLog
	SpriteAnimations Collection[animation.Entity]
}

func skillID(s Skill) string { return s.ID }

func characterID(c Character) string { return c.ID }

func entityID(e animation.Entity) string { return e.ID }

func NewDocument() Document {
	return Document{
		Skills:           NewCollection(skillID),
		Characters:       NewCollection(characterID),
		Settings:         DefaultSettings(),
		SpriteAnimations: NewCollection(entityID),
	}
}

type wireDocument struct {
	Skills           []Skill            `json:"skills"`
	Characters       []Character        `json:"characters"`
	Settings         Settings           `json:"settings"`
	ActivityLog      []Activity         `json:"activityLog"`
	SpriteAnimations []animation.Entity `json:"spriteAnimations"`
}

func (d Document) wire() wireDocument {
	w := wireDocument{
		Skills:           d.Skills.All(),
		Characters:       d.Characters.All(),
		Settings:         d.Settings,
		ActivityLog:      d.ActivityLog.Entries(),
		SpriteAnimations: d.SpriteAnimations.All(),
	}
	if w.Skills == nil {
		w.Skills = []Skill{}
	}
	if w.Characters == nil {
		w.Characters = []Character{}
	}
	if w.ActivityLog == nil {
		w.ActivityLog = []Activity{}
	}
	if w.SpriteAnimations == nil {
		w.SpriteAnimations = []animation.Entity{}
	}
	return w
}

func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.wire())
}

// ExportJSON renders the document with two-space indentation.
func (d Document) ExportJSON() ([]byte, error) {
	return json.MarshalIndent(d.wire(), "", "  ")
}

// ExportYAML renders the same tree as ExportJSON in YAML. Free-form JSON
// fields are passed through as plain values.
func (d Document) ExportYAML() ([]byte, error) {
	raw, err := json.Marshal(d.wire())
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return yaml.Marshal(tree)
}

// The import shapes shadow each embedded ID so foreign ids of any JSON type
// (older exports wrote floats) decode without error.
type (
	importSkill struct {
		Skill
		ID json.RawMessage `json:"id"`
	}
	importCharacter struct {
		Character
		ID json.RawMessage `json:"id"`
	}
	importEntity struct {
		animation.Entity
		ID json.RawMessage `json:"id"`
	}
	importDocument struct {
		Skills           []importSkill     `json:"skills"`
		Characters       []importCharacter `json:"characters"`
		Settings         *Settings         `json:"settings"`
		ActivityLog      []Activity        `json:"activityLog"`
		SpriteAnimations []importEntity    `json:"spriteAnimations"`
	}
)

// ParseDocument decodes an exported document and gives every record a fresh
// id from newID. Absent sections come back empty; zero settings fall back to
// the defaults.
func ParseDocument(data []byte, newID func() (string, error)) (Document, error) {
	var in importDocument
	if err := json.Unmarshal(data, &in); err != nil {
		return Document{}, fmt.Errorf("decode document: %w", err)
	}

	doc := NewDocument()
	for _, s := range in.Skills {
		id, err := newID()
		if err != nil {
			return Document{}, err
		}
		s.Skill.ID = id
		doc.Skills = doc.Skills.Add(s.Skill)
	}
	for _, c := range in.Characters {
		id, err := newID()
		if err != nil {
			return Document{}, err
		}
		c.Character.ID = id
		doc.Characters = doc.Characters.Add(c.Character)
	}
	for _, e := range in.SpriteAnimations {
		id, err := newID()
		if err != nil {
			return Document{}, err
		}
		e.Entity.ID = id
		if e.Entity.Animations == nil {
			e.Entity.Animations = map[string][]animation.Frame{}
		}
		doc.SpriteAnimations = doc.SpriteAnimations.Add(e.Entity)
	}
	if in.Settings != nil {
		if in.Settings.GameName != "" {
			doc.Settings.GameName = in.Settings.GameName
		}
		if in.Settings.MaxPlayers != 0 {
			doc.Settings.MaxPlayers = in.Settings.MaxPlayers
		}
		doc.Settings.MaintenanceMode = in.Settings.MaintenanceMode
	}
	if len(in.ActivityLog) > maxActivities {
		in.ActivityLog = in.ActivityLog[:maxActivities]
	}
	doc.ActivityLog = ActivityLog{entries: in.ActivityLog}
	return doc, nil
}

// decodeStored reads a document this package wrote itself, keeping ids.
func decodeStored(data []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return Document{}, fmt.Errorf("decode stored document: %w", err)
	}
	doc := NewDocument()
	doc.Skills = NewCollection(skillID, w.Skills...)
	doc.Characters = NewCollection(characterID, w.Characters...)
	doc.SpriteAnimations = NewCollection(entityID, w.SpriteAnimations...)
	if w.Settings != (Settings{}) {
		doc.Settings = w.Settings
	}
	doc.ActivityLog = ActivityLog{entries: w.ActivityLog}
	return doc, nil
}
