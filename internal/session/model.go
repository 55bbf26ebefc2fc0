// Package session provides the document model for a tabletop session and the
// pure mutation helpers that every client and the API server share: HP
// clamping, condition toggling, scene duplication with fresh identities, and
// player-facing projections.
package session

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"
)

// Track types for playlist entries.
const (
	TrackTypeAmbient = "ambiente"
	TrackTypeMusic   = "musica"
	TrackTypeSFX     = "sfx"
)

// Ship crew alignment.
const (
	ShipTypePlayer = "player"
	ShipTypeMob    = "mob"
)

// Preset collection names.
const (
	PresetMobs    = "mobs"
	PresetPlayers = "players"
	PresetShips   = "ships"
)

// InitiativeUnrolled is the sentinel initiative value meaning the player has
// not rolled yet. Player clients use it to decide whether to prompt.
const InitiativeUnrolled = 0

// Document is the whole session state as persisted by the document store.
// Revision is bumped by the store on every successful update; clients use it
// to reject stale snapshots.
type Document struct {
	Revision      int64   `json:"revision"`
	Scenes        []Scene `json:"scenes"`
	ActiveSceneID string  `json:"activeSceneId"`
	Presets       Presets `json:"presets"`
	CustomItems   []Item  `json:"customItems"`
}

// Presets holds reusable combatant templates, independent of any scene.
type Presets struct {
	Mobs    []Mob    `json:"mobs"`
	Players []Player `json:"players"`
	Ships   []Ship   `json:"ships"`
}

// Scene is one in-game location/encounter: combatants, ships and a playlist.
type Scene struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Background       string   `json:"background,omitempty"`
	Notes            string   `json:"notes,omitempty"`
	Images           []string `json:"images,omitempty"`
	InitiativeActive bool     `json:"initiativeActive"`
	Mobs             []Mob    `json:"mobs"`
	Players          []Player `json:"players"`
	Ships            []Ship   `json:"ships"`
	Playlist         []Track  `json:"playlist"`
}

// Mob is a GM-controlled combatant, scoped to a single scene.
type Mob struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Color      string          `json:"color,omitempty"`
	MaxHP      int             `json:"maxHp"`
	CurrentHP  int             `json:"currentHp"`
	DamageDice string          `json:"damageDice,omitempty"`
	ToHit      int             `json:"toHit,omitempty"`
	Image      string          `json:"image,omitempty"`
	Conditions []string        `json:"conditions"`
	Inventory  []InventoryItem `json:"inventory"`
}

// Player is a player-controlled combatant. Unlike mobs and ships, a player is
// identified across scenes by CharacterName: the per-scene row ID differs,
// but HP and condition changes propagate to every scene containing a player
// with the same name.
type Player struct {
	ID            string          `json:"id"`
	CharacterName string          `json:"characterName"`
	PlayerName    string          `json:"playerName,omitempty"`
	Photo         string          `json:"photo,omitempty"`
	MaxHP         int             `json:"maxHp"`
	CurrentHP     int             `json:"currentHp"`
	Conditions    []string        `json:"conditions"`
	Inventory     []InventoryItem `json:"inventory"`
	Initiative    int             `json:"initiative"`
	AccessURL     string          `json:"accessUrl,omitempty"`
}

// Ship is a scene-local vessel. Conditions hold crisis tags (fire, flood...)
// rather than combatant conditions.
type Ship struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          string          `json:"type"`
	Color         string          `json:"color,omitempty"`
	MaxHP         int             `json:"maxHp"`
	CurrentHP     int             `json:"currentHp"`
	MaxMorale     int             `json:"maxMorale"`
	CurrentMorale int             `json:"currentMorale"`
	Conditions    []string        `json:"conditions"`
	Inventory     []InventoryItem `json:"inventory"`
	Image         string          `json:"image,omitempty"`
}

// Track is a playlist entry owned by exactly one scene.
type Track struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	URL    string  `json:"url"`
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
}

// Item is a GM-authored inventory item available across all scenes,
// supplementing static compendium data.
type Item struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
}

// InventoryItem is an entry nested inside a mob, player or ship inventory.
// Visible defaults to true; items with Visible == false are stripped from
// player-facing projections but always shown to the GM.
type InventoryItem struct {
	Name        string `json:"nome"`
	Description string `json:"description,omitempty"`
	Quantity    int    `json:"quantity"`
	Visible     bool   `json:"visible"`
}

// UnmarshalJSON defaults Visible to true when absent and accepts the legacy
// "invisivel" field (inverted) from older saved documents.
func (it *InventoryItem) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name        string `json:"nome"`
		Description string `json:"description"`
		Quantity    int    `json:"quantity"`
		Visible     *bool  `json:"visible"`
		Invisivel   *bool  `json:"invisivel"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	it.Name = raw.Name
	it.Description = raw.Description
	it.Quantity = raw.Quantity
	switch {
	case raw.Visible != nil:
		it.Visible = *raw.Visible
	case raw.Invisivel != nil:
		it.Visible = !*raw.Invisivel
	default:
		it.Visible = true
	}
	return nil
}

// NewDocument returns a seed document with a single empty active scene, so a
// freshly booted server always has something for the GM view to render.
func NewDocument() *Document {
	scene := NewScene("Scene 1")
	return &Document{
		Scenes:        []Scene{scene},
		ActiveSceneID: scene.ID,
		Presets:       Presets{Mobs: []Mob{}, Players: []Player{}, Ships: []Ship{}},
		CustomItems:   []Item{},
	}
}

// NewScene returns an empty scene with a fresh identity.
func NewScene(name string) Scene {
	return Scene{
		ID:       uuid.New().String(),
		Name:     name,
		Mobs:     []Mob{},
		Players:  []Player{},
		Ships:    []Ship{},
		Playlist: []Track{},
	}
}

// ActiveScene returns the scene referenced by ActiveSceneID, falling back to
// the first scene (creation order) when the pointer is dangling or unset.
// Returns nil when no scenes exist.
func (d *Document) ActiveScene() *Scene {
	for i := range d.Scenes {
		if d.Scenes[i].ID == d.ActiveSceneID {
			return &d.Scenes[i]
		}
	}
	if len(d.Scenes) > 0 {
		return &d.Scenes[0]
	}
	return nil
}

// SceneByID returns the scene with the given id, or nil.
func (d *Document) SceneByID(id string) *Scene {
	for i := range d.Scenes {
		if d.Scenes[i].ID == id {
			return &d.Scenes[i]
		}
	}
	return nil
}

// MobByID returns the mob with the given id, or nil.
func (s *Scene) MobByID(id string) *Mob {
	for i := range s.Mobs {
		if s.Mobs[i].ID == id {
			return &s.Mobs[i]
		}
	}
	return nil
}

// PlayerByID returns the player row with the given id, or nil.
func (s *Scene) PlayerByID(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// PlayerByName returns the player whose CharacterName matches exactly
// (case-sensitive), or nil. Two characters sharing a name are
// indistinguishable to this lookup.
func (s *Scene) PlayerByName(characterName string) *Player {
	for i := range s.Players {
		if s.Players[i].CharacterName == characterName {
			return &s.Players[i]
		}
	}
	return nil
}

// ShipByID returns the ship with the given id, or nil.
func (s *Scene) ShipByID(id string) *Ship {
	for i := range s.Ships {
		if s.Ships[i].ID == id {
			return &s.Ships[i]
		}
	}
	return nil
}

// TrackByID returns the playlist entry with the given id, or nil.
func (s *Scene) TrackByID(id string) *Track {
	for i := range s.Playlist {
		if s.Playlist[i].ID == id {
			return &s.Playlist[i]
		}
	}
	return nil
}

// cloneAll deep-copies a slice of cloneable values, preserving the nil vs
// empty distinction so the JSON shape of a cloned document round-trips.
func cloneAll[T interface{ Clone() T }](src []T) []T {
	if src == nil {
		return nil
	}
	out := make([]T, len(src))
	for i, v := range src {
		out[i] = v.Clone()
	}
	return out
}

// Clone returns a deep copy of the mob.
func (m Mob) Clone() Mob {
	m.Conditions = slices.Clone(m.Conditions)
	m.Inventory = slices.Clone(m.Inventory)
	return m
}

// Clone returns a deep copy of the player row.
func (p Player) Clone() Player {
	p.Conditions = slices.Clone(p.Conditions)
	p.Inventory = slices.Clone(p.Inventory)
	return p
}

// Clone returns a deep copy of the ship.
func (s Ship) Clone() Ship {
	s.Conditions = slices.Clone(s.Conditions)
	s.Inventory = slices.Clone(s.Inventory)
	return s
}

// Clone returns a deep copy of the scene, ids included.
func (s Scene) Clone() Scene {
	s.Images = slices.Clone(s.Images)
	s.Mobs = cloneAll(s.Mobs)
	s.Players = cloneAll(s.Players)
	s.Ships = cloneAll(s.Ships)
	s.Playlist = slices.Clone(s.Playlist)
	return s
}

// Clone returns a deep copy of the whole document.
func (d Document) Clone() Document {
	d.Scenes = cloneAll(d.Scenes)
	d.Presets.Mobs = cloneAll(d.Presets.Mobs)
	d.Presets.Players = cloneAll(d.Presets.Players)
	d.Presets.Ships = cloneAll(d.Presets.Ships)
	d.CustomItems = slices.Clone(d.CustomItems)
	return d
}
