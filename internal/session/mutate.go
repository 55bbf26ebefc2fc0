package session

import "github.com/google/uuid"

// ClampHP applies a delta to a current value and clamps the result to
// [0, max]. Every HP and morale change in the system goes through this.
func ClampHP(current, delta, max int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	if next > max {
		return max
	}
	return next
}

// ToggleCondition adds the tag if absent and removes it if present.
// Toggling the same tag twice returns the set to its original contents.
func ToggleCondition(conditions []string, tag string) []string {
	for i, c := range conditions {
		if c == tag {
			return append(conditions[:i:i], conditions[i+1:]...)
		}
	}
	return append(conditions, tag)
}

// HasCondition reports whether the tag is present.
func HasCondition(conditions []string, tag string) bool {
	for _, c := range conditions {
		if c == tag {
			return true
		}
	}
	return false
}

// AdjustItemQuantity applies a quantity delta to the named inventory item.
// A decrement that would drop the quantity below 1 does not persist a
// zero-quantity entry: confirmRemove decides whether the item is removed
// outright or left at its prior quantity. Unknown names are a no-op.
func AdjustItemQuantity(items []InventoryItem, name string, delta int, confirmRemove func() bool) []InventoryItem {
	for i := range items {
		if items[i].Name != name {
			continue
		}
		next := items[i].Quantity + delta
		if next >= 1 {
			items[i].Quantity = next
			return items
		}
		if confirmRemove != nil && confirmRemove() {
			return append(items[:i:i], items[i+1:]...)
		}
		return items
	}
	return items
}

// NewMob builds a mob from creation fields, assigning a fresh id and
// defaulting current HP to max.
func NewMob(template Mob) Mob {
	m := template
	m.ID = uuid.New().String()
	m.CurrentHP = m.MaxHP
	if m.Conditions == nil {
		m.Conditions = []string{}
	}
	if m.Inventory == nil {
		m.Inventory = []InventoryItem{}
	}
	return m
}

// NewPlayer builds a player row from creation fields, assigning a fresh id
// and defaulting current HP to max. Initiative starts at the unrolled
// sentinel.
func NewPlayer(template Player) Player {
	p := template
	p.ID = uuid.New().String()
	p.CurrentHP = p.MaxHP
	p.Initiative = InitiativeUnrolled
	if p.Conditions == nil {
		p.Conditions = []string{}
	}
	if p.Inventory == nil {
		p.Inventory = []InventoryItem{}
	}
	return p
}

// NewShip builds a ship from creation fields, assigning a fresh id and
// defaulting current HP and morale to their maxima.
func NewShip(template Ship) Ship {
	s := template
	s.ID = uuid.New().String()
	s.CurrentHP = s.MaxHP
	s.CurrentMorale = s.MaxMorale
	if s.Type == "" {
		s.Type = ShipTypeMob
	}
	if s.Conditions == nil {
		s.Conditions = []string{}
	}
	if s.Inventory == nil {
		s.Inventory = []InventoryItem{}
	}
	return s
}

// NewTrack builds a playlist entry with a fresh id. Volume is clamped to
// [0, 1] and defaults to full.
func NewTrack(template Track) Track {
	t := template
	t.ID = uuid.New().String()
	if t.Volume <= 0 || t.Volume > 1 {
		t.Volume = 1
	}
	if t.Type == "" {
		t.Type = TrackTypeMusic
	}
	return t
}

// DuplicateScene deep-copies a scene and assigns a fresh id to the scene and
// to every nested mob, player, ship and track, so no identity from the source
// subtree survives in the copy. All non-id fields are preserved.
func DuplicateScene(src Scene) Scene {
	dup := src
	dup.ID = uuid.New().String()

	dup.Images = append([]string(nil), src.Images...)

	dup.Mobs = make([]Mob, len(src.Mobs))
	for i, m := range src.Mobs {
		m.ID = uuid.New().String()
		m.Conditions = append([]string(nil), m.Conditions...)
		m.Inventory = append([]InventoryItem(nil), m.Inventory...)
		dup.Mobs[i] = m
	}

	dup.Players = make([]Player, len(src.Players))
	for i, p := range src.Players {
		p.ID = uuid.New().String()
		p.Conditions = append([]string(nil), p.Conditions...)
		p.Inventory = append([]InventoryItem(nil), p.Inventory...)
		dup.Players[i] = p
	}

	dup.Ships = make([]Ship, len(src.Ships))
	for i, sh := range src.Ships {
		sh.ID = uuid.New().String()
		sh.Conditions = append([]string(nil), sh.Conditions...)
		sh.Inventory = append([]InventoryItem(nil), sh.Inventory...)
		dup.Ships[i] = sh
	}

	dup.Playlist = make([]Track, len(src.Playlist))
	for i, t := range src.Playlist {
		t.ID = uuid.New().String()
		dup.Playlist[i] = t
	}

	return dup
}

// ScenePatch is a partial update for scene metadata. Nil fields are left
// untouched; the nested collections have their own endpoints.
type ScenePatch struct {
	Name             *string   `json:"name,omitempty"`
	Background       *string   `json:"background,omitempty"`
	Notes            *string   `json:"notes,omitempty"`
	Images           *[]string `json:"images,omitempty"`
	InitiativeActive *bool     `json:"initiativeActive,omitempty"`
}

// Apply shallow-merges the patch into the scene.
func (s *Scene) Apply(p ScenePatch) {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Background != nil {
		s.Background = *p.Background
	}
	if p.Notes != nil {
		s.Notes = *p.Notes
	}
	if p.Images != nil {
		s.Images = *p.Images
	}
	if p.InitiativeActive != nil {
		s.InitiativeActive = *p.InitiativeActive
	}
}

// MobPatch is a partial update for a mob. HPDelta goes through the clamp;
// ToggleCondition flips a single tag. Unknown JSON fields are ignored.
type MobPatch struct {
	Name            *string          `json:"name,omitempty"`
	Color           *string          `json:"color,omitempty"`
	MaxHP           *int             `json:"maxHp,omitempty"`
	CurrentHP       *int             `json:"currentHp,omitempty"`
	HPDelta         *int             `json:"hpDelta,omitempty"`
	DamageDice      *string          `json:"damageDice,omitempty"`
	ToHit           *int             `json:"toHit,omitempty"`
	Image           *string          `json:"image,omitempty"`
	Conditions      *[]string        `json:"conditions,omitempty"`
	ToggleCondition *string          `json:"toggleCondition,omitempty"`
	Inventory       *[]InventoryItem `json:"inventory,omitempty"`
}

// Apply shallow-merges the patch into the mob. Direct CurrentHP writes and
// deltas are both clamped against the (possibly just updated) max.
func (m *Mob) Apply(p MobPatch) {
	if p.Name != nil {
		m.Name = *p.Name
	}
	if p.Color != nil {
		m.Color = *p.Color
	}
	if p.MaxHP != nil {
		m.MaxHP = *p.MaxHP
		m.CurrentHP = ClampHP(m.CurrentHP, 0, m.MaxHP)
	}
	if p.CurrentHP != nil {
		m.CurrentHP = ClampHP(*p.CurrentHP, 0, m.MaxHP)
	}
	if p.HPDelta != nil {
		m.CurrentHP = ClampHP(m.CurrentHP, *p.HPDelta, m.MaxHP)
	}
	if p.DamageDice != nil {
		m.DamageDice = *p.DamageDice
	}
	if p.ToHit != nil {
		m.ToHit = *p.ToHit
	}
	if p.Image != nil {
		m.Image = *p.Image
	}
	if p.Conditions != nil {
		m.Conditions = *p.Conditions
	}
	if p.ToggleCondition != nil {
		m.Conditions = ToggleCondition(m.Conditions, *p.ToggleCondition)
	}
	if p.Inventory != nil {
		m.Inventory = *p.Inventory
	}
}

// PlayerPatch is a partial update for a player row. The same patch is fanned
// out by the GM store to every scene row sharing the character name.
type PlayerPatch struct {
	CharacterName   *string          `json:"characterName,omitempty"`
	PlayerName      *string          `json:"playerName,omitempty"`
	Photo           *string          `json:"photo,omitempty"`
	MaxHP           *int             `json:"maxHp,omitempty"`
	CurrentHP       *int             `json:"currentHp,omitempty"`
	HPDelta         *int             `json:"hpDelta,omitempty"`
	Conditions      *[]string        `json:"conditions,omitempty"`
	ToggleCondition *string          `json:"toggleCondition,omitempty"`
	Inventory       *[]InventoryItem `json:"inventory,omitempty"`
	AdjustItem      *ItemAdjustment  `json:"adjustItem,omitempty"`
	Initiative      *int             `json:"initiative,omitempty"`
	AccessURL       *string          `json:"accessUrl,omitempty"`
}

// ItemAdjustment edits a single inventory item in place. Player clients see
// only their visible items, so replacing the whole inventory from a player
// would drop hidden entries; this targets one item and leaves the rest alone.
// Remove reports that the sender already confirmed removal when the delta
// drops the quantity below one.
type ItemAdjustment struct {
	Name   string `json:"nome"`
	Delta  int    `json:"delta,omitempty"`
	Remove bool   `json:"remove,omitempty"`
}

// StructuralChange reports whether the patch touches anything beyond HP.
// The GM store refreshes presets only for structural changes, so HP deltas
// during combat do not cause request storms.
func (p PlayerPatch) StructuralChange() bool {
	return p.CharacterName != nil || p.PlayerName != nil || p.Photo != nil ||
		p.MaxHP != nil || p.Conditions != nil || p.ToggleCondition != nil ||
		p.Inventory != nil || p.AdjustItem != nil || p.Initiative != nil ||
		p.AccessURL != nil
}

// Apply shallow-merges the patch into the player row.
func (pl *Player) Apply(p PlayerPatch) {
	if p.CharacterName != nil {
		pl.CharacterName = *p.CharacterName
	}
	if p.PlayerName != nil {
		pl.PlayerName = *p.PlayerName
	}
	if p.Photo != nil {
		pl.Photo = *p.Photo
	}
	if p.MaxHP != nil {
		pl.MaxHP = *p.MaxHP
		pl.CurrentHP = ClampHP(pl.CurrentHP, 0, pl.MaxHP)
	}
	if p.CurrentHP != nil {
		pl.CurrentHP = ClampHP(*p.CurrentHP, 0, pl.MaxHP)
	}
	if p.HPDelta != nil {
		pl.CurrentHP = ClampHP(pl.CurrentHP, *p.HPDelta, pl.MaxHP)
	}
	if p.Conditions != nil {
		pl.Conditions = *p.Conditions
	}
	if p.ToggleCondition != nil {
		pl.Conditions = ToggleCondition(pl.Conditions, *p.ToggleCondition)
	}
	if p.Inventory != nil {
		pl.Inventory = *p.Inventory
	}
	if p.AdjustItem != nil {
		adj := p.AdjustItem
		pl.Inventory = AdjustItemQuantity(pl.Inventory, adj.Name, adj.Delta, func() bool { return adj.Remove })
	}
	if p.Initiative != nil {
		pl.Initiative = *p.Initiative
	}
	if p.AccessURL != nil {
		pl.AccessURL = *p.AccessURL
	}
}

// ShipPatch is a partial update for a ship. Morale follows the same clamp
// rules as HP; conditions hold crisis tags.
type ShipPatch struct {
	Name            *string          `json:"name,omitempty"`
	Type            *string          `json:"type,omitempty"`
	Color           *string          `json:"color,omitempty"`
	MaxHP           *int             `json:"maxHp,omitempty"`
	CurrentHP       *int             `json:"currentHp,omitempty"`
	HPDelta         *int             `json:"hpDelta,omitempty"`
	MaxMorale       *int             `json:"maxMorale,omitempty"`
	CurrentMorale   *int             `json:"currentMorale,omitempty"`
	MoraleDelta     *int             `json:"moraleDelta,omitempty"`
	Conditions      *[]string        `json:"conditions,omitempty"`
	ToggleCondition *string          `json:"toggleCondition,omitempty"`
	Inventory       *[]InventoryItem `json:"inventory,omitempty"`
	Image           *string          `json:"image,omitempty"`
}

// Apply shallow-merges the patch into the ship.
func (sh *Ship) Apply(p ShipPatch) {
	if p.Name != nil {
		sh.Name = *p.Name
	}
	if p.Type != nil {
		sh.Type = *p.Type
	}
	if p.Color != nil {
		sh.Color = *p.Color
	}
	if p.MaxHP != nil {
		sh.MaxHP = *p.MaxHP
		sh.CurrentHP = ClampHP(sh.CurrentHP, 0, sh.MaxHP)
	}
	if p.CurrentHP != nil {
		sh.CurrentHP = ClampHP(*p.CurrentHP, 0, sh.MaxHP)
	}
	if p.HPDelta != nil {
		sh.CurrentHP = ClampHP(sh.CurrentHP, *p.HPDelta, sh.MaxHP)
	}
	if p.MaxMorale != nil {
		sh.MaxMorale = *p.MaxMorale
		sh.CurrentMorale = ClampHP(sh.CurrentMorale, 0, sh.MaxMorale)
	}
	if p.CurrentMorale != nil {
		sh.CurrentMorale = ClampHP(*p.CurrentMorale, 0, sh.MaxMorale)
	}
	if p.MoraleDelta != nil {
		sh.CurrentMorale = ClampHP(sh.CurrentMorale, *p.MoraleDelta, sh.MaxMorale)
	}
	if p.Conditions != nil {
		sh.Conditions = *p.Conditions
	}
	if p.ToggleCondition != nil {
		sh.Conditions = ToggleCondition(sh.Conditions, *p.ToggleCondition)
	}
	if p.Inventory != nil {
		sh.Inventory = *p.Inventory
	}
	if p.Image != nil {
		sh.Image = *p.Image
	}
}

// TrackPatch is a partial update for a playlist entry.
type TrackPatch struct {
	Name   *string  `json:"name,omitempty"`
	URL    *string  `json:"url,omitempty"`
	Type   *string  `json:"type,omitempty"`
	Volume *float64 `json:"volume,omitempty"`
}

// Apply shallow-merges the patch into the track, clamping volume to [0, 1].
func (t *Track) Apply(p TrackPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.URL != nil {
		t.URL = *p.URL
	}
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Volume != nil {
		v := *p.Volume
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		t.Volume = v
	}
}

// RemoveScene deletes the scene by id, returning false when absent. Deleting
// the last scene is permitted; the degenerate empty state is a UI concern.
func (d *Document) RemoveScene(id string) bool {
	for i := range d.Scenes {
		if d.Scenes[i].ID == id {
			d.Scenes = append(d.Scenes[:i], d.Scenes[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveMob deletes a mob from this scene only.
func (s *Scene) RemoveMob(id string) bool {
	for i := range s.Mobs {
		if s.Mobs[i].ID == id {
			s.Mobs = append(s.Mobs[:i], s.Mobs[i+1:]...)
			return true
		}
	}
	return false
}

// RemovePlayer deletes a player row from this scene only. Copies of the same
// character in other scenes are untouched.
func (s *Scene) RemovePlayer(id string) bool {
	for i := range s.Players {
		if s.Players[i].ID == id {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveShip deletes a ship from this scene.
func (s *Scene) RemoveShip(id string) bool {
	for i := range s.Ships {
		if s.Ships[i].ID == id {
			s.Ships = append(s.Ships[:i], s.Ships[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveTrack deletes a playlist entry from this scene.
func (s *Scene) RemoveTrack(id string) bool {
	for i := range s.Playlist {
		if s.Playlist[i].ID == id {
			s.Playlist = append(s.Playlist[:i], s.Playlist[i+1:]...)
			return true
		}
	}
	return false
}
