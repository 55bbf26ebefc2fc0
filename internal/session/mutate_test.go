package session

import (
	"reflect"
	"testing"
)

func TestClampHP_Table(t *testing.T) {
	tests := []struct {
		name    string
		current int
		delta   int
		max     int
		want    int
	}{
		{"damage within range", 8, -3, 10, 5},
		{"overkill clamps to zero", 10, -15, 10, 0},
		{"healing within range", 2, 5, 10, 7},
		{"overheal clamps to max", 9, 4, 10, 10},
		{"zero delta is identity", 6, 0, 10, 6},
		{"already dead stays dead", 0, -3, 10, 0},
		{"already full stays full", 10, 3, 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClampHP(tt.current, tt.delta, tt.max)
			if got != tt.want {
				t.Errorf("ClampHP(%d, %d, %d) = %d, want %d",
					tt.current, tt.delta, tt.max, got, tt.want)
			}
		})
	}
}

func TestToggleCondition_TwiceIsIdentity(t *testing.T) {
	original := []string{"poisoned", "prone"}

	once := ToggleCondition(append([]string(nil), original...), "dead")
	if !HasCondition(once, "dead") {
		t.Fatal("expected 'dead' to be added on first toggle")
	}

	twice := ToggleCondition(once, "dead")
	if !reflect.DeepEqual(twice, original) {
		t.Errorf("toggling twice should restore the original set, got %v want %v", twice, original)
	}
}

func TestToggleCondition_RemovesExisting(t *testing.T) {
	conds := ToggleCondition([]string{"stunned"}, "stunned")
	if len(conds) != 0 {
		t.Errorf("expected empty condition set, got %v", conds)
	}
}

func TestAdjustItemQuantity_Decrement(t *testing.T) {
	items := []InventoryItem{{Name: "Potion", Quantity: 3, Visible: true}}

	items = AdjustItemQuantity(items, "Potion", -1, nil)
	if items[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", items[0].Quantity)
	}
}

func TestAdjustItemQuantity_FloorConfirmed(t *testing.T) {
	items := []InventoryItem{{Name: "Potion", Quantity: 1, Visible: true}}

	items = AdjustItemQuantity(items, "Potion", -1, func() bool { return true })
	if len(items) != 0 {
		t.Errorf("expected item removed after confirmation, got %v", items)
	}
}

func TestAdjustItemQuantity_FloorDeclined(t *testing.T) {
	items := []InventoryItem{{Name: "Potion", Quantity: 1, Visible: true}}

	items = AdjustItemQuantity(items, "Potion", -1, func() bool { return false })
	if len(items) != 1 || items[0].Quantity != 1 {
		t.Errorf("declined removal must leave prior quantity, got %v", items)
	}
}

func TestAdjustItemQuantity_NeverPersistsZero(t *testing.T) {
	// Even a large negative delta must never leave a quantity <= 0 behind.
	items := []InventoryItem{{Name: "Ration", Quantity: 2, Visible: true}}

	items = AdjustItemQuantity(items, "Ration", -5, func() bool { return false })
	for _, it := range items {
		if it.Quantity <= 0 {
			t.Errorf("item persisted at quantity %d", it.Quantity)
		}
	}
}

func TestNewMob_DefaultsCurrentHPToMax(t *testing.T) {
	m := NewMob(Mob{Name: "Wolf", MaxHP: 10})
	if m.CurrentHP != 10 {
		t.Errorf("expected currentHp 10, got %d", m.CurrentHP)
	}
	if m.ID == "" {
		t.Error("expected a fresh id")
	}
	if m.Conditions == nil || m.Inventory == nil {
		t.Error("expected non-nil conditions and inventory")
	}
}

func TestNewShip_DefaultsHPAndMorale(t *testing.T) {
	s := NewShip(Ship{Name: "Dawn Treader", MaxHP: 40, MaxMorale: 12})
	if s.CurrentHP != 40 {
		t.Errorf("expected currentHp 40, got %d", s.CurrentHP)
	}
	if s.CurrentMorale != 12 {
		t.Errorf("expected currentMorale 12, got %d", s.CurrentMorale)
	}
	if s.Type != ShipTypeMob {
		t.Errorf("expected default type %q, got %q", ShipTypeMob, s.Type)
	}
}

func TestNewPlayer_InitiativeStartsUnrolled(t *testing.T) {
	p := NewPlayer(Player{CharacterName: "Aria", MaxHP: 20})
	if p.Initiative != InitiativeUnrolled {
		t.Errorf("expected initiative sentinel %d, got %d", InitiativeUnrolled, p.Initiative)
	}
	if p.CurrentHP != 20 {
		t.Errorf("expected currentHp 20, got %d", p.CurrentHP)
	}
}

func TestDuplicateScene_FreshIDsEverywhere(t *testing.T) {
	src := NewScene("Tavern")
	src.Mobs = []Mob{NewMob(Mob{Name: "Wolf", MaxHP: 10})}
	src.Players = []Player{NewPlayer(Player{CharacterName: "Aria", MaxHP: 20})}
	src.Ships = []Ship{NewShip(Ship{Name: "Sloop", MaxHP: 30, MaxMorale: 8})}
	src.Playlist = []Track{NewTrack(Track{Name: "Storm", URL: "http://host/storm.mp3"})}

	dup := DuplicateScene(src)

	if dup.ID == src.ID {
		t.Error("duplicated scene must have a new id")
	}
	if dup.Mobs[0].ID == src.Mobs[0].ID {
		t.Error("duplicated mob must have a new id")
	}
	if dup.Players[0].ID == src.Players[0].ID {
		t.Error("duplicated player must have a new id")
	}
	if dup.Ships[0].ID == src.Ships[0].ID {
		t.Error("duplicated ship must have a new id")
	}
	if dup.Playlist[0].ID == src.Playlist[0].ID {
		t.Error("duplicated track must have a new id")
	}
}

func TestDuplicateScene_NonIDFieldsDeepEqual(t *testing.T) {
	src := NewScene("Tavern")
	src.Notes = "smells like ale"
	src.Mobs = []Mob{NewMob(Mob{Name: "Wolf", MaxHP: 10, Conditions: []string{"hungry"},
		Inventory: []InventoryItem{{Name: "Fang", Quantity: 2, Visible: true}}})}

	dup := DuplicateScene(src)

	blank := func(s Scene) Scene {
		s.ID = ""
		for i := range s.Mobs {
			s.Mobs[i].ID = ""
		}
		return s
	}
	if !reflect.DeepEqual(blank(src), blank(dup)) {
		t.Errorf("non-id fields must be deep-equal:\nsrc: %+v\ndup: %+v", src, dup)
	}
}

func TestDuplicateScene_CopiesAreIndependent(t *testing.T) {
	src := NewScene("Tavern")
	src.Mobs = []Mob{NewMob(Mob{Name: "Wolf", MaxHP: 10})}

	dup := DuplicateScene(src)
	dup.Mobs[0].Apply(MobPatch{HPDelta: intp(-4)})

	if src.Mobs[0].CurrentHP != 10 {
		t.Errorf("mutating the duplicate leaked into the source: %d", src.Mobs[0].CurrentHP)
	}
}

func TestMobApply_HPDeltaClamps(t *testing.T) {
	m := NewMob(Mob{Name: "Wolf", MaxHP: 10})

	m.Apply(MobPatch{HPDelta: intp(-15)})
	if m.CurrentHP != 0 {
		t.Errorf("expected clamp to 0, got %d", m.CurrentHP)
	}

	m.Apply(MobPatch{HPDelta: intp(99)})
	if m.CurrentHP != 10 {
		t.Errorf("expected clamp to max 10, got %d", m.CurrentHP)
	}
}

func TestMobApply_LoweringMaxReclamps(t *testing.T) {
	m := NewMob(Mob{Name: "Ogre", MaxHP: 30})

	m.Apply(MobPatch{MaxHP: intp(12)})
	if m.CurrentHP != 12 {
		t.Errorf("expected currentHp reclamped to 12, got %d", m.CurrentHP)
	}
}

func TestShipApply_MoraleDeltaClamps(t *testing.T) {
	s := NewShip(Ship{Name: "Sloop", MaxHP: 30, MaxMorale: 8})

	s.Apply(ShipPatch{MoraleDelta: intp(-20)})
	if s.CurrentMorale != 0 {
		t.Errorf("expected morale clamped to 0, got %d", s.CurrentMorale)
	}
}

func TestTrackApply_VolumeClamped(t *testing.T) {
	tr := NewTrack(Track{Name: "Storm", URL: "http://host/storm.mp3"})

	tr.Apply(TrackPatch{Volume: floatp(1.7)})
	if tr.Volume != 1 {
		t.Errorf("expected volume clamped to 1, got %f", tr.Volume)
	}

	tr.Apply(TrackPatch{Volume: floatp(-0.3)})
	if tr.Volume != 0 {
		t.Errorf("expected volume clamped to 0, got %f", tr.Volume)
	}
}

func TestPlayerPatch_StructuralChange(t *testing.T) {
	if (PlayerPatch{HPDelta: intp(-2)}).StructuralChange() {
		t.Error("an HP delta alone is not structural")
	}
	if !(PlayerPatch{ToggleCondition: strp("poisoned")}).StructuralChange() {
		t.Error("a condition toggle is structural")
	}
	if !(PlayerPatch{MaxHP: intp(25)}).StructuralChange() {
		t.Error("a max HP change is structural")
	}
}

func TestRemoveScene_LastSceneAllowed(t *testing.T) {
	doc := NewDocument()
	id := doc.Scenes[0].ID

	if !doc.RemoveScene(id) {
		t.Fatal("expected removal to succeed")
	}
	if len(doc.Scenes) != 0 {
		t.Errorf("expected zero scenes, got %d", len(doc.Scenes))
	}
	if doc.ActiveScene() != nil {
		t.Error("active scene of an empty document must be nil")
	}
}

func TestActiveScene_FallsBackToFirst(t *testing.T) {
	doc := NewDocument()
	doc.Scenes = append(doc.Scenes, NewScene("Cave"))
	doc.ActiveSceneID = "dangling"

	active := doc.ActiveScene()
	if active == nil || active.ID != doc.Scenes[0].ID {
		t.Error("expected fallback to the first scene in creation order")
	}
}

func intp(v int) *int           { return &v }
func strp(v string) *string     { return &v }
func floatp(v float64) *float64 { return &v }

func TestPlayerApply_AdjustItemKeepsOtherEntries(t *testing.T) {
	pl := Player{
		MaxHP:     20,
		CurrentHP: 20,
		Inventory: []InventoryItem{
			{Name: "Pocao", Quantity: 3, Visible: true},
			{Name: "Mapa Secreto", Quantity: 1, Visible: false},
		},
	}

	pl.Apply(PlayerPatch{AdjustItem: &ItemAdjustment{Name: "Pocao", Delta: -1}})
	if pl.Inventory[0].Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", pl.Inventory[0].Quantity)
	}
	if len(pl.Inventory) != 2 || pl.Inventory[1].Name != "Mapa Secreto" {
		t.Errorf("adjustment must leave other entries alone, got %+v", pl.Inventory)
	}

	pl.Apply(PlayerPatch{AdjustItem: &ItemAdjustment{Name: "Pocao", Delta: -2, Remove: true}})
	if len(pl.Inventory) != 1 || pl.Inventory[0].Name != "Mapa Secreto" {
		t.Errorf("confirmed removal should drop only the named item, got %+v", pl.Inventory)
	}

	pl.Apply(PlayerPatch{AdjustItem: &ItemAdjustment{Name: "Mapa Secreto", Delta: -1, Remove: false}})
	if len(pl.Inventory) != 1 {
		t.Errorf("unconfirmed removal must not drop the item, got %+v", pl.Inventory)
	}
}

func TestDocumentClone_Independent(t *testing.T) {
	sc := NewScene("Tavern")
	sc.Mobs = append(sc.Mobs, NewMob(Mob{Name: "Goblin", MaxHP: 7, Conditions: []string{"prone"}}))
	sc.Players = append(sc.Players, NewPlayer(Player{
		CharacterName: "Aria",
		MaxHP:         25,
		Inventory:     []InventoryItem{{Name: "Pocao", Quantity: 3, Visible: true}},
	}))
	doc := Document{Revision: 4, Scenes: []Scene{sc}, ActiveSceneID: sc.ID}

	clone := doc.Clone()
	if !reflect.DeepEqual(clone, doc) {
		t.Fatalf("clone differs from original:\n%+v\n%+v", clone, doc)
	}

	clone.Scenes[0].Mobs[0].Conditions[0] = "dead"
	clone.Scenes[0].Players[0].Inventory[0].Quantity = 99
	clone.Scenes[0].Players = append(clone.Scenes[0].Players, Player{CharacterName: "Bram"})

	if doc.Scenes[0].Mobs[0].Conditions[0] != "prone" {
		t.Error("mutating clone conditions wrote through to the original")
	}
	if doc.Scenes[0].Players[0].Inventory[0].Quantity != 3 {
		t.Error("mutating clone inventory wrote through to the original")
	}
	if len(doc.Scenes[0].Players) != 1 {
		t.Error("appending to a clone scene grew the original")
	}
}
