package gmstore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mesa-rpg/mesa/internal/api"
	"github.com/mesa-rpg/mesa/internal/session"
)

// fakeAPI records calls and serves a canned document. Responses echo the
// request; the store under test owns the local state.
type fakeAPI struct {
	doc *session.Document

	patchPlayerCalls []patchPlayerCall
	patchMobCalls    []patchMobCall
	listPresetCalls  []string
	syncPlayerCalls  []string

	syncPlayers []session.Player
}

type patchPlayerCall struct {
	sceneID  string
	playerID string
	patch    session.PlayerPatch
}

type patchMobCall struct {
	sceneID string
	mobID   string
	patch   session.MobPatch
}

func (f *fakeAPI) GetState(ctx context.Context) (*session.Document, error) {
	snapshot := *f.doc
	return &snapshot, nil
}

func (f *fakeAPI) SetActiveScene(ctx context.Context, sceneID string) (*api.ActiveSceneResponse, error) {
	return &api.ActiveSceneResponse{ActiveSceneID: sceneID}, nil
}

func (f *fakeAPI) CreateScene(ctx context.Context, name string) (*api.SceneResponse, error) {
	return &api.SceneResponse{Scene: session.NewScene(name)}, nil
}

func (f *fakeAPI) DuplicateScene(ctx context.Context, sceneID string) (*api.SceneResponse, error) {
	sc := f.doc.SceneByID(sceneID)
	return &api.SceneResponse{Scene: session.DuplicateScene(*sc)}, nil
}

func (f *fakeAPI) PatchScene(ctx context.Context, sceneID string, patch session.ScenePatch) (*api.SceneResponse, error) {
	return &api.SceneResponse{}, nil
}

func (f *fakeAPI) DeleteScene(ctx context.Context, sceneID string) error { return nil }

func (f *fakeAPI) CreateMob(ctx context.Context, sceneID string, template session.Mob) (*api.MobResponse, error) {
	return &api.MobResponse{Mob: session.NewMob(template)}, nil
}

func (f *fakeAPI) PatchMob(ctx context.Context, sceneID, mobID string, patch session.MobPatch) (*api.MobResponse, error) {
	f.patchMobCalls = append(f.patchMobCalls, patchMobCall{sceneID, mobID, patch})
	return &api.MobResponse{}, nil
}

func (f *fakeAPI) DeleteMob(ctx context.Context, sceneID, mobID string) error { return nil }

func (f *fakeAPI) CreatePlayer(ctx context.Context, sceneID string, template session.Player) (*api.PlayerResponse, error) {
	p := session.NewPlayer(template)
	p.AccessURL = "http://example.test/player?token=fake"
	return &api.PlayerResponse{Player: p}, nil
}

func (f *fakeAPI) PatchPlayer(ctx context.Context, sceneID, playerID string, patch session.PlayerPatch) (*api.PlayerResponse, error) {
	f.patchPlayerCalls = append(f.patchPlayerCalls, patchPlayerCall{sceneID, playerID, patch})
	return &api.PlayerResponse{}, nil
}

func (f *fakeAPI) DeletePlayer(ctx context.Context, sceneID, playerID string) error { return nil }

func (f *fakeAPI) CreateShip(ctx context.Context, sceneID string, template session.Ship) (*api.ShipResponse, error) {
	return &api.ShipResponse{Ship: session.NewShip(template)}, nil
}

func (f *fakeAPI) PatchShip(ctx context.Context, sceneID, shipID string, patch session.ShipPatch) (*api.ShipResponse, error) {
	return &api.ShipResponse{}, nil
}

func (f *fakeAPI) DeleteShip(ctx context.Context, sceneID, shipID string) error { return nil }

func (f *fakeAPI) CreateTrack(ctx context.Context, sceneID string, template session.Track) (*api.TrackResponse, error) {
	return &api.TrackResponse{Track: session.NewTrack(template)}, nil
}

func (f *fakeAPI) PatchTrack(ctx context.Context, sceneID, trackID string, patch session.TrackPatch) (*api.TrackResponse, error) {
	return &api.TrackResponse{}, nil
}

func (f *fakeAPI) DeleteTrack(ctx context.Context, sceneID, trackID string) error { return nil }

func (f *fakeAPI) SyncPlayers(ctx context.Context, sceneID string) (*api.ScenePlayersResponse, error) {
	f.syncPlayerCalls = append(f.syncPlayerCalls, sceneID)
	return &api.ScenePlayersResponse{Players: f.syncPlayers, Revision: f.doc.Revision + 1}, nil
}

func (f *fakeAPI) ListPresets(ctx context.Context, presetType string) (*api.PresetsResponse, error) {
	f.listPresetCalls = append(f.listPresetCalls, presetType)
	return &api.PresetsResponse{Players: f.doc.Presets.Players}, nil
}

// twoSceneDocument builds a document where the character "Aria" has a row in
// both scenes, under different row ids, plus a mob with the same name in each
// scene.
func twoSceneDocument() *session.Document {
	tavern := session.NewScene("Tavern")
	docks := session.NewScene("Docks")

	ariaTavern := session.NewPlayer(session.Player{CharacterName: "Aria", MaxHP: 25})
	ariaDocks := session.NewPlayer(session.Player{CharacterName: "Aria", MaxHP: 25})
	tavern.Players = append(tavern.Players, ariaTavern)
	docks.Players = append(docks.Players, ariaDocks)

	tavern.Mobs = append(tavern.Mobs, session.NewMob(session.Mob{Name: "Goblin", MaxHP: 7}))
	docks.Mobs = append(docks.Mobs, session.NewMob(session.Mob{Name: "Goblin", MaxHP: 7}))

	return &session.Document{
		Revision:      1,
		Scenes:        []session.Scene{tavern, docks},
		ActiveSceneID: tavern.ID,
	}
}

func newStore(t *testing.T, doc *session.Document) (*Store, *fakeAPI) {
	t.Helper()
	fake := &fakeAPI{doc: doc}
	s := New(fake, WithSynchronousPersistence())
	if err := s.Refresh(t.Context()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	return s, fake
}

func TestPatchPlayer_FansOutAcrossScenes(t *testing.T) {
	doc := twoSceneDocument()
	s, fake := newStore(t, doc)

	tavern := doc.Scenes[0]
	delta := -5
	err := s.PatchPlayer(t.Context(), tavern.ID, tavern.Players[0].ID, session.PlayerPatch{HPDelta: &delta})
	if err != nil {
		t.Fatalf("PatchPlayer: %v", err)
	}

	local := s.Document()
	for _, sc := range local.Scenes {
		if got := sc.Players[0].CurrentHP; got != 20 {
			t.Errorf("scene %q: currentHp = %d, want 20", sc.Name, got)
		}
	}

	if len(fake.patchPlayerCalls) != 2 {
		t.Fatalf("expected one request per scene row, got %d", len(fake.patchPlayerCalls))
	}
	seen := map[string]bool{}
	for _, call := range fake.patchPlayerCalls {
		seen[call.sceneID] = true
	}
	if !seen[doc.Scenes[0].ID] || !seen[doc.Scenes[1].ID] {
		t.Errorf("fan-out should target both scenes, got %+v", fake.patchPlayerCalls)
	}
}

func TestPatchPlayer_HPDeltaSkipsPresetRefresh(t *testing.T) {
	doc := twoSceneDocument()
	s, fake := newStore(t, doc)

	tavern := doc.Scenes[0]
	delta := -1
	if err := s.PatchPlayer(t.Context(), tavern.ID, tavern.Players[0].ID, session.PlayerPatch{HPDelta: &delta}); err != nil {
		t.Fatalf("PatchPlayer: %v", err)
	}
	if len(fake.listPresetCalls) != 0 {
		t.Errorf("HP churn should not refresh presets, got %v", fake.listPresetCalls)
	}

	photo := "aria.png"
	if err := s.PatchPlayer(t.Context(), tavern.ID, tavern.Players[0].ID, session.PlayerPatch{Photo: &photo}); err != nil {
		t.Fatalf("PatchPlayer: %v", err)
	}
	if len(fake.listPresetCalls) != 1 || fake.listPresetCalls[0] != session.PresetPlayers {
		t.Errorf("structural change should refresh player presets, got %v", fake.listPresetCalls)
	}
}

func TestPatchMob_StaysSceneLocal(t *testing.T) {
	doc := twoSceneDocument()
	s, fake := newStore(t, doc)

	tavern := doc.Scenes[0]
	delta := -3
	err := s.PatchMob(t.Context(), tavern.ID, tavern.Mobs[0].ID, session.MobPatch{HPDelta: &delta})
	if err != nil {
		t.Fatalf("PatchMob: %v", err)
	}

	local := s.Document()
	if got := local.Scenes[0].Mobs[0].CurrentHP; got != 4 {
		t.Errorf("patched mob currentHp = %d, want 4", got)
	}
	if got := local.Scenes[1].Mobs[0].CurrentHP; got != 7 {
		t.Errorf("same-named mob in the other scene should be untouched, got %d", got)
	}
	if len(fake.patchMobCalls) != 1 {
		t.Errorf("expected exactly one request, got %d", len(fake.patchMobCalls))
	}
}

func TestDeletePlayer_RemovesOnlyOneRow(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)

	tavern := doc.Scenes[0]
	if err := s.DeletePlayer(t.Context(), tavern.ID, tavern.Players[0].ID); err != nil {
		t.Fatalf("DeletePlayer: %v", err)
	}

	local := s.Document()
	if len(local.Scenes[0].Players) != 0 {
		t.Errorf("row should be gone from the first scene")
	}
	if len(local.Scenes[1].Players) != 1 {
		t.Errorf("the other scene's row should survive")
	}
}

func TestDeleteScene_RepointsActive(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)
	firstID, secondID := doc.Scenes[0].ID, doc.Scenes[1].ID

	if err := s.DeleteScene(t.Context(), firstID); err != nil {
		t.Fatalf("DeleteScene: %v", err)
	}

	local := s.Document()
	if local.ActiveSceneID != secondID {
		t.Errorf("active pointer should move to the surviving scene")
	}
}

func TestPatchScene_UnknownSceneFailsFast(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)

	name := "Renamed"
	err := s.PatchScene(t.Context(), uuid.New().String(), session.ScenePatch{Name: &name})
	if err == nil {
		t.Fatal("expected an error for an unknown scene")
	}
}

func TestCreateMob_AppendsServerCopy(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)

	created, err := s.CreateMob(t.Context(), doc.Scenes[0].ID, session.Mob{Name: "Ogre", MaxHP: 30})
	if err != nil {
		t.Fatalf("CreateMob: %v", err)
	}
	if created.ID == "" || created.CurrentHP != 30 {
		t.Errorf("server-shaped mob expected, got %+v", created)
	}

	local := s.Document()
	if got := len(local.Scenes[0].Mobs); got != 2 {
		t.Errorf("mob count = %d, want 2", got)
	}
}

func TestAdjustInventoryItem_FloorAndConfirm(t *testing.T) {
	doc := twoSceneDocument()
	doc.Scenes[0].Players[0].Inventory = []session.InventoryItem{
		{Name: "Tocha", Quantity: 1, Visible: true},
	}
	s, fake := newStore(t, doc)
	tavern := doc.Scenes[0]

	// Declined removal: nothing changes, nothing is persisted.
	err := s.AdjustInventoryItem(t.Context(), tavern.ID, tavern.Players[0].ID, "Tocha", -1, func() bool { return false })
	if err != nil {
		t.Fatalf("AdjustInventoryItem: %v", err)
	}
	local := s.Document()
	if got := local.Scenes[0].Players[0].Inventory; len(got) != 1 || got[0].Quantity != 1 {
		t.Errorf("declined removal should leave inventory untouched, got %+v", got)
	}
	if len(fake.patchPlayerCalls) != 0 {
		t.Errorf("declined removal should not hit the server, got %d calls", len(fake.patchPlayerCalls))
	}

	// Confirmed removal drops the item and persists the new inventory.
	err = s.AdjustInventoryItem(t.Context(), tavern.ID, tavern.Players[0].ID, "Tocha", -1, func() bool { return true })
	if err != nil {
		t.Fatalf("AdjustInventoryItem: %v", err)
	}
	local = s.Document()
	if got := local.Scenes[0].Players[0].Inventory; len(got) != 0 {
		t.Errorf("confirmed removal should drop the item, got %+v", got)
	}
	if len(fake.patchPlayerCalls) == 0 {
		t.Fatal("confirmed removal should persist")
	}
	last := fake.patchPlayerCalls[len(fake.patchPlayerCalls)-1]
	if last.patch.Inventory == nil || len(*last.patch.Inventory) != 0 {
		t.Errorf("persisted patch should carry the emptied inventory, got %+v", last.patch)
	}
}

func TestSyncPlayers_ReplacesSceneRows(t *testing.T) {
	doc := twoSceneDocument()
	s, fake := newStore(t, doc)
	tavern := doc.Scenes[0]
	docksPlayerID := doc.Scenes[1].Players[0].ID

	serverRow := tavern.Players[0].Clone()
	serverRow.CurrentHP = 3
	newcomer := session.NewPlayer(session.Player{CharacterName: "Bram", MaxHP: 18})
	fake.syncPlayers = []session.Player{serverRow, newcomer}

	if err := s.SyncPlayers(t.Context(), tavern.ID); err != nil {
		t.Fatalf("SyncPlayers: %v", err)
	}
	if len(fake.syncPlayerCalls) != 1 || fake.syncPlayerCalls[0] != tavern.ID {
		t.Fatalf("expected one sync call for %s, got %v", tavern.ID, fake.syncPlayerCalls)
	}

	local := s.Document()
	if got := local.Scenes[0].Players; len(got) != 2 {
		t.Fatalf("expected 2 player rows after sync, got %d", len(got))
	} else if got[0].CurrentHP != 3 || got[1].CharacterName != "Bram" {
		t.Errorf("sync should install the server rows, got %+v", got)
	}
	if local.Scenes[1].Players[0].ID != docksPlayerID {
		t.Errorf("sync must not touch other scenes")
	}
	if local.Revision != doc.Revision+1 {
		t.Errorf("expected revision %d after sync, got %d", doc.Revision+1, local.Revision)
	}
}

func TestSyncPlayers_UnknownSceneFailsFast(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)

	if err := s.SyncPlayers(t.Context(), uuid.New().String()); err == nil {
		t.Fatal("expected error for scene missing locally")
	}
}

func TestDocument_CopyDoesNotAliasStore(t *testing.T) {
	doc := twoSceneDocument()
	s, _ := newStore(t, doc)

	snapshot := s.Document()
	snapshot.Scenes[0].Players[0].CurrentHP = -999
	snapshot.Scenes[0].Players[0].Conditions = append(snapshot.Scenes[0].Players[0].Conditions, "scorched")

	fresh := s.Document()
	if fresh.Scenes[0].Players[0].CurrentHP == -999 {
		t.Error("mutating a snapshot scene wrote through to the store")
	}
	if session.HasCondition(fresh.Scenes[0].Players[0].Conditions, "scorched") {
		t.Error("mutating snapshot conditions wrote through to the store")
	}

	scene, ok := s.ActiveScene()
	if !ok {
		t.Fatal("expected an active scene")
	}
	scene.Mobs[0].CurrentHP = -999
	fresh = s.Document()
	if fresh.Scenes[0].Mobs[0].CurrentHP == -999 {
		t.Error("mutating an ActiveScene copy wrote through to the store")
	}
}
