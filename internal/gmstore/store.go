// Package gmstore is the GM client's session state: a local copy of the
// document mutated optimistically, with persistence pushed to the server in
// the background. Creations round-trip synchronously because the server owns
// identity (ids, access tokens); patches and deletes apply locally first.
package gmstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mesa-rpg/mesa/internal/api"
	"github.com/mesa-rpg/mesa/internal/session"
)

// API is the slice of the server client the store needs. apiclient.Client
// satisfies it; tests substitute a fake.
type API interface {
	GetState(ctx context.Context) (*session.Document, error)
	SetActiveScene(ctx context.Context, sceneID string) (*api.ActiveSceneResponse, error)
	CreateScene(ctx context.Context, name string) (*api.SceneResponse, error)
	DuplicateScene(ctx context.Context, sceneID string) (*api.SceneResponse, error)
	PatchScene(ctx context.Context, sceneID string, patch session.ScenePatch) (*api.SceneResponse, error)
	DeleteScene(ctx context.Context, sceneID string) error
	CreateMob(ctx context.Context, sceneID string, template session.Mob) (*api.MobResponse, error)
	PatchMob(ctx context.Context, sceneID, mobID string, patch session.MobPatch) (*api.MobResponse, error)
	DeleteMob(ctx context.Context, sceneID, mobID string) error
	CreatePlayer(ctx context.Context, sceneID string, template session.Player) (*api.PlayerResponse, error)
	PatchPlayer(ctx context.Context, sceneID, playerID string, patch session.PlayerPatch) (*api.PlayerResponse, error)
	DeletePlayer(ctx context.Context, sceneID, playerID string) error
	CreateShip(ctx context.Context, sceneID string, template session.Ship) (*api.ShipResponse, error)
	PatchShip(ctx context.Context, sceneID, shipID string, patch session.ShipPatch) (*api.ShipResponse, error)
	DeleteShip(ctx context.Context, sceneID, shipID string) error
	CreateTrack(ctx context.Context, sceneID string, template session.Track) (*api.TrackResponse, error)
	PatchTrack(ctx context.Context, sceneID, trackID string, patch session.TrackPatch) (*api.TrackResponse, error)
	DeleteTrack(ctx context.Context, sceneID, trackID string) error
	SyncPlayers(ctx context.Context, sceneID string) (*api.ScenePlayersResponse, error)
	ListPresets(ctx context.Context, presetType string) (*api.PresetsResponse, error)
}

// Store holds the GM's working copy of the session document.
type Store struct {
	mu  sync.Mutex
	doc *session.Document

	api    API
	logger *slog.Logger

	wg          sync.WaitGroup
	syncPersist bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for background persistence failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// WithSynchronousPersistence makes every persistence call run inline instead
// of in a goroutine. Tests use it to assert on server state deterministically.
func WithSynchronousPersistence() Option {
	return func(s *Store) { s.syncPersist = true }
}

// New creates an empty store. Call Refresh before reading.
func New(client API, opts ...Option) *Store {
	s := &Store{
		api:    client,
		doc:    &session.Document{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh replaces the local document with the server's authoritative copy.
func (s *Store) Refresh(ctx context.Context) error {
	doc, err := s.api.GetState(ctx)
	if err != nil {
		return fmt.Errorf("refresh state: %w", err)
	}
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	return nil
}

// SyncPlayers replaces one scene's player rows from the server. It is the
// lightweight refresh used during play, when another client may have written
// player state, without refetching the whole document.
func (s *Store) SyncPlayers(ctx context.Context, sceneID string) error {
	resp, err := s.api.SyncPlayers(ctx, sceneID)
	if err != nil {
		return fmt.Errorf("sync players: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	sc.Players = resp.Players
	if resp.Revision > s.doc.Revision {
		s.doc.Revision = resp.Revision
	}
	return nil
}

// Document returns a deep snapshot copy of the local document. Mutating the
// copy does not affect the store.
func (s *Store) Document() session.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// ActiveScene returns a deep copy of the active scene and true, or false
// when no scene exists.
func (s *Store) ActiveScene() (session.Scene, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc := s.doc.ActiveScene()
	if sc == nil {
		return session.Scene{}, false
	}
	return sc.Clone(), true
}

// Wait blocks until all background persistence calls have finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// persist runs fn inline or in the background depending on configuration.
// Background failures are logged; the optimistic local state stands until the
// next Refresh reconciles it.
func (s *Store) persist(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if s.syncPersist {
		return fn(ctx)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("persist failed", "op", op, "error", err)
		}
	}()
	return nil
}

// SetActiveScene moves the active pointer locally and persists in the
// background.
func (s *Store) SetActiveScene(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	if s.doc.SceneByID(sceneID) == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	s.doc.ActiveSceneID = sceneID
	s.mu.Unlock()

	return s.persist(ctx, "set-active-scene", func(ctx context.Context) error {
		_, err := s.api.SetActiveScene(ctx, sceneID)
		return err
	})
}

// CreateScene round-trips to the server and appends the created scene.
func (s *Store) CreateScene(ctx context.Context, name string) (session.Scene, error) {
	resp, err := s.api.CreateScene(ctx, name)
	if err != nil {
		return session.Scene{}, err
	}
	s.mu.Lock()
	s.doc.Scenes = append(s.doc.Scenes, resp.Scene)
	s.mu.Unlock()
	return resp.Scene, nil
}

// DuplicateScene round-trips to the server and appends the copy.
func (s *Store) DuplicateScene(ctx context.Context, sceneID string) (session.Scene, error) {
	resp, err := s.api.DuplicateScene(ctx, sceneID)
	if err != nil {
		return session.Scene{}, err
	}
	s.mu.Lock()
	s.doc.Scenes = append(s.doc.Scenes, resp.Scene)
	s.mu.Unlock()
	return resp.Scene, nil
}

// PatchScene applies the patch locally and persists in the background.
func (s *Store) PatchScene(ctx context.Context, sceneID string, patch session.ScenePatch) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	sc.Apply(patch)
	s.mu.Unlock()

	return s.persist(ctx, "patch-scene", func(ctx context.Context) error {
		_, err := s.api.PatchScene(ctx, sceneID, patch)
		return err
	})
}

// DeleteScene removes the scene locally, repoints a dangling active pointer
// the way the server does, and persists in the background.
func (s *Store) DeleteScene(ctx context.Context, sceneID string) error {
	s.mu.Lock()
	if !s.doc.RemoveScene(sceneID) {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	if s.doc.ActiveSceneID == sceneID {
		s.doc.ActiveSceneID = ""
		if len(s.doc.Scenes) > 0 {
			s.doc.ActiveSceneID = s.doc.Scenes[0].ID
		}
	}
	s.mu.Unlock()

	return s.persist(ctx, "delete-scene", func(ctx context.Context) error {
		return s.api.DeleteScene(ctx, sceneID)
	})
}

// CreateMob round-trips to the server and appends the created mob.
func (s *Store) CreateMob(ctx context.Context, sceneID string, template session.Mob) (session.Mob, error) {
	resp, err := s.api.CreateMob(ctx, sceneID, template)
	if err != nil {
		return session.Mob{}, err
	}
	s.mu.Lock()
	if sc := s.doc.SceneByID(sceneID); sc != nil {
		sc.Mobs = append(sc.Mobs, resp.Mob)
	}
	s.mu.Unlock()
	return resp.Mob, nil
}

// PatchMob applies the patch locally and persists in the background. Mobs are
// scene-local, so nothing propagates.
func (s *Store) PatchMob(ctx context.Context, sceneID, mobID string, patch session.MobPatch) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	mob := sc.MobByID(mobID)
	if mob == nil {
		s.mu.Unlock()
		return fmt.Errorf("mob %s: not in scene %s", mobID, sceneID)
	}
	mob.Apply(patch)
	s.mu.Unlock()

	return s.persist(ctx, "patch-mob", func(ctx context.Context) error {
		_, err := s.api.PatchMob(ctx, sceneID, mobID, patch)
		return err
	})
}

// DeleteMob removes the mob locally and persists in the background.
func (s *Store) DeleteMob(ctx context.Context, sceneID, mobID string) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil || !sc.RemoveMob(mobID) {
		s.mu.Unlock()
		return fmt.Errorf("mob %s: not in scene %s", mobID, sceneID)
	}
	s.mu.Unlock()

	return s.persist(ctx, "delete-mob", func(ctx context.Context) error {
		return s.api.DeleteMob(ctx, sceneID, mobID)
	})
}

// CreatePlayer round-trips to the server (which mints the access token) and
// appends the created row.
func (s *Store) CreatePlayer(ctx context.Context, sceneID string, template session.Player) (session.Player, error) {
	resp, err := s.api.CreatePlayer(ctx, sceneID, template)
	if err != nil {
		return session.Player{}, err
	}
	s.mu.Lock()
	if sc := s.doc.SceneByID(sceneID); sc != nil {
		sc.Players = append(sc.Players, resp.Player)
	}
	s.mu.Unlock()
	return resp.Player, nil
}

// playerRow addresses one scene-local player row.
type playerRow struct {
	sceneID  string
	playerID string
}

// PatchPlayer applies the patch to the named row and to every other scene row
// sharing its character name, then persists one request per touched row. The
// server is a per-row mutator; cross-scene identity lives here.
func (s *Store) PatchPlayer(ctx context.Context, sceneID, playerID string, patch session.PlayerPatch) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	origin := sc.PlayerByID(playerID)
	if origin == nil {
		s.mu.Unlock()
		return fmt.Errorf("player %s: not in scene %s", playerID, sceneID)
	}
	name := origin.CharacterName

	var rows []playerRow
	for i := range s.doc.Scenes {
		scene := &s.doc.Scenes[i]
		for j := range scene.Players {
			if scene.Players[j].CharacterName != name {
				continue
			}
			scene.Players[j].Apply(patch)
			rows = append(rows, playerRow{sceneID: scene.ID, playerID: scene.Players[j].ID})
		}
	}
	s.mu.Unlock()

	err := s.persist(ctx, "patch-player", func(ctx context.Context) error {
		for _, row := range rows {
			if _, err := s.api.PatchPlayer(ctx, row.sceneID, row.playerID, patch); err != nil {
				return fmt.Errorf("row %s/%s: %w", row.sceneID, row.playerID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if patch.StructuralChange() {
		return s.refreshPlayerPresets(ctx)
	}
	return nil
}

// refreshPlayerPresets refetches saved player templates. Structural edits
// (rename, photo, inventory) can come from template updates, so the cached
// presets go stale; plain HP churn during combat does not touch them.
func (s *Store) refreshPlayerPresets(ctx context.Context) error {
	return s.persist(ctx, "refresh-player-presets", func(ctx context.Context) error {
		resp, err := s.api.ListPresets(ctx, session.PresetPlayers)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.doc.Presets.Players = resp.Players
		s.mu.Unlock()
		return nil
	})
}

// AdjustInventoryItem applies a quantity delta to one item in a player's
// inventory, fanning out like any other player patch. A decrement below 1
// goes through confirmRemove; declined removals leave the inventory as is and
// send nothing to the server.
func (s *Store) AdjustInventoryItem(ctx context.Context, sceneID, playerID, itemName string, delta int, confirmRemove func() bool) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	player := sc.PlayerByID(playerID)
	if player == nil {
		s.mu.Unlock()
		return fmt.Errorf("player %s: not in scene %s", playerID, sceneID)
	}

	before := len(player.Inventory)
	var beforeQty int
	for _, it := range player.Inventory {
		if it.Name == itemName {
			beforeQty = it.Quantity
		}
	}
	adjusted := session.AdjustItemQuantity(player.Inventory, itemName, delta, confirmRemove)
	changed := len(adjusted) != before
	if !changed {
		for _, it := range adjusted {
			if it.Name == itemName && it.Quantity != beforeQty {
				changed = true
			}
		}
	}
	s.mu.Unlock()

	if !changed {
		return nil
	}
	inv := append([]session.InventoryItem(nil), adjusted...)
	return s.PatchPlayer(ctx, sceneID, playerID, session.PlayerPatch{Inventory: &inv})
}

// DeletePlayer removes a single scene row. Other rows sharing the character
// name survive; removing a character from one scene is a normal GM action.
func (s *Store) DeletePlayer(ctx context.Context, sceneID, playerID string) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil || !sc.RemovePlayer(playerID) {
		s.mu.Unlock()
		return fmt.Errorf("player %s: not in scene %s", playerID, sceneID)
	}
	s.mu.Unlock()

	return s.persist(ctx, "delete-player", func(ctx context.Context) error {
		return s.api.DeletePlayer(ctx, sceneID, playerID)
	})
}

// CreateShip round-trips to the server and appends the created ship.
func (s *Store) CreateShip(ctx context.Context, sceneID string, template session.Ship) (session.Ship, error) {
	resp, err := s.api.CreateShip(ctx, sceneID, template)
	if err != nil {
		return session.Ship{}, err
	}
	s.mu.Lock()
	if sc := s.doc.SceneByID(sceneID); sc != nil {
		sc.Ships = append(sc.Ships, resp.Ship)
	}
	s.mu.Unlock()
	return resp.Ship, nil
}

// PatchShip applies the patch locally and persists in the background.
func (s *Store) PatchShip(ctx context.Context, sceneID, shipID string, patch session.ShipPatch) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	ship := sc.ShipByID(shipID)
	if ship == nil {
		s.mu.Unlock()
		return fmt.Errorf("ship %s: not in scene %s", shipID, sceneID)
	}
	ship.Apply(patch)
	s.mu.Unlock()

	return s.persist(ctx, "patch-ship", func(ctx context.Context) error {
		_, err := s.api.PatchShip(ctx, sceneID, shipID, patch)
		return err
	})
}

// DeleteShip removes the ship locally and persists in the background.
func (s *Store) DeleteShip(ctx context.Context, sceneID, shipID string) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil || !sc.RemoveShip(shipID) {
		s.mu.Unlock()
		return fmt.Errorf("ship %s: not in scene %s", shipID, sceneID)
	}
	s.mu.Unlock()

	return s.persist(ctx, "delete-ship", func(ctx context.Context) error {
		return s.api.DeleteShip(ctx, sceneID, shipID)
	})
}

// CreateTrack round-trips to the server and appends the created entry.
func (s *Store) CreateTrack(ctx context.Context, sceneID string, template session.Track) (session.Track, error) {
	resp, err := s.api.CreateTrack(ctx, sceneID, template)
	if err != nil {
		return session.Track{}, err
	}
	s.mu.Lock()
	if sc := s.doc.SceneByID(sceneID); sc != nil {
		sc.Playlist = append(sc.Playlist, resp.Track)
	}
	s.mu.Unlock()
	return resp.Track, nil
}

// PatchTrack applies the patch locally and persists in the background.
func (s *Store) PatchTrack(ctx context.Context, sceneID, trackID string, patch session.TrackPatch) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("scene %s: not in local document", sceneID)
	}
	track := sc.TrackByID(trackID)
	if track == nil {
		s.mu.Unlock()
		return fmt.Errorf("track %s: not in scene %s", trackID, sceneID)
	}
	track.Apply(patch)
	s.mu.Unlock()

	return s.persist(ctx, "patch-track", func(ctx context.Context) error {
		_, err := s.api.PatchTrack(ctx, sceneID, trackID, patch)
		return err
	})
}

// DeleteTrack removes the entry locally and persists in the background.
func (s *Store) DeleteTrack(ctx context.Context, sceneID, trackID string) error {
	s.mu.Lock()
	sc := s.doc.SceneByID(sceneID)
	if sc == nil || !sc.RemoveTrack(trackID) {
		s.mu.Unlock()
		return fmt.Errorf("track %s: not in scene %s", trackID, sceneID)
	}
	s.mu.Unlock()

	return s.persist(ctx, "delete-track", func(ctx context.Context) error {
		return s.api.DeleteTrack(ctx, sceneID, trackID)
	})
}
