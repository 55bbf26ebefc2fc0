// Package playerclient implements the player's view of a session: a polling
// loop that follows the active scene, an initiative prompt trigger, and
// optimistic writes for the few fields a player may change.
package playerclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesa-rpg/mesa/internal/api"
	"github.com/mesa-rpg/mesa/internal/apiclient"
	"github.com/mesa-rpg/mesa/internal/session"
)

// DefaultInterval matches the server's advertised poll interval.
const DefaultInterval = 3 * time.Second

// ErrNoSnapshot is returned by writes attempted before the first successful
// poll.
var ErrNoSnapshot = errors.New("playerclient: no snapshot yet")

// API is the slice of the server client the poller needs.
type API interface {
	PlayerByName(ctx context.Context, characterName string) (*session.PlayerSnapshot, error)
	PlayerByToken(ctx context.Context, token string) (*session.PlayerSnapshot, error)
	PatchPlayer(ctx context.Context, sceneID, playerID string, patch session.PlayerPatch) (*api.PlayerResponse, error)
}

// Config sets up a Poller. CharacterName, Token or both must be set; lookups
// go by name first and fall back to the token when the name misses.
type Config struct {
	CharacterName string
	Token         string
	Interval      time.Duration

	// OnUpdate fires after every applied snapshot.
	OnUpdate func(session.PlayerSnapshot)
	// OnSceneChange fires when the active scene moved under the player.
	OnSceneChange func(from, to session.SceneView)
	// OnInitiativePrompt fires once when the scene starts collecting
	// initiative and this player has not rolled.
	OnInitiativePrompt func()

	Logger *slog.Logger
}

// Poller polls the server for the player's snapshot and keeps a local copy.
type Poller struct {
	api API
	cfg Config

	mu         sync.Mutex
	snap       *session.PlayerSnapshot
	promptOpen bool
	terminal   error
}

// New creates a poller. Run starts the loop.
func New(client API, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{api: client, cfg: cfg}
}

// Snapshot returns the last applied snapshot, and false before the first
// successful poll.
func (p *Poller) Snapshot() (session.PlayerSnapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.snap == nil {
		return session.PlayerSnapshot{}, false
	}
	snap := *p.snap
	snap.Player = snap.Player.Clone()
	return snap, true
}

// Err returns the terminal error, or nil while the poller is healthy.
func (p *Poller) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminal
}

// Run polls until ctx is cancelled or the poller hits a terminal error
// (character gone and token rejected). Transient errors are logged and
// retried on the next tick.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := p.PollOnce(ctx); err != nil {
			if p.Err() != nil {
				return err
			}
			p.cfg.Logger.Warn("poll failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// PollOnce performs a single fetch-and-apply cycle.
func (p *Poller) PollOnce(ctx context.Context) error {
	if err := p.Err(); err != nil {
		return err
	}
	snap, err := p.fetch(ctx)
	if err != nil {
		return err
	}
	p.apply(*snap)
	return nil
}

// fetch resolves the snapshot by name, falling back to the token. A name miss
// usually means a rename; the token still carries the original character name
// and keeps working until the GM deletes the character outright.
func (p *Poller) fetch(ctx context.Context) (*session.PlayerSnapshot, error) {
	if p.cfg.CharacterName != "" {
		snap, err := p.api.PlayerByName(ctx, p.cfg.CharacterName)
		if err == nil {
			return snap, nil
		}
		if !apiclient.IsNotFound(err) {
			return nil, err
		}
		if p.cfg.Token == "" {
			return nil, p.fail(fmt.Errorf("character %q not found and no token to fall back to: %w", p.cfg.CharacterName, err))
		}
	}

	snap, err := p.api.PlayerByToken(ctx, p.cfg.Token)
	if err != nil {
		if apiclient.IsNotFound(err) || apiclient.IsUnauthorized(err) {
			return nil, p.fail(fmt.Errorf("token lookup failed: %w", err))
		}
		return nil, err
	}
	return snap, nil
}

func (p *Poller) fail(err error) error {
	p.mu.Lock()
	p.terminal = err
	p.mu.Unlock()
	return err
}

// apply installs the snapshot, rejecting ones older than what we already
// have: responses can arrive out of order, and an optimistic local write must
// not be clobbered by a snapshot taken before it.
func (p *Poller) apply(snap session.PlayerSnapshot) {
	p.mu.Lock()
	if p.snap != nil && snap.Revision < p.snap.Revision {
		p.mu.Unlock()
		return
	}

	var sceneChanged bool
	var prevScene session.SceneView
	if p.snap != nil && p.snap.Scene.ID != snap.Scene.ID {
		sceneChanged = true
		prevScene = p.snap.Scene
	}
	p.snap = &snap

	if sceneChanged {
		p.promptOpen = false
	}
	var prompt bool
	if snap.Scene.InitiativeActive && snap.Player.Initiative == session.InitiativeUnrolled {
		if !p.promptOpen {
			p.promptOpen = true
			prompt = true
		}
	} else {
		p.promptOpen = false
	}
	p.mu.Unlock()

	if sceneChanged && p.cfg.OnSceneChange != nil {
		p.cfg.OnSceneChange(prevScene, snap.Scene)
	}
	if prompt && p.cfg.OnInitiativePrompt != nil {
		p.cfg.OnInitiativePrompt()
	}
	if p.cfg.OnUpdate != nil {
		p.cfg.OnUpdate(snap)
	}
}

// SubmitInitiative writes the player's roll, optimistically closing the
// prompt before the server confirms.
func (p *Poller) SubmitInitiative(ctx context.Context, value int) error {
	p.mu.Lock()
	if p.snap == nil {
		p.mu.Unlock()
		return ErrNoSnapshot
	}
	sceneID, playerID := p.snap.Scene.ID, p.snap.Player.ID
	p.snap.Player.Initiative = value
	p.promptOpen = false
	p.mu.Unlock()

	_, err := p.api.PatchPlayer(ctx, sceneID, playerID, session.PlayerPatch{Initiative: &value})
	if err != nil {
		return fmt.Errorf("submit initiative: %w", err)
	}
	return nil
}

// AdjustHP applies a self-reported HP delta (potions, environmental damage),
// optimistically clamping the local copy.
func (p *Poller) AdjustHP(ctx context.Context, delta int) error {
	p.mu.Lock()
	if p.snap == nil {
		p.mu.Unlock()
		return ErrNoSnapshot
	}
	sceneID, playerID := p.snap.Scene.ID, p.snap.Player.ID
	p.snap.Player.CurrentHP = session.ClampHP(p.snap.Player.CurrentHP, delta, p.snap.Player.MaxHP)
	p.mu.Unlock()

	_, err := p.api.PatchPlayer(ctx, sceneID, playerID, session.PlayerPatch{HPDelta: &delta})
	if err != nil {
		return fmt.Errorf("adjust hp: %w", err)
	}
	return nil
}

// ToggleCondition flips one of the player's own condition tags, applying the
// toggle locally before the server confirms.
func (p *Poller) ToggleCondition(ctx context.Context, tag string) error {
	p.mu.Lock()
	if p.snap == nil {
		p.mu.Unlock()
		return ErrNoSnapshot
	}
	sceneID, playerID := p.snap.Scene.ID, p.snap.Player.ID
	p.snap.Player.Conditions = session.ToggleCondition(p.snap.Player.Conditions, tag)
	p.mu.Unlock()

	_, err := p.api.PatchPlayer(ctx, sceneID, playerID, session.PlayerPatch{ToggleCondition: &tag})
	if err != nil {
		return fmt.Errorf("toggle condition: %w", err)
	}
	return nil
}

// AdjustInventoryItem applies a quantity delta to one of the player's visible
// items. Decrements that would drop the quantity below one go through
// confirmRemove; declined removals and unknown names change nothing and send
// nothing. The wire patch targets the single item so the GM-only entries the
// player cannot see survive.
func (p *Poller) AdjustInventoryItem(ctx context.Context, name string, delta int, confirmRemove func() bool) error {
	p.mu.Lock()
	if p.snap == nil {
		p.mu.Unlock()
		return ErrNoSnapshot
	}
	sceneID, playerID := p.snap.Scene.ID, p.snap.Player.ID

	before := len(p.snap.Player.Inventory)
	var beforeQty int
	for _, it := range p.snap.Player.Inventory {
		if it.Name == name {
			beforeQty = it.Quantity
		}
	}
	adjusted := session.AdjustItemQuantity(p.snap.Player.Inventory, name, delta, confirmRemove)
	p.snap.Player.Inventory = adjusted

	removed := len(adjusted) != before
	changed := removed
	if !changed {
		for _, it := range adjusted {
			if it.Name == name && it.Quantity != beforeQty {
				changed = true
			}
		}
	}
	p.mu.Unlock()

	if !changed {
		return nil
	}
	adj := session.ItemAdjustment{Name: name, Delta: delta, Remove: removed}
	_, err := p.api.PatchPlayer(ctx, sceneID, playerID, session.PlayerPatch{AdjustItem: &adj})
	if err != nil {
		return fmt.Errorf("adjust inventory item: %w", err)
	}
	return nil
}
