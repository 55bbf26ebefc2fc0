// Package apiclient is a typed HTTP client for the session API. The GM store
// and the player poller both talk to the server through it.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mesa-rpg/mesa/internal/api"
	"github.com/mesa-rpg/mesa/internal/session"
)

// APIError is a structured error decoded from the server's error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %s (%s, http %d)", e.Message, e.Code, e.Status)
}

// Client talks to one session server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL (no trailing slash).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	var envelope api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	} else {
		apiErr.Code = "unknown"
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}

// IsNotFound reports whether err is an APIError with a 404 status.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsUnauthorized reports whether err is an APIError with a 401 status.
func IsUnauthorized(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// GetState fetches the full session document.
func (c *Client) GetState(ctx context.Context) (*session.Document, error) {
	var doc session.Document
	if err := c.do(ctx, http.MethodGet, "/state", nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// GetClientConfig fetches runtime settings for browser clients.
func (c *Client) GetClientConfig(ctx context.Context) (*api.ClientConfig, error) {
	var cfg api.ClientConfig
	if err := c.do(ctx, http.MethodGet, "/state/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetActiveScene moves the shared active-scene pointer.
func (c *Client) SetActiveScene(ctx context.Context, sceneID string) (*api.ActiveSceneResponse, error) {
	var resp api.ActiveSceneResponse
	err := c.do(ctx, http.MethodPut, "/state/active-scene", api.SetActiveSceneRequest{SceneID: sceneID}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateScene creates an empty scene.
func (c *Client) CreateScene(ctx context.Context, name string) (*api.SceneResponse, error) {
	var resp api.SceneResponse
	err := c.do(ctx, http.MethodPost, "/scenes", api.CreateSceneRequest{Name: name}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DuplicateScene deep-copies a scene under fresh identities.
func (c *Client) DuplicateScene(ctx context.Context, sceneID string) (*api.SceneResponse, error) {
	var resp api.SceneResponse
	err := c.do(ctx, http.MethodPost, "/scenes/"+url.PathEscape(sceneID)+"/duplicate", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchScene applies a partial scene update.
func (c *Client) PatchScene(ctx context.Context, sceneID string, patch session.ScenePatch) (*api.SceneResponse, error) {
	var resp api.SceneResponse
	err := c.do(ctx, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID), patch, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteScene removes a scene.
func (c *Client) DeleteScene(ctx context.Context, sceneID string) error {
	return c.do(ctx, http.MethodDelete, "/scenes/"+url.PathEscape(sceneID), nil, nil)
}

// SyncPlayers fetches the authoritative player rows for one scene.
func (c *Client) SyncPlayers(ctx context.Context, sceneID string) (*api.ScenePlayersResponse, error) {
	var resp api.ScenePlayersResponse
	err := c.do(ctx, http.MethodGet, "/scenes/"+url.PathEscape(sceneID)+"/players", nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateMob adds a mob to a scene from a template.
func (c *Client) CreateMob(ctx context.Context, sceneID string, template session.Mob) (*api.MobResponse, error) {
	var resp api.MobResponse
	err := c.do(ctx, http.MethodPost, "/scenes/"+url.PathEscape(sceneID)+"/mobs", template, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchMob applies a partial mob update.
func (c *Client) PatchMob(ctx context.Context, sceneID, mobID string, patch session.MobPatch) (*api.MobResponse, error) {
	var resp api.MobResponse
	err := c.do(ctx, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID)+"/mobs/"+url.PathEscape(mobID), patch, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMob removes a mob from a scene.
func (c *Client) DeleteMob(ctx context.Context, sceneID, mobID string) error {
	return c.do(ctx, http.MethodDelete, "/scenes/"+url.PathEscape(sceneID)+"/mobs/"+url.PathEscape(mobID), nil, nil)
}

// CreatePlayer adds a player row to a scene from a template.
func (c *Client) CreatePlayer(ctx context.Context, sceneID string, template session.Player) (*api.PlayerResponse, error) {
	var resp api.PlayerResponse
	err := c.do(ctx, http.MethodPost, "/scenes/"+url.PathEscape(sceneID)+"/players", template, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchPlayer applies a partial update to one player row. Cross-scene
// propagation by character name is the caller's job.
func (c *Client) PatchPlayer(ctx context.Context, sceneID, playerID string, patch session.PlayerPatch) (*api.PlayerResponse, error) {
	var resp api.PlayerResponse
	err := c.do(ctx, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID)+"/players/"+url.PathEscape(playerID), patch, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeletePlayer removes a player row from a scene.
func (c *Client) DeletePlayer(ctx context.Context, sceneID, playerID string) error {
	return c.do(ctx, http.MethodDelete, "/scenes/"+url.PathEscape(sceneID)+"/players/"+url.PathEscape(playerID), nil, nil)
}

// CreateShip adds a ship to a scene from a template.
func (c *Client) CreateShip(ctx context.Context, sceneID string, template session.Ship) (*api.ShipResponse, error) {
	var resp api.ShipResponse
	err := c.do(ctx, http.MethodPost, "/scenes/"+url.PathEscape(sceneID)+"/ships", template, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchShip applies a partial ship update.
func (c *Client) PatchShip(ctx context.Context, sceneID, shipID string, patch session.ShipPatch) (*api.ShipResponse, error) {
	var resp api.ShipResponse
	err := c.do(ctx, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID)+"/ships/"+url.PathEscape(shipID), patch, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteShip removes a ship from a scene.
func (c *Client) DeleteShip(ctx context.Context, sceneID, shipID string) error {
	return c.do(ctx, http.MethodDelete, "/scenes/"+url.PathEscape(sceneID)+"/ships/"+url.PathEscape(shipID), nil, nil)
}

// CreateTrack adds a playlist entry to a scene.
func (c *Client) CreateTrack(ctx context.Context, sceneID string, template session.Track) (*api.TrackResponse, error) {
	var resp api.TrackResponse
	err := c.do(ctx, http.MethodPost, "/scenes/"+url.PathEscape(sceneID)+"/tracks", template, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchTrack applies a partial playlist-entry update.
func (c *Client) PatchTrack(ctx context.Context, sceneID, trackID string, patch session.TrackPatch) (*api.TrackResponse, error) {
	var resp api.TrackResponse
	err := c.do(ctx, http.MethodPatch, "/scenes/"+url.PathEscape(sceneID)+"/tracks/"+url.PathEscape(trackID), patch, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTrack removes a playlist entry from a scene.
func (c *Client) DeleteTrack(ctx context.Context, sceneID, trackID string) error {
	return c.do(ctx, http.MethodDelete, "/scenes/"+url.PathEscape(sceneID)+"/tracks/"+url.PathEscape(trackID), nil, nil)
}

// PlayerByName fetches the player-facing snapshot for a character in the
// active scene.
func (c *Client) PlayerByName(ctx context.Context, characterName string) (*session.PlayerSnapshot, error) {
	var snap session.PlayerSnapshot
	err := c.do(ctx, http.MethodGet, "/players/by-name/"+url.PathEscape(characterName), nil, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// PlayerByToken fetches the player-facing snapshot for an access token.
func (c *Client) PlayerByToken(ctx context.Context, token string) (*session.PlayerSnapshot, error) {
	var snap session.PlayerSnapshot
	err := c.do(ctx, http.MethodGet, "/players/by-token/"+url.PathEscape(token), nil, &snap)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListPresets fetches one preset collection.
func (c *Client) ListPresets(ctx context.Context, presetType string) (*api.PresetsResponse, error) {
	var resp api.PresetsResponse
	err := c.do(ctx, http.MethodGet, "/presets/"+url.PathEscape(presetType), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddPreset saves a combatant template. The template payload must match the
// preset type (session.Mob, session.Player or session.Ship).
func (c *Client) AddPreset(ctx context.Context, presetType string, template any) error {
	return c.do(ctx, http.MethodPost, "/presets/"+url.PathEscape(presetType), template, nil)
}

// DeletePreset removes a saved template.
func (c *Client) DeletePreset(ctx context.Context, presetType, presetID string) error {
	return c.do(ctx, http.MethodDelete, "/presets/"+url.PathEscape(presetType)+"/"+url.PathEscape(presetID), nil, nil)
}

// ListItems fetches the GM-authored item compendium.
func (c *Client) ListItems(ctx context.Context) (*api.ItemsResponse, error) {
	var resp api.ItemsResponse
	if err := c.do(ctx, http.MethodGet, "/items", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// CreateItem adds a custom item.
func (c *Client) CreateItem(ctx context.Context, item session.Item) (*api.ItemResponse, error) {
	var resp api.ItemResponse
	if err := c.do(ctx, http.MethodPost, "/items", item, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PatchItem updates fields on a custom item.
func (c *Client) PatchItem(ctx context.Context, itemID string, patch api.ItemPatch) (*api.ItemResponse, error) {
	var resp api.ItemResponse
	if err := c.do(ctx, http.MethodPatch, "/items/"+url.PathEscape(itemID), patch, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteItem removes a custom item.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	return c.do(ctx, http.MethodDelete, "/items/"+url.PathEscape(itemID), nil, nil)
}
