package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mesa-rpg/mesa/internal/assets"
	"github.com/mesa-rpg/mesa/internal/auth"
	"github.com/mesa-rpg/mesa/internal/docstore"
)

// RouterConfig carries everything the route table needs.
type RouterConfig struct {
	Store          *docstore.Store
	Tokens         *auth.PlayerTokens
	Assets         assets.Service
	AssetsDir      string // non-empty mounts a file server at /assets/files/
	BaseURL        string
	PollIntervalMS int
	MaxUploadBytes int64
	Registry       *prometheus.Registry // nil disables /metrics
	Health         HealthHandlersConfig
}

// NewRouter builds the full route table for the session API.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	state := NewStateHandlers(cfg.Store, cfg.BaseURL, cfg.PollIntervalMS)
	scenes := NewSceneHandlers(cfg.Store)
	mobs := NewMobHandlers(cfg.Store)
	players := NewPlayerHandlers(cfg.Store, cfg.Tokens, cfg.BaseURL)
	ships := NewShipHandlers(cfg.Store)
	tracks := NewTrackHandlers(cfg.Store)
	lookup := NewLookupHandlers(cfg.Store, cfg.Tokens)
	presets := NewPresetHandlers(cfg.Store)
	items := NewItemHandlers(cfg.Store)
	health := NewHealthHandlers(cfg.Health)

	mux.HandleFunc("GET /state", state.GetState)
	mux.HandleFunc("GET /state/config", state.GetClientConfig)
	mux.HandleFunc("PUT /state/active-scene", state.SetActiveScene)

	mux.HandleFunc("POST /scenes", scenes.CreateScene)
	mux.HandleFunc("POST /scenes/{id}/duplicate", scenes.DuplicateScene)
	mux.HandleFunc("PATCH /scenes/{id}", scenes.PatchScene)
	mux.HandleFunc("DELETE /scenes/{id}", scenes.DeleteScene)
	mux.HandleFunc("GET /scenes/{id}/players", scenes.SyncPlayers)

	mux.HandleFunc("POST /scenes/{id}/mobs", mobs.CreateMob)
	mux.HandleFunc("PATCH /scenes/{id}/mobs/{mobID}", mobs.PatchMob)
	mux.HandleFunc("DELETE /scenes/{id}/mobs/{mobID}", mobs.DeleteMob)

	mux.HandleFunc("POST /scenes/{id}/players", players.CreatePlayer)
	mux.HandleFunc("PATCH /scenes/{id}/players/{playerID}", players.PatchPlayer)
	mux.HandleFunc("DELETE /scenes/{id}/players/{playerID}", players.DeletePlayer)

	mux.HandleFunc("POST /scenes/{id}/ships", ships.CreateShip)
	mux.HandleFunc("PATCH /scenes/{id}/ships/{shipID}", ships.PatchShip)
	mux.HandleFunc("DELETE /scenes/{id}/ships/{shipID}", ships.DeleteShip)

	mux.HandleFunc("POST /scenes/{id}/tracks", tracks.CreateTrack)
	mux.HandleFunc("PATCH /scenes/{id}/tracks/{trackID}", tracks.PatchTrack)
	mux.HandleFunc("DELETE /scenes/{id}/tracks/{trackID}", tracks.DeleteTrack)

	mux.HandleFunc("GET /players/by-name/{characterName}", lookup.ByName)
	mux.HandleFunc("GET /players/by-token/{token}", lookup.ByToken)

	mux.HandleFunc("GET /presets/{type}", presets.List)
	mux.HandleFunc("POST /presets/{type}", presets.Add)
	mux.HandleFunc("DELETE /presets/{type}/{presetID}", presets.Delete)

	mux.HandleFunc("GET /items", items.List)
	mux.HandleFunc("POST /items", items.Create)
	mux.HandleFunc("PATCH /items/{id}", items.Patch)
	mux.HandleFunc("DELETE /items/{id}", items.Delete)

	if cfg.Assets != nil {
		assetHandlers := NewAssetHandlers(cfg.Assets, cfg.MaxUploadBytes)
		mux.HandleFunc("GET /assets/images", assetHandlers.ListImages)
		mux.HandleFunc("GET /assets/audio", assetHandlers.ListAudio)
		mux.HandleFunc("POST /assets/{type}", assetHandlers.Upload)
		mux.HandleFunc("DELETE /assets/{type}/{name}", assetHandlers.Delete)
	}
	if cfg.AssetsDir != "" {
		fileServer := http.FileServer(http.Dir(cfg.AssetsDir))
		mux.Handle("GET /assets/files/", http.StripPrefix("/assets/files/", fileServer))
	}

	mux.HandleFunc("GET /health", health.Health)
	mux.HandleFunc("GET /ready", health.Ready)
	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	return mux
}
