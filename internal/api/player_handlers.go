package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/mesa-rpg/mesa/internal/auth"
	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// PlayerHandlers holds dependencies for player HTTP handlers. The server
// treats player rows as strictly scene-local; cross-scene propagation by
// character name is the GM client's job.
type PlayerHandlers struct {
	store   *docstore.Store
	tokens  *auth.PlayerTokens
	baseURL string
}

// NewPlayerHandlers creates a new PlayerHandlers instance.
func NewPlayerHandlers(store *docstore.Store, tokens *auth.PlayerTokens, baseURL string) *PlayerHandlers {
	return &PlayerHandlers{store: store, tokens: tokens, baseURL: baseURL}
}

// PlayerResponse wraps a player row together with the document revision.
type PlayerResponse struct {
	Player   session.Player `json:"player"`
	Revision int64          `json:"revision"`
}

// CreatePlayer handles POST /scenes/{id}/players. The body is a player
// template; identity, current HP and the unrolled initiative sentinel are
// assigned server-side. When no access URL is supplied, one is minted from
// the character name so the GM can hand out the player link immediately.
func (h *PlayerHandlers) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var template session.Player
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.CombatantName(template.CharacterName)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid character name: "+err.Error())
		return
	}
	template.CharacterName = name

	if template.AccessURL == "" {
		token, err := h.tokens.Mint(template.CharacterName)
		if err != nil {
			writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to mint access token")
			return
		}
		template.AccessURL = h.baseURL + "/player?token=" + url.QueryEscape(token)
	}

	var created session.Player
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		created = session.NewPlayer(template)
		sc.Players = append(sc.Players, created)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create player")
		return
	}

	slog.Info("player created", "scene_id", sceneID, "character_name", created.CharacterName)
	writeJSON(w, http.StatusCreated, PlayerResponse{Player: created, Revision: doc.Revision})
}

// PatchPlayer handles PATCH /scenes/{id}/players/{playerID}. This updates
// exactly one scene row; the GM client fans the same patch out to sibling
// rows sharing the character name.
func (h *PlayerHandlers) PatchPlayer(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	playerID := r.PathValue("playerID")

	var patch session.PlayerPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.CharacterName != nil {
		name, err := validate.CombatantName(*patch.CharacterName)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid character name: "+err.Error())
			return
		}
		patch.CharacterName = &name
	}

	var updated session.Player
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		player := sc.PlayerByID(playerID)
		if player == nil {
			return errEntityNotFound
		}
		player.Apply(patch)
		updated = *player
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "player")
		return
	}

	writeJSON(w, http.StatusOK, PlayerResponse{Player: updated, Revision: doc.Revision})
}

// DeletePlayer handles DELETE /scenes/{id}/players/{playerID}. Only the one
// scene row is removed; copies in other scenes stay.
func (h *PlayerHandlers) DeletePlayer(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	playerID := r.PathValue("playerID")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		if !sc.RemovePlayer(playerID) {
			return errEntityNotFound
		}
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "player")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}
