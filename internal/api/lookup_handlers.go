package api

import (
	"net/http"

	"github.com/mesa-rpg/mesa/internal/auth"
	"github.com/mesa-rpg/mesa/internal/docstore"
)

// LookupHandlers serves the player client's polling endpoints. Both lookups
// search only the active scene and return the player projection (hidden
// inventory stripped) with the scene view and document revision.
type LookupHandlers struct {
	store  *docstore.Store
	tokens *auth.PlayerTokens
}

// NewLookupHandlers creates a new LookupHandlers instance.
func NewLookupHandlers(store *docstore.Store, tokens *auth.PlayerTokens) *LookupHandlers {
	return &LookupHandlers{store: store, tokens: tokens}
}

// ByName handles GET /players/by-name/{characterName}. The match is
// case-sensitive and exact; "Aria" and "aria" are different characters.
func (h *LookupHandlers) ByName(w http.ResponseWriter, r *http.Request) {
	characterName := r.PathValue("characterName")
	h.respondSnapshot(w, r, characterName)
}

// ByToken handles GET /players/by-token/{token} - the legacy access-link
// fallback. The token resolves to a character name, then the lookup proceeds
// as ByName.
func (h *LookupHandlers) ByToken(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	characterName, err := h.tokens.CharacterName(token)
	if err != nil {
		writeCodedError(w, r, http.StatusUnauthorized, ErrCodeTokenInvalid, "Invalid access token")
		return
	}

	h.respondSnapshot(w, r, characterName)
}

func (h *LookupHandlers) respondSnapshot(w http.ResponseWriter, r *http.Request, characterName string) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load session document")
		return
	}

	scene := doc.ActiveScene()
	if scene == nil {
		writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "No active scene")
		return
	}

	player := scene.PlayerByName(characterName)
	if player == nil {
		writeCodedError(w, r, http.StatusNotFound, ErrCodePlayerNotFound, "No player with that character name in the active scene")
		return
	}

	writeJSON(w, http.StatusOK, doc.SnapshotFor(scene, player))
}
