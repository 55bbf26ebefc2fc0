package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
)

// Sentinel errors returned from update closures, mapped to error codes by the
// handlers.
var (
	errSceneNotFound  = errors.New("scene not found")
	errEntityNotFound = errors.New("entity not found")
)

// StateHandlers serves the whole-document endpoints and the client-visible
// server configuration.
type StateHandlers struct {
	store          *docstore.Store
	baseURL        string
	pollIntervalMS int
}

// NewStateHandlers creates a new StateHandlers instance.
func NewStateHandlers(store *docstore.Store, baseURL string, pollIntervalMS int) *StateHandlers {
	return &StateHandlers{
		store:          store,
		baseURL:        baseURL,
		pollIntervalMS: pollIntervalMS,
	}
}

// GetState handles GET /state - returns the full session document.
// The GM client loads this once at boot and trusts its own copy afterwards.
func (h *StateHandlers) GetState(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		if errors.Is(err, docstore.ErrNoDocument) {
			// First boot before seeding; hand out a seed document
			doc, err = h.store.Seed(r.Context())
		}
		if err != nil {
			writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load session document")
			return
		}
	}

	writeJSON(w, http.StatusOK, doc)
}

// ClientConfig is the response for GET /state/config.
type ClientConfig struct {
	BaseURL        string `json:"baseUrl"`
	PollIntervalMS int    `json:"pollIntervalMs"`
}

// GetClientConfig handles GET /state/config - returns the settings the
// browser clients need before their first poll.
func (h *StateHandlers) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ClientConfig{
		BaseURL:        h.baseURL,
		PollIntervalMS: h.pollIntervalMS,
	})
}

// SetActiveSceneRequest is the body for PUT /state/active-scene.
type SetActiveSceneRequest struct {
	SceneID string `json:"sceneId"`
}

// ActiveSceneResponse is returned after the active scene pointer moves.
type ActiveSceneResponse struct {
	ActiveSceneID string `json:"activeSceneId"`
	Revision      int64  `json:"revision"`
}

// SetActiveScene handles PUT /state/active-scene - repoints the active scene.
// Player clients observe the change on their next poll.
func (h *StateHandlers) SetActiveScene(w http.ResponseWriter, r *http.Request) {
	var req SetActiveSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		if doc.SceneByID(req.SceneID) == nil {
			return errSceneNotFound
		}
		doc.ActiveSceneID = req.SceneID
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to update active scene")
		return
	}

	writeJSON(w, http.StatusOK, ActiveSceneResponse{
		ActiveSceneID: doc.ActiveSceneID,
		Revision:      doc.Revision,
	})
}
