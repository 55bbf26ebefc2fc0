package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// SceneHandlers holds dependencies for scene HTTP handlers.
type SceneHandlers struct {
	store *docstore.Store
}

// NewSceneHandlers creates a new SceneHandlers instance.
func NewSceneHandlers(store *docstore.Store) *SceneHandlers {
	return &SceneHandlers{store: store}
}

// CreateSceneRequest represents the request body for creating a scene.
type CreateSceneRequest struct {
	Name string `json:"name"`
}

// SceneResponse wraps a scene together with the document revision.
type SceneResponse struct {
	Scene    session.Scene `json:"scene"`
	Revision int64         `json:"revision"`
}

// RevisionResponse is returned by delete endpoints.
type RevisionResponse struct {
	Revision int64 `json:"revision"`
}

// CreateScene handles POST /scenes - creates a new empty scene.
func (h *SceneHandlers) CreateScene(w http.ResponseWriter, r *http.Request) {
	var req CreateSceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.SceneName(req.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid scene name: "+err.Error())
		return
	}

	var created session.Scene
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		created = session.NewScene(name)
		doc.Scenes = append(doc.Scenes, created)
		return nil
	})
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create scene")
		return
	}

	writeJSON(w, http.StatusCreated, SceneResponse{Scene: created, Revision: doc.Revision})
}

// DuplicateScene handles POST /scenes/{id}/duplicate - deep-copies a scene
// with fresh identities for the copy and everything nested in it.
func (h *SceneHandlers) DuplicateScene(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var dup session.Scene
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		src := doc.SceneByID(sceneID)
		if src == nil {
			return errSceneNotFound
		}
		dup = session.DuplicateScene(*src)
		doc.Scenes = append(doc.Scenes, dup)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to duplicate scene")
		return
	}

	writeJSON(w, http.StatusCreated, SceneResponse{Scene: dup, Revision: doc.Revision})
}

// PatchScene handles PATCH /scenes/{id} - shallow-merges scene metadata.
func (h *SceneHandlers) PatchScene(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var patch session.ScenePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.Name != nil {
		name, err := validate.SceneName(*patch.Name)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid scene name: "+err.Error())
			return
		}
		patch.Name = &name
	}

	var updated session.Scene
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		sc.Apply(patch)
		updated = *sc
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to update scene")
		return
	}

	writeJSON(w, http.StatusOK, SceneResponse{Scene: updated, Revision: doc.Revision})
}

// DeleteScene handles DELETE /scenes/{id}. Deleting the last scene is
// allowed; the GM view handles the degenerate empty document. A dangling
// active pointer is repointed at the first remaining scene.
func (h *SceneHandlers) DeleteScene(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		if !doc.RemoveScene(sceneID) {
			return errSceneNotFound
		}
		if doc.ActiveSceneID == sceneID {
			doc.ActiveSceneID = ""
			if len(doc.Scenes) > 0 {
				doc.ActiveSceneID = doc.Scenes[0].ID
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete scene")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}

// ScenePlayersResponse is the response for GET /scenes/{id}/players.
type ScenePlayersResponse struct {
	Players  []session.Player `json:"players"`
	Revision int64            `json:"revision"`
}

// SyncPlayers handles GET /scenes/{id}/players - a lightweight refresh of one
// scene's player list, used by the GM client instead of refetching the whole
// document.
func (h *SceneHandlers) SyncPlayers(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load session document")
		return
	}

	sc := doc.SceneByID(sceneID)
	if sc == nil {
		writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
		return
	}

	writeJSON(w, http.StatusOK, ScenePlayersResponse{
		Players:  sc.Players,
		Revision: doc.Revision,
	})
}
