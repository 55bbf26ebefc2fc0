package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/color"
	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// MobHandlers holds dependencies for mob HTTP handlers. Mobs are strictly
// scene-local: nothing here touches any other scene.
type MobHandlers struct {
	store *docstore.Store
}

// NewMobHandlers creates a new MobHandlers instance.
func NewMobHandlers(store *docstore.Store) *MobHandlers {
	return &MobHandlers{store: store}
}

// MobResponse wraps a mob together with the document revision.
type MobResponse struct {
	Mob      session.Mob `json:"mob"`
	Revision int64       `json:"revision"`
}

// CreateMob handles POST /scenes/{id}/mobs. The body is a mob template;
// identity and current HP are assigned server-side.
func (h *MobHandlers) CreateMob(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var template session.Mob
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.CombatantName(template.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid mob name: "+err.Error())
		return
	}
	template.Name = name

	if template.Color != "" {
		if err := color.ValidateHexColor(template.Color); err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
	}

	var created session.Mob
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		created = session.NewMob(template)
		sc.Mobs = append(sc.Mobs, created)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create mob")
		return
	}

	writeJSON(w, http.StatusCreated, MobResponse{Mob: created, Revision: doc.Revision})
}

// PatchMob handles PATCH /scenes/{id}/mobs/{mobID}. HP deltas are clamped,
// condition toggles use set semantics; unknown fields are ignored.
func (h *MobHandlers) PatchMob(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	mobID := r.PathValue("mobID")

	var patch session.MobPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.Name != nil {
		name, err := validate.CombatantName(*patch.Name)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid mob name: "+err.Error())
			return
		}
		patch.Name = &name
	}
	if patch.Color != nil && *patch.Color != "" {
		if err := color.ValidateHexColor(*patch.Color); err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
	}

	var updated session.Mob
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		mob := sc.MobByID(mobID)
		if mob == nil {
			return errEntityNotFound
		}
		mob.Apply(patch)
		updated = *mob
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "mob")
		return
	}

	writeJSON(w, http.StatusOK, MobResponse{Mob: updated, Revision: doc.Revision})
}

// DeleteMob handles DELETE /scenes/{id}/mobs/{mobID}.
func (h *MobHandlers) DeleteMob(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	mobID := r.PathValue("mobID")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		if !sc.RemoveMob(mobID) {
			return errEntityNotFound
		}
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "mob")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}

// writeEntityUpdateError maps closure sentinels from scene-scoped entity
// updates to error responses.
func writeEntityUpdateError(w http.ResponseWriter, r *http.Request, err error, entity string) {
	switch {
	case errors.Is(err, errSceneNotFound):
		writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
	case errors.Is(err, errEntityNotFound):
		writeCodedError(w, r, http.StatusNotFound, ErrCodeNotFound, "No such "+entity)
	default:
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to update "+entity)
	}
}
