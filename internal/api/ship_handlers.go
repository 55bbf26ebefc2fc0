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

// ShipHandlers holds dependencies for ship HTTP handlers. Ships are
// scene-local; their conditions carry crisis tags and morale follows the same
// clamp rules as HP.
type ShipHandlers struct {
	store *docstore.Store
}

// NewShipHandlers creates a new ShipHandlers instance.
func NewShipHandlers(store *docstore.Store) *ShipHandlers {
	return &ShipHandlers{store: store}
}

// ShipResponse wraps a ship together with the document revision.
type ShipResponse struct {
	Ship     session.Ship `json:"ship"`
	Revision int64        `json:"revision"`
}

// CreateShip handles POST /scenes/{id}/ships.
func (h *ShipHandlers) CreateShip(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var template session.Ship
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.CombatantName(template.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid ship name: "+err.Error())
		return
	}
	template.Name = name

	if template.Color != "" {
		if err := color.ValidateHexColor(template.Color); err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
	}
	if template.Type != session.ShipTypePlayer && template.Type != session.ShipTypeMob {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Ship type must be player or mob")
		return
	}

	var created session.Ship
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		created = session.NewShip(template)
		sc.Ships = append(sc.Ships, created)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create ship")
		return
	}

	writeJSON(w, http.StatusCreated, ShipResponse{Ship: created, Revision: doc.Revision})
}

// PatchShip handles PATCH /scenes/{id}/ships/{shipID}.
func (h *ShipHandlers) PatchShip(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	shipID := r.PathValue("shipID")

	var patch session.ShipPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.Name != nil {
		name, err := validate.CombatantName(*patch.Name)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid ship name: "+err.Error())
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
	if patch.Type != nil && *patch.Type != session.ShipTypePlayer && *patch.Type != session.ShipTypeMob {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Ship type must be player or mob")
		return
	}

	var updated session.Ship
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		ship := sc.ShipByID(shipID)
		if ship == nil {
			return errEntityNotFound
		}
		ship.Apply(patch)
		updated = *ship
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "ship")
		return
	}

	writeJSON(w, http.StatusOK, ShipResponse{Ship: updated, Revision: doc.Revision})
}

// DeleteShip handles DELETE /scenes/{id}/ships/{shipID}.
func (h *ShipHandlers) DeleteShip(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	shipID := r.PathValue("shipID")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		if !sc.RemoveShip(shipID) {
			return errEntityNotFound
		}
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "ship")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}
