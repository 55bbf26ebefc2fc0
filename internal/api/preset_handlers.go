package api

import (
	"encoding/json"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// PresetHandlers serves the reusable combatant templates. Presets live
// outside any scene; the GM client instantiates them into scenes locally.
type PresetHandlers struct {
	store *docstore.Store
}

// NewPresetHandlers creates a new PresetHandlers instance.
func NewPresetHandlers(store *docstore.Store) *PresetHandlers {
	return &PresetHandlers{store: store}
}

func presetType(r *http.Request) (string, bool) {
	t := r.PathValue("type")
	switch t {
	case session.PresetMobs, session.PresetPlayers, session.PresetShips:
		return t, true
	}
	return t, false
}

// PresetsResponse is the response for GET /presets/{type}.
type PresetsResponse struct {
	Mobs     []session.Mob    `json:"mobs,omitempty"`
	Players  []session.Player `json:"players,omitempty"`
	Ships    []session.Ship   `json:"ships,omitempty"`
	Revision int64            `json:"revision"`
}

// List handles GET /presets/{type}.
func (h *PresetHandlers) List(w http.ResponseWriter, r *http.Request) {
	t, ok := presetType(r)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Preset type must be mobs, players or ships")
		return
	}

	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load session document")
		return
	}

	resp := PresetsResponse{Revision: doc.Revision}
	switch t {
	case session.PresetMobs:
		resp.Mobs = doc.Presets.Mobs
		if resp.Mobs == nil {
			resp.Mobs = []session.Mob{}
		}
	case session.PresetPlayers:
		resp.Players = doc.Presets.Players
		if resp.Players == nil {
			resp.Players = []session.Player{}
		}
	case session.PresetShips:
		resp.Ships = doc.Presets.Ships
		if resp.Ships == nil {
			resp.Ships = []session.Ship{}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Add handles POST /presets/{type} - stores a new template.
func (h *PresetHandlers) Add(w http.ResponseWriter, r *http.Request) {
	t, ok := presetType(r)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Preset type must be mobs, players or ships")
		return
	}

	switch t {
	case session.PresetMobs:
		h.addMob(w, r)
	case session.PresetPlayers:
		h.addPlayer(w, r)
	case session.PresetShips:
		h.addShip(w, r)
	}
}

func (h *PresetHandlers) addMob(w http.ResponseWriter, r *http.Request) {
	var template session.Mob
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	name, err := validate.CombatantName(template.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid preset name: "+err.Error())
		return
	}
	template.Name = name

	var created session.Mob
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		created = session.NewMob(template)
		doc.Presets.Mobs = append(doc.Presets.Mobs, created)
		return nil
	})
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to save preset")
		return
	}
	writeJSON(w, http.StatusCreated, MobResponse{Mob: created, Revision: doc.Revision})
}

func (h *PresetHandlers) addPlayer(w http.ResponseWriter, r *http.Request) {
	var template session.Player
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	name, err := validate.CombatantName(template.CharacterName)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid preset name: "+err.Error())
		return
	}
	template.CharacterName = name

	var created session.Player
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		created = session.NewPlayer(template)
		doc.Presets.Players = append(doc.Presets.Players, created)
		return nil
	})
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to save preset")
		return
	}
	writeJSON(w, http.StatusCreated, PlayerResponse{Player: created, Revision: doc.Revision})
}

func (h *PresetHandlers) addShip(w http.ResponseWriter, r *http.Request) {
	var template session.Ship
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}
	name, err := validate.CombatantName(template.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid preset name: "+err.Error())
		return
	}
	template.Name = name

	var created session.Ship
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		created = session.NewShip(template)
		doc.Presets.Ships = append(doc.Presets.Ships, created)
		return nil
	})
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to save preset")
		return
	}
	writeJSON(w, http.StatusCreated, ShipResponse{Ship: created, Revision: doc.Revision})
}

// Delete handles DELETE /presets/{type}/{id}.
func (h *PresetHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := presetType(r)
	if !ok {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Preset type must be mobs, players or ships")
		return
	}
	id := r.PathValue("presetID")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		switch t {
		case session.PresetMobs:
			for i := range doc.Presets.Mobs {
				if doc.Presets.Mobs[i].ID == id {
					doc.Presets.Mobs = append(doc.Presets.Mobs[:i], doc.Presets.Mobs[i+1:]...)
					return nil
				}
			}
		case session.PresetPlayers:
			for i := range doc.Presets.Players {
				if doc.Presets.Players[i].ID == id {
					doc.Presets.Players = append(doc.Presets.Players[:i], doc.Presets.Players[i+1:]...)
					return nil
				}
			}
		case session.PresetShips:
			for i := range doc.Presets.Ships {
				if doc.Presets.Ships[i].ID == id {
					doc.Presets.Ships = append(doc.Presets.Ships[:i], doc.Presets.Ships[i+1:]...)
					return nil
				}
			}
		}
		return errEntityNotFound
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "preset")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}
