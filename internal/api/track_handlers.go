package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// TrackHandlers holds dependencies for playlist HTTP handlers.
type TrackHandlers struct {
	store *docstore.Store
}

// NewTrackHandlers creates a new TrackHandlers instance.
func NewTrackHandlers(store *docstore.Store) *TrackHandlers {
	return &TrackHandlers{store: store}
}

// TrackResponse wraps a track together with the document revision.
type TrackResponse struct {
	Track    session.Track `json:"track"`
	Revision int64         `json:"revision"`
}

func validTrackType(t string) bool {
	return t == session.TrackTypeAmbient || t == session.TrackTypeMusic || t == session.TrackTypeSFX
}

// CreateTrack handles POST /scenes/{id}/tracks.
func (h *TrackHandlers) CreateTrack(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")

	var template session.Track
	if err := json.NewDecoder(r.Body).Decode(&template); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.TrackName(template.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid track name: "+err.Error())
		return
	}
	template.Name = name

	if _, err := validate.TrackURL(template.URL); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid track URL: "+err.Error())
		return
	}
	if !validTrackType(template.Type) {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Track type must be ambiente, musica or sfx")
		return
	}

	var created session.Track
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		created = session.NewTrack(template)
		sc.Playlist = append(sc.Playlist, created)
		return nil
	})
	if err != nil {
		if errors.Is(err, errSceneNotFound) {
			writeCodedError(w, r, http.StatusNotFound, ErrCodeSceneNotFound, "Scene not found")
			return
		}
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create track")
		return
	}

	writeJSON(w, http.StatusCreated, TrackResponse{Track: created, Revision: doc.Revision})
}

// PatchTrack handles PATCH /scenes/{id}/tracks/{trackID}. Volume is clamped
// to [0, 1] by the patch helper.
func (h *TrackHandlers) PatchTrack(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	trackID := r.PathValue("trackID")

	var patch session.TrackPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.Name != nil {
		name, err := validate.TrackName(*patch.Name)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid track name: "+err.Error())
			return
		}
		patch.Name = &name
	}
	if patch.URL != nil {
		if _, err := validate.TrackURL(*patch.URL); err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid track URL: "+err.Error())
			return
		}
	}
	if patch.Type != nil && !validTrackType(*patch.Type) {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Track type must be ambiente, musica or sfx")
		return
	}

	var updated session.Track
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		track := sc.TrackByID(trackID)
		if track == nil {
			return errEntityNotFound
		}
		track.Apply(patch)
		updated = *track
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "track")
		return
	}

	writeJSON(w, http.StatusOK, TrackResponse{Track: updated, Revision: doc.Revision})
}

// DeleteTrack handles DELETE /scenes/{id}/tracks/{trackID}.
func (h *TrackHandlers) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	sceneID := r.PathValue("id")
	trackID := r.PathValue("trackID")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		sc := doc.SceneByID(sceneID)
		if sc == nil {
			return errSceneNotFound
		}
		if !sc.RemoveTrack(trackID) {
			return errEntityNotFound
		}
		return nil
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "track")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}
