package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/mesa-rpg/mesa/internal/docstore"
	"github.com/mesa-rpg/mesa/internal/session"
	"github.com/mesa-rpg/mesa/internal/validate"
)

// ItemHandlers serves the GM-authored custom item catalog that supplements
// the static compendium.
type ItemHandlers struct {
	store *docstore.Store
}

// NewItemHandlers creates a new ItemHandlers instance.
func NewItemHandlers(store *docstore.Store) *ItemHandlers {
	return &ItemHandlers{store: store}
}

// ItemsResponse is the response for GET /items.
type ItemsResponse struct {
	Items    []session.Item `json:"items"`
	Revision int64          `json:"revision"`
}

// ItemResponse wraps one item together with the document revision.
type ItemResponse struct {
	Item     session.Item `json:"item"`
	Revision int64        `json:"revision"`
}

// ItemPatch is the request body for PATCH /items/{id}.
type ItemPatch struct {
	Name        *string `json:"nome,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
}

// List handles GET /items.
func (h *ItemHandlers) List(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context())
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to load session document")
		return
	}

	items := doc.CustomItems
	if items == nil {
		items = []session.Item{}
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items, Revision: doc.Revision})
}

// Create handles POST /items.
func (h *ItemHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var item session.Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	name, err := validate.ItemName(item.Name)
	if err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid item name: "+err.Error())
		return
	}
	item.Name = name
	item.ID = uuid.New().String()

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		doc.CustomItems = append(doc.CustomItems, item)
		return nil
	})
	if err != nil {
		writeCodedError(w, r, http.StatusInternalServerError, ErrCodeInternal, "Failed to create item")
		return
	}

	writeJSON(w, http.StatusCreated, ItemResponse{Item: item, Revision: doc.Revision})
}

// Patch handles PATCH /items/{id}.
func (h *ItemHandlers) Patch(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	var patch ItemPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeCodedError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if patch.Name != nil {
		name, err := validate.ItemName(*patch.Name)
		if err != nil {
			writeCodedError(w, r, http.StatusBadRequest, ErrCodeValidation, "Invalid item name: "+err.Error())
			return
		}
		patch.Name = &name
	}

	var updated session.Item
	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		for i := range doc.CustomItems {
			if doc.CustomItems[i].ID != itemID {
				continue
			}
			item := &doc.CustomItems[i]
			if patch.Name != nil {
				item.Name = *patch.Name
			}
			if patch.Description != nil {
				item.Description = *patch.Description
			}
			if patch.Category != nil {
				item.Category = *patch.Category
			}
			updated = *item
			return nil
		}
		return errEntityNotFound
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "item")
		return
	}

	writeJSON(w, http.StatusOK, ItemResponse{Item: updated, Revision: doc.Revision})
}

// Delete handles DELETE /items/{id}.
func (h *ItemHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")

	doc, err := h.store.Update(r.Context(), func(doc *session.Document) error {
		for i := range doc.CustomItems {
			if doc.CustomItems[i].ID == itemID {
				doc.CustomItems = append(doc.CustomItems[:i], doc.CustomItems[i+1:]...)
				return nil
			}
		}
		return errEntityNotFound
	})
	if err != nil {
		writeEntityUpdateError(w, r, err, "item")
		return
	}

	writeJSON(w, http.StatusOK, RevisionResponse{Revision: doc.Revision})
}
