package session

// SceneView is the slice of scene state a player client is allowed to see.
type SceneView struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Background       string `json:"background,omitempty"`
	InitiativeActive bool   `json:"initiativeActive"`
}

// PlayerSnapshot is the response to a player poll: the player's own row with
// hidden inventory stripped, the view of the scene containing it, and the
// document revision the snapshot was taken at.
type PlayerSnapshot struct {
	Player   Player    `json:"player"`
	Scene    SceneView `json:"scene"`
	Revision int64     `json:"revision"`
}

// VisibleInventory returns only the items a player may see. The GM-facing
// document is never filtered.
func VisibleInventory(items []InventoryItem) []InventoryItem {
	visible := make([]InventoryItem, 0, len(items))
	for _, it := range items {
		if it.Visible {
			visible = append(visible, it)
		}
	}
	return visible
}

// ProjectPlayer returns a copy of the player with hidden inventory items
// removed.
func ProjectPlayer(p Player) Player {
	out := p
	out.Conditions = append([]string(nil), p.Conditions...)
	out.Inventory = VisibleInventory(p.Inventory)
	return out
}

// ProjectScene returns the player-facing view of a scene.
func ProjectScene(s Scene) SceneView {
	return SceneView{
		ID:               s.ID,
		Name:             s.Name,
		Background:       s.Background,
		InitiativeActive: s.InitiativeActive,
	}
}

// SnapshotFor builds a player snapshot for one scene row of the document.
func (d *Document) SnapshotFor(scene *Scene, player *Player) PlayerSnapshot {
	return PlayerSnapshot{
		Player:   ProjectPlayer(*player),
		Scene:    ProjectScene(*scene),
		Revision: d.Revision,
	}
}
