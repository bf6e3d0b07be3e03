package domain

// Snapshot is the serializable state handed to the persistence boundary
type Snapshot struct {
	ActiveCategory   string            `json:"activeSystem"`
	Items            map[string][]Item `json:"items"`
	CustomCategories []Category        `json:"customSystemsConfig"`
	ModelChoice      string            `json:"modelChoice,omitempty"`
}

// Normalize clears transient per-session flags. No fetch is pending right after a load.
func (s *Snapshot) Normalize() {
	if s.Items == nil {
		s.Items = make(map[string][]Item)
	}
	for id, items := range s.Items {
		for i := range items {
			items[i].IsLoadingTranslation = false
		}
		s.Items[id] = items
	}
}
