package fusion

import (
	"slices"

	"github.com/couchcryptid/hazard-fusion-service/internal/domain"
)

// workingSet tracks the active alerts visible to the matcher during one cycle.
// Alerts created or merged earlier in the cycle are visible to later clusters,
// so two clusters of one event produce one alert.
type workingSet struct {
	active []domain.Alert

	createdIDs []string
	updatedIDs []string
	byID       map[string]domain.Alert
}

func newWorkingSet(active []domain.Alert) *workingSet {
	return &workingSet{
		active: append([]domain.Alert(nil), active...),
		byID:   make(map[string]domain.Alert),
	}
}

func (w *workingSet) recordCreate(a domain.Alert) {
	w.active = append(w.active, a)
	w.createdIDs = append(w.createdIDs, a.ID)
	w.byID[a.ID] = a
}

// recordUpdate replaces the alert in the active set. An alert created earlier in
// the same cycle stays reported as new.
func (w *workingSet) recordUpdate(a domain.Alert) {
	for i := range w.active {
		if w.active[i].ID == a.ID {
			w.active[i] = a
			break
		}
	}
	if _, seen := w.byID[a.ID]; !seen {
		w.updatedIDs = append(w.updatedIDs, a.ID)
	}
	w.byID[a.ID] = a
}

// drop hides an alert from later matches once the store no longer holds it as
// active. Anything already reported for it this cycle is kept.
func (w *workingSet) drop(id string) {
	w.active = slices.DeleteFunc(w.active, func(a domain.Alert) bool { return a.ID == id })
}

func (w *workingSet) created() []domain.Alert {
	return w.collect(w.createdIDs)
}

func (w *workingSet) updated() []domain.Alert {
	return w.collect(w.updatedIDs)
}

func (w *workingSet) collect(ids []string) []domain.Alert {
	if len(ids) == 0 {
		return nil
	}
	out := make([]domain.Alert, len(ids))
	for i, id := range ids {
		out[i] = w.byID[id]
	}
	return out
}
