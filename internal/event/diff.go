package event

// Plan contains the calendar changes needed to match the desired events
type Plan struct {
	ToAdd    []Descriptor  `json:"to_add"`
	ToRemove []RemoteEvent `json:"to_remove"`
}

// PlanSummary provides aggregate counts for a plan
type PlanSummary struct {
	Desired   int `json:"desired"`
	Current   int `json:"current"`
	Unchanged int `json:"unchanged"`
	Added     int `json:"added"`
	Removed   int `json:"removed"`
}

// Reconcile compares desired events against the calendar's current events.
//
// A desired event is present when some current event matches it on summary,
// start, end and description. ToAdd holds the desired events that are not
// present (identical desired events are added once), in desired order.
// ToRemove holds the current events no desired event matches, in current order.
// Neither input is modified.
func Reconcile(desired []Descriptor, current []RemoteEvent) *Plan {
	plan := &Plan{
		ToAdd:    make([]Descriptor, 0),
		ToRemove: make([]RemoteEvent, 0),
	}

	currentKeys := make(map[string]bool, len(current))
	for _, evt := range current {
		currentKeys[evt.Key()] = true
	}

	desiredKeys := make(map[string]bool, len(desired))
	for _, d := range desired {
		key := d.Key()
		if desiredKeys[key] {
			// Already matched or already queued
			continue
		}
		desiredKeys[key] = true

		if !currentKeys[key] {
			plan.ToAdd = append(plan.ToAdd, d)
		}
	}

	for _, evt := range current {
		if !desiredKeys[evt.Key()] {
			plan.ToRemove = append(plan.ToRemove, evt)
		}
	}

	return plan
}

// IsEmpty reports whether the plan changes nothing
func (p *Plan) IsEmpty() bool {
	return len(p.ToAdd) == 0 && len(p.ToRemove) == 0
}

// Summary returns counts for the plan given the sizes of its inputs
func (p *Plan) Summary(desired, current int) PlanSummary {
	return PlanSummary{
		Desired:   desired,
		Current:   current,
		Unchanged: current - len(p.ToRemove),
		Added:     len(p.ToAdd),
		Removed:   len(p.ToRemove),
	}
}
