package reconcile

// =============================================================================
// ACTIVE ROSTER FILTER
// =============================================================================

// Roster is the organizational headcount source. Only members whose
// employment category matches the configured category enter the grid;
// everyone else is excluded from all downstream reports before any rule
// evaluates.
type Roster struct {
	members []RosterMember
}

func NewRoster(members []RosterMember) Roster {
	return Roster{members: members}
}

// Active returns the distinct (person, discipline) pairs admitted to the
// grid for the given category. The roster's discipline assignment is
// authoritative: it disambiguates persons whose raw entries carry an
// inconsistent discipline.
func (r Roster) Active(category string) []RosterMember {
	seen := make(map[GridKey]bool, len(r.members))
	var active []RosterMember
	for _, m := range r.members {
		if m.Category != category {
			continue
		}
		key := GridKey{Person: m.Person, Discipline: m.Discipline}
		if seen[key] {
			continue
		}
		seen[key] = true
		active = append(active, RosterMember{Person: m.Person, Discipline: m.Discipline, Category: m.Category})
	}
	return active
}

// IsActive reports whether a person appears in the roster under the category.
func (r Roster) IsActive(person PersonID, category string) bool {
	for _, m := range r.members {
		if m.Person == person && m.Category == category {
			return true
		}
	}
	return false
}

// Empty reports whether the roster source carried no rows.
func (r Roster) Empty() bool { return len(r.members) == 0 }
