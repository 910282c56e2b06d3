package timetable

import "fmt"

// Dimension names the hard constraint a conflict violates.
type Dimension string

const (
	DimensionSection Dimension = "SECTION"
	DimensionFaculty Dimension = "FACULTY"
	DimensionRoom    Dimension = "ROOM"
)

// Conflict is one violated hard constraint, with the session already holding the cell.
type Conflict struct {
	Dimension Dimension `json:"dimension"`
	Day       Weekday   `json:"day"`
	Slot      string    `json:"slot"`
	Existing  Session   `json:"existing"`
	Message   string    `json:"message"`
}

// CheckPlacement reports every hard-constraint violation the candidate would
// introduce, section occupancy first, then faculty, then room. Practical
// candidates are checked on both the anchor and the continuation slot. The
// store is never modified.
func CheckPlacement(store *Store, candidate Candidate) ([]Conflict, error) {
	c := candidate.normalized()
	if err := c.validate(); err != nil {
		return nil, err
	}
	span, err := store.resolveSpan(c)
	if err != nil {
		return nil, err
	}
	return store.conflictsFor(c, span, ""), nil
}

// resolveSpan checks references and returns the slot positions the candidate needs.
func (s *Store) resolveSpan(c Candidate) ([]int, error) {
	if !s.HasSection(c.Section) {
		return nil, unknownReference("section", c.Section)
	}
	pos := s.slotPos(c.Slot)
	if pos < 0 {
		return nil, unknownReference("time slot", c.Slot)
	}
	length := spanLength(c.Kind)
	if pos+length > len(s.slots) {
		return nil, noContinuation(c.Slot)
	}
	span := make([]int, 0, length)
	for i := 0; i < length; i++ {
		span = append(span, pos+i)
	}
	return span, nil
}

// conflictsFor scans the store for sessions clashing with c over span.
// ignoreID excludes one session, used when moving it.
func (s *Store) conflictsFor(c Candidate, span []int, ignoreID string) []Conflict {
	var sectionHits, facultyHits, roomHits []Conflict
	seen := make(map[string]bool)

	for _, pos := range span {
		label := s.slots[pos]
		for _, existing := range s.sessions {
			if existing.ID == ignoreID || existing.Day != c.Day {
				continue
			}
			if !covers(s.span(existing), pos) {
				continue
			}
			if existing.Section == c.Section {
				if key := "S" + existing.ID; !seen[key] {
					seen[key] = true
					sectionHits = append(sectionHits, Conflict{
						Dimension: DimensionSection,
						Day:       c.Day,
						Slot:      label,
						Existing:  existing,
						Message: fmt.Sprintf("section %s already has %s on %s at %s",
							c.Section, existing.Subject, c.Day, label),
					})
				}
				continue
			}
			if sameName(existing.Faculty, c.Faculty) {
				if key := "F" + existing.ID; !seen[key] {
					seen[key] = true
					facultyHits = append(facultyHits, Conflict{
						Dimension: DimensionFaculty,
						Day:       c.Day,
						Slot:      label,
						Existing:  existing,
						Message: fmt.Sprintf("faculty %s is teaching section %s on %s at %s",
							existing.Faculty, existing.Section, c.Day, label),
					})
				}
			}
			if sameName(existing.Room, c.Room) {
				if key := "R" + existing.ID; !seen[key] {
					seen[key] = true
					roomHits = append(roomHits, Conflict{
						Dimension: DimensionRoom,
						Day:       c.Day,
						Slot:      label,
						Existing:  existing,
						Message: fmt.Sprintf("room %s is used by section %s on %s at %s",
							existing.Room, existing.Section, c.Day, label),
					})
				}
			}
		}
	}

	conflicts := make([]Conflict, 0, len(sectionHits)+len(facultyHits)+len(roomHits))
	conflicts = append(conflicts, sectionHits...)
	conflicts = append(conflicts, facultyHits...)
	conflicts = append(conflicts, roomHits...)
	return conflicts
}
