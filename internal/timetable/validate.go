package timetable

import "fmt"

// Violation is an invariant breach found in a stored schedule.
type Violation struct {
	Rule     string   `json:"rule"`
	Sessions []string `json:"sessions"`
	Day      Weekday  `json:"day,omitempty"`
	Slot     string   `json:"slot,omitempty"`
	Message  string   `json:"message"`
}

const (
	RuleSectionExclusive = "SECTION_EXCLUSIVE"
	RuleFacultyExclusive = "FACULTY_EXCLUSIVE"
	RuleRoomExclusive    = "ROOM_EXCLUSIVE"
	RuleContinuation     = "PRACTICAL_CONTINUATION"
	RuleReference        = "REFERENCE"
	RuleDuplicateID      = "DUPLICATE_ID"
)

// Validate audits the store against every invariant. Loading and saving never
// call it: persisted schedules are trusted and this is a separate, explicit pass.
func (s *Store) Validate() []Violation {
	var violations []Violation

	seen := make(map[string]bool, len(s.sessions))
	for _, sess := range s.sessions {
		if seen[sess.ID] {
			violations = append(violations, Violation{
				Rule:     RuleDuplicateID,
				Sessions: []string{sess.ID},
				Day:      sess.Day,
				Slot:     sess.Slot,
				Message:  fmt.Sprintf("session id %s is used more than once", sess.ID),
			})
		}
		seen[sess.ID] = true
		if !s.HasSection(sess.Section) {
			violations = append(violations, Violation{
				Rule:     RuleReference,
				Sessions: []string{sess.ID},
				Message:  fmt.Sprintf("session %s references unknown section %q", sess.ID, sess.Section),
			})
		}
		pos := s.slotPos(sess.Slot)
		if pos < 0 {
			violations = append(violations, Violation{
				Rule:     RuleReference,
				Sessions: []string{sess.ID},
				Day:      sess.Day,
				Slot:     sess.Slot,
				Message:  fmt.Sprintf("session %s references unknown time slot %q", sess.ID, sess.Slot),
			})
			continue
		}
		if sess.Kind == Practical && pos == len(s.slots)-1 {
			violations = append(violations, Violation{
				Rule:     RuleContinuation,
				Sessions: []string{sess.ID},
				Day:      sess.Day,
				Slot:     sess.Slot,
				Message:  fmt.Sprintf("practical %s at %q has no continuation slot", sess.ID, sess.Slot),
			})
		}
	}

	// pairwise exclusivity over each (day, position) column
	occupants := make(map[timeKey][]Session)
	for _, sess := range s.sessions {
		for _, pos := range s.span(sess) {
			key := timeKey{Day: sess.Day, Pos: pos}
			occupants[key] = append(occupants[key], sess)
		}
	}
	for _, day := range Weekdays {
		for pos, label := range s.slots {
			list := occupants[timeKey{Day: day, Pos: pos}]
			for i := 0; i < len(list); i++ {
				for j := i + 1; j < len(list); j++ {
					a, b := list[i], list[j]
					ids := []string{a.ID, b.ID}
					if a.Section == b.Section {
						violations = append(violations, Violation{
							Rule: RuleSectionExclusive, Sessions: ids, Day: day, Slot: label,
							Message: fmt.Sprintf("section %s has two sessions on %s at %s", a.Section, day, label),
						})
						continue
					}
					if sameName(a.Faculty, b.Faculty) {
						violations = append(violations, Violation{
							Rule: RuleFacultyExclusive, Sessions: ids, Day: day, Slot: label,
							Message: fmt.Sprintf("faculty %s is double-booked on %s at %s", a.Faculty, day, label),
						})
					}
					if sameName(a.Room, b.Room) {
						violations = append(violations, Violation{
							Rule: RuleRoomExclusive, Sessions: ids, Day: day, Slot: label,
							Message: fmt.Sprintf("room %s is double-booked on %s at %s", a.Room, day, label),
						})
					}
				}
			}
		}
	}
	return violations
}
