package timetable

import "strings"

// Placement describes a committed placement.
type Placement struct {
	Session Session `json:"session"`
	// Replaced lists sessions of the same section that were overwritten.
	Replaced []Session `json:"replaced,omitempty"`
	// Overridden lists the conflicts the caller chose to accept.
	Overridden []Conflict `json:"overridden,omitempty"`
}

// Place commits a candidate session. Any conflict blocks the placement unless
// override is set; a practical at the last slot always fails with
// NoContinuationSlot. On commit the section's own sessions covering the target
// cells are replaced, never duplicated. Nothing is mutated on failure.
func (s *Store) Place(candidate Candidate, override bool) (Placement, error) {
	c := candidate.normalized()
	if err := c.validate(); err != nil {
		return Placement{}, err
	}
	span, err := s.resolveSpan(c)
	if err != nil {
		return Placement{}, err
	}
	conflicts := s.conflictsFor(c, span, "")
	if len(conflicts) > 0 && !override {
		return Placement{}, conflictError(conflicts)
	}

	session := Session{
		ID:      s.newID(),
		Section: c.Section,
		Day:     c.Day,
		Slot:    c.Slot,
		Subject: c.Subject,
		Faculty: c.Faculty,
		Room:    c.Room,
		Kind:    c.Kind,
	}
	replaced := s.commit(session, span)
	result := Placement{Session: session, Replaced: replaced}
	if len(conflicts) > 0 {
		result.Overridden = conflicts
	}
	return result, nil
}

// Move repositions a session to a new day and anchor slot as one delete+insert.
// The session keeps its id. Conflicts are evaluated as if the session had
// already been lifted from its old position.
func (s *Store) Move(id string, day Weekday, slot string, override bool) (Placement, error) {
	idx := s.sessionIndex(id)
	if idx < 0 {
		return Placement{}, unknownReference("session", id)
	}
	current := s.sessions[idx]
	c := current.Candidate()
	c.Day = day
	c.Slot = slot
	c = c.normalized()
	if err := c.validate(); err != nil {
		return Placement{}, err
	}
	span, err := s.resolveSpan(c)
	if err != nil {
		return Placement{}, err
	}
	conflicts := s.conflictsFor(c, span, id)
	if len(conflicts) > 0 && !override {
		return Placement{}, conflictError(conflicts)
	}

	s.removeWhere(func(sess Session) bool { return sess.ID == id })
	moved := current
	moved.Day = c.Day
	moved.Slot = c.Slot
	replaced := s.commit(moved, span)
	result := Placement{Session: moved, Replaced: replaced}
	if len(conflicts) > 0 {
		result.Overridden = conflicts
	}
	return result, nil
}

// commit drops the section's sessions overlapping span and appends session.
func (s *Store) commit(session Session, span []int) []Session {
	replaced := s.removeWhere(func(existing Session) bool {
		return existing.Section == session.Section &&
			existing.Day == session.Day &&
			overlaps(s.span(existing), span)
	})
	s.sessions = append(s.sessions, session)
	return replaced
}

// Remove deletes a session by id. Removing an unknown id is a no-op.
func (s *Store) Remove(id string) bool {
	return len(s.removeWhere(func(sess Session) bool { return sess.ID == id })) > 0
}

// AddTimeSlot appends a label to the end of the sequence.
func (s *Store) AddTimeSlot(label string) error {
	label = normalizeLabel(label)
	if label == "" {
		return invalidPlacement("time slot label is required")
	}
	if s.slotPos(label) >= 0 {
		return duplicateLabel("time slot", label)
	}
	s.slots = append(s.slots, label)
	return nil
}

// RenameTimeSlot relabels a column and re-keys every session anchored at it.
// Renaming a label to itself is a no-op.
func (s *Store) RenameTimeSlot(oldLabel, newLabel string) error {
	oldLabel = normalizeLabel(oldLabel)
	newLabel = normalizeLabel(newLabel)
	pos := s.slotPos(oldLabel)
	if pos < 0 {
		return unknownReference("time slot", oldLabel)
	}
	if newLabel == "" {
		return invalidPlacement("time slot label is required")
	}
	if newLabel == oldLabel {
		return nil
	}
	if s.slotPos(newLabel) >= 0 {
		return duplicateLabel("time slot", newLabel)
	}
	s.slots[pos] = newLabel
	for i := range s.sessions {
		if s.sessions[i].Slot == oldLabel {
			s.sessions[i].Slot = newLabel
		}
	}
	return nil
}

// RemoveTimeSlot deletes a column together with every session anchored at it or
// continuing into it. The destroyed sessions are returned so callers can
// surface the cascade.
func (s *Store) RemoveTimeSlot(label string) ([]Session, error) {
	label = normalizeLabel(label)
	pos := s.slotPos(label)
	if pos < 0 {
		return nil, unknownReference("time slot", label)
	}
	destroyed := s.removeWhere(func(sess Session) bool {
		return covers(s.span(sess), pos)
	})
	s.slots = append(s.slots[:pos:pos], s.slots[pos+1:]...)
	return destroyed, nil
}

// AddSection registers a new section.
func (s *Store) AddSection(id string, track Track) (Section, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Section{}, invalidPlacement("section id is required")
	}
	if track == "" {
		track = TrackNormal
	}
	if s.HasSection(id) {
		return Section{}, duplicateLabel("section", id)
	}
	section := Section{ID: id, Track: track}
	s.sections = append(s.sections, section)
	return section, nil
}

// RemoveSection deletes a section and every session placed for it. Choosing a
// new active section is left to the caller.
func (s *Store) RemoveSection(id string) ([]Session, error) {
	idx := s.sectionIndex(id)
	if idx < 0 {
		return nil, unknownReference("section", id)
	}
	destroyed := s.removeWhere(func(sess Session) bool { return sess.Section == id })
	s.sections = append(s.sections[:idx:idx], s.sections[idx+1:]...)
	return destroyed, nil
}
