package timetable

import (
	"fmt"
	"strings"
)

// Track tags a section for display. It never takes part in constraint checking.
type Track string

const (
	TrackNormal Track = "Normal"
	TrackTPP    Track = "TPP"
	TrackNTPP   Track = "NTPP"
)

// ParseTrack maps a raw value onto a known track; blank means Normal.
func ParseTrack(raw string) (Track, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "NORMAL":
		return TrackNormal, nil
	case "TPP":
		return TrackTPP, nil
	case "NTPP":
		return TrackNTPP, nil
	}
	return "", fmt.Errorf("unknown track %q", raw)
}

// Kind distinguishes single-slot theory sessions from two-slot practicals.
type Kind string

const (
	Theory    Kind = "Theory"
	Practical Kind = "Practical"
)

// ParseKind accepts the "lab" and "lecture" aliases.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "theory", "lecture":
		return Theory, nil
	case "practical", "lab":
		return Practical, nil
	}
	return "", fmt.Errorf("unknown session kind %q", raw)
}

// Section is a class group with its own weekly grid.
type Section struct {
	ID    string `json:"id"`
	Track Track  `json:"track"`
}

// Session is one placed unit of teaching. A practical also occupies the slot after Slot.
type Session struct {
	ID      string  `json:"id"`
	Section string  `json:"section"`
	Day     Weekday `json:"day"`
	Slot    string  `json:"slot"`
	Subject string  `json:"subject"`
	Faculty string  `json:"faculty"`
	Room    string  `json:"room"`
	Kind    Kind    `json:"kind"`
}

// Candidate carries the fields of a session that has not been committed yet.
type Candidate struct {
	Section string
	Day     Weekday
	Slot    string
	Subject string
	Faculty string
	Room    string
	Kind    Kind
}

// Candidate returns the placement fields of an existing session.
func (s Session) Candidate() Candidate {
	return Candidate{
		Section: s.Section,
		Day:     s.Day,
		Slot:    s.Slot,
		Subject: s.Subject,
		Faculty: s.Faculty,
		Room:    s.Room,
		Kind:    s.Kind,
	}
}

func (c Candidate) normalized() Candidate {
	c.Section = strings.TrimSpace(c.Section)
	c.Slot = normalizeLabel(c.Slot)
	c.Subject = strings.TrimSpace(c.Subject)
	c.Faculty = strings.TrimSpace(c.Faculty)
	c.Room = strings.TrimSpace(c.Room)
	if c.Kind == "" {
		c.Kind = Theory
	}
	return c
}

func (c Candidate) validate() error {
	if c.Section == "" {
		return invalidPlacement("section is required")
	}
	if c.Slot == "" {
		return invalidPlacement("time slot is required")
	}
	if !c.Day.Valid() {
		return invalidPlacement(fmt.Sprintf("invalid weekday %d", int(c.Day)))
	}
	if c.Kind != Theory && c.Kind != Practical {
		return invalidPlacement(fmt.Sprintf("invalid session kind %q", c.Kind))
	}
	if c.Subject == "" {
		return invalidPlacement("subject is required")
	}
	return nil
}

// Snapshot is the serialisable shape of a store: the load/save wire contract.
type Snapshot struct {
	Sections  []Section `json:"sections"`
	TimeSlots []string  `json:"timeSlots"`
	Sessions  []Session `json:"sessions"`
}
