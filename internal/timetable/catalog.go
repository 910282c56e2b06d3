package timetable

import "strings"

// Room types understood by the generator. Other values are matched verbatim
// against Subject.RoomType.
const (
	RoomTypeClassroom = "classroom"
	RoomTypeLab       = "lab"
)

// Subject is a catalog entry describing weekly teaching demand.
type Subject struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// WeeklyFrequency is the number of sessions each section needs per week.
	// A practical counts once even though it spans two slots.
	WeeklyFrequency int    `json:"weeklyFrequency"`
	RoomType        string `json:"roomType,omitempty"`
	// Faculty restricts eligibility to the named instructors, in preference order.
	Faculty []string `json:"faculty,omitempty"`
	// Sections limits which sections take the subject; empty means all of them.
	Sections []string `json:"sections,omitempty"`
}

// Faculty is an instructor and the subjects they are capable of teaching.
type Faculty struct {
	Name          string    `json:"name"`
	Subjects      []string  `json:"subjects"`
	MaxPerDay     int       `json:"maxPerDay,omitempty"`
	MaxPerWeek    int       `json:"maxPerWeek,omitempty"`
	AvailableDays []Weekday `json:"availableDays,omitempty"`
}

// Room is a teaching space.
type Room struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
}

// Catalog is the read-only generation input.
type Catalog struct {
	Subjects []Subject `json:"subjects"`
	Faculty  []Faculty `json:"faculty"`
	Rooms    []Room    `json:"rooms"`
}

// Requirement overrides the weekly frequency of one subject for one section.
type Requirement struct {
	Subject string `json:"subject"`
	PerWeek int    `json:"perWeek"`
}

// SectionPlan is a section to generate for. When Requirements is empty the
// demand is derived from the catalog subjects that apply to the section.
type SectionPlan struct {
	Section      Section       `json:"section"`
	Strength     int           `json:"strength,omitempty"`
	Requirements []Requirement `json:"requirements,omitempty"`
}

func (c Catalog) subject(name string) (Subject, bool) {
	for _, sub := range c.Subjects {
		if strings.EqualFold(sub.Name, name) {
			return sub, true
		}
	}
	return Subject{}, false
}

func (c Catalog) faculty(name string) (Faculty, bool) {
	for _, f := range c.Faculty {
		if sameName(f.Name, name) {
			return f, true
		}
	}
	return Faculty{}, false
}

// requirements resolves the weekly demand of a section in stable order.
func (c Catalog) requirements(plan SectionPlan) ([]Requirement, error) {
	if len(plan.Requirements) > 0 {
		out := make([]Requirement, 0, len(plan.Requirements))
		for _, req := range plan.Requirements {
			if _, ok := c.subject(req.Subject); !ok {
				return nil, unknownReference("subject", req.Subject)
			}
			out = append(out, req)
		}
		return out, nil
	}
	var out []Requirement
	for _, sub := range c.Subjects {
		if !sub.appliesTo(plan.Section.ID) || sub.WeeklyFrequency <= 0 {
			continue
		}
		out = append(out, Requirement{Subject: sub.Name, PerWeek: sub.WeeklyFrequency})
	}
	return out, nil
}

func (s Subject) appliesTo(section string) bool {
	if len(s.Sections) == 0 {
		return true
	}
	for _, id := range s.Sections {
		if strings.EqualFold(strings.TrimSpace(id), section) {
			return true
		}
	}
	return false
}

func (s Subject) kind() Kind {
	if s.Kind == Practical {
		return Practical
	}
	return Theory
}

func (s Subject) roomType() string {
	if rt := strings.TrimSpace(s.RoomType); rt != "" {
		return rt
	}
	if s.kind() == Practical {
		return RoomTypeLab
	}
	return RoomTypeClassroom
}

// eligibleFaculty lists instructors who may teach the subject, in catalog or
// preference order.
func (c Catalog) eligibleFaculty(sub Subject) []string {
	var out []string
	if len(sub.Faculty) > 0 {
		for _, name := range sub.Faculty {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
		return out
	}
	for _, f := range c.Faculty {
		for _, capability := range f.Subjects {
			if strings.EqualFold(strings.TrimSpace(capability), sub.Name) {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}

// eligibleRooms lists rooms of the right type that seat the section.
func (c Catalog) eligibleRooms(sub Subject, strength int) []string {
	want := sub.roomType()
	var out []string
	for _, r := range c.Rooms {
		roomType := strings.TrimSpace(r.Type)
		if roomType == "" {
			roomType = RoomTypeClassroom
		}
		if !strings.EqualFold(roomType, want) {
			continue
		}
		if strength > 0 && r.Capacity > 0 && r.Capacity < strength {
			continue
		}
		out = append(out, r.Name)
	}
	return out
}

func (f Faculty) availableOn(day Weekday) bool {
	if len(f.AvailableDays) == 0 {
		return true
	}
	for _, d := range f.AvailableDays {
		if d == day {
			return true
		}
	}
	return false
}
