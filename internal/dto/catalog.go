package dto

// FacultyPayload describes an instructor.
type FacultyPayload struct {
	Name          string   `json:"name" validate:"required,max=120"`
	Subjects      []string `json:"subjects" validate:"required,min=1,dive,required"`
	MaxPerDay     int      `json:"maxPerDay" validate:"min=0"`
	MaxPerWeek    int      `json:"maxPerWeek" validate:"min=0"`
	AvailableDays []string `json:"availableDays"`
}

// RoomPayload describes a teaching space.
type RoomPayload struct {
	Name     string `json:"name" validate:"required,max=120"`
	Type     string `json:"type" validate:"omitempty,max=32"`
	Capacity int    `json:"capacity" validate:"min=0"`
}

// SubjectPayload describes a subject and its weekly demand.
type SubjectPayload struct {
	Name            string   `json:"name" validate:"required,max=120"`
	Kind            string   `json:"kind" validate:"omitempty,oneof=Theory Practical theory practical lab lecture"`
	WeeklyFrequency int      `json:"weeklyFrequency" validate:"min=0,max=48"`
	RoomType        string   `json:"roomType" validate:"omitempty,max=32"`
	Faculty         []string `json:"faculty" validate:"omitempty,dive,required"`
	Sections        []string `json:"sections" validate:"omitempty,dive,required"`
}

// CatalogPayload is an inline catalog supplied with a generation request.
type CatalogPayload struct {
	Subjects []SubjectPayload `json:"subjects" validate:"dive"`
	Faculty  []FacultyPayload `json:"faculty" validate:"dive"`
	Rooms    []RoomPayload    `json:"rooms" validate:"dive"`
}
