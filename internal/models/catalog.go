package models

import (
	"time"

	"github.com/lib/pq"
)

// FacultyRecord is a stored instructor.
type FacultyRecord struct {
	ID            string         `db:"id" json:"id"`
	Name          string         `db:"name" json:"name"`
	Subjects      pq.StringArray `db:"subjects" json:"subjects"`
	MaxPerDay     int            `db:"max_per_day" json:"max_per_day"`
	MaxPerWeek    int            `db:"max_per_week" json:"max_per_week"`
	AvailableDays pq.StringArray `db:"available_days" json:"available_days"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// RoomRecord is a stored teaching space.
type RoomRecord struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	RoomType  string    `db:"room_type" json:"room_type"`
	Capacity  int       `db:"capacity" json:"capacity"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// SubjectRecord is a stored subject with its weekly demand.
type SubjectRecord struct {
	ID              string         `db:"id" json:"id"`
	Name            string         `db:"name" json:"name"`
	Kind            string         `db:"kind" json:"kind"`
	WeeklyFrequency int            `db:"weekly_frequency" json:"weekly_frequency"`
	RoomType        string         `db:"room_type" json:"room_type"`
	Faculty         pq.StringArray `db:"preferred_faculty" json:"preferred_faculty"`
	Sections        pq.StringArray `db:"sections" json:"sections"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}
