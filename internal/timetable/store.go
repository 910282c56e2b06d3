package timetable

import (
	"sort"

	"github.com/google/uuid"
)

// Store is the authoritative schedule aggregate: sections, the ordered time-slot
// sequence and every placed session. It is not safe for concurrent use; callers
// serialise writers (see service.WorkspaceService).
type Store struct {
	sections []Section
	slots    []string
	sessions []Session
	newID    func() string
}

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator replaces the uuid-based session id source.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewStore builds an empty store over the given time-slot labels.
// Blank and repeated labels are dropped.
func NewStore(timeSlots []string, opts ...Option) *Store {
	s := &Store{newID: uuid.NewString}
	seen := make(map[string]bool, len(timeSlots))
	for _, raw := range timeSlots {
		label := normalizeLabel(raw)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		s.slots = append(s.slots, label)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromSnapshot rebuilds a store from persisted state without re-validating it.
// Stored schedules are trusted; use Validate to audit them.
func FromSnapshot(snap Snapshot, opts ...Option) *Store {
	s := &Store{
		newID:    uuid.NewString,
		sections: append([]Section(nil), snap.Sections...),
		slots:    append([]string(nil), snap.TimeSlots...),
		sessions: make([]Session, 0, len(snap.Sessions)),
	}
	for _, sess := range snap.Sessions {
		if sess.ID == "" {
			sess.ID = s.newID()
		}
		if sess.Kind == "" {
			sess.Kind = Theory
		}
		s.sessions = append(s.sessions, sess)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the store contents.
func (s *Store) Snapshot() Snapshot {
	return Snapshot{
		Sections:  s.Sections(),
		TimeSlots: s.TimeSlots(),
		Sessions:  s.Sessions(),
	}
}

// Clone returns an independent copy sharing the id generator.
func (s *Store) Clone() *Store {
	return &Store{
		sections: append([]Section(nil), s.sections...),
		slots:    append([]string(nil), s.slots...),
		sessions: append([]Session(nil), s.sessions...),
		newID:    s.newID,
	}
}

// Sections returns the sections in creation order.
func (s *Store) Sections() []Section {
	return append([]Section{}, s.sections...)
}

// TimeSlots returns the ordered slot labels.
func (s *Store) TimeSlots() []string {
	return append([]string{}, s.slots...)
}

// Sessions returns every placed session in insertion order.
func (s *Store) Sessions() []Session {
	return append([]Session{}, s.sessions...)
}

// Session looks a session up by id.
func (s *Store) Session(id string) (Session, bool) {
	if idx := s.sessionIndex(id); idx >= 0 {
		return s.sessions[idx], true
	}
	return Session{}, false
}

// SessionsFor returns the sessions of one section ordered by day then slot position.
func (s *Store) SessionsFor(section string) []Session {
	var out []Session
	for _, sess := range s.sessions {
		if sess.Section == section {
			out = append(out, sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return s.slotPos(out[i].Slot) < s.slotPos(out[j].Slot)
	})
	return out
}

// HasSection reports whether id is a known section.
func (s *Store) HasSection(id string) bool {
	return s.sectionIndex(id) >= 0
}

// SessionAt returns the session of a section covering (day, slot), including a
// practical's continuation slot.
func (s *Store) SessionAt(section string, day Weekday, slot string) (Session, bool) {
	pos := s.slotPos(slot)
	if pos < 0 {
		return Session{}, false
	}
	for _, sess := range s.sessions {
		if sess.Section != section || sess.Day != day {
			continue
		}
		if covers(s.span(sess), pos) {
			return sess, true
		}
	}
	return Session{}, false
}

func (s *Store) sectionIndex(id string) int {
	for i, sec := range s.sections {
		if sec.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) sessionIndex(id string) int {
	for i, sess := range s.sessions {
		if sess.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) slotPos(label string) int {
	for i, l := range s.slots {
		if l == label {
			return i
		}
	}
	return -1
}

// span returns the slot positions a session occupies. A session anchored at an
// unknown label, or a practical with no following column, occupies nothing
// resolvable and the missing part is reported by Validate.
func (s *Store) span(sess Session) []int {
	pos := s.slotPos(sess.Slot)
	if pos < 0 {
		return nil
	}
	positions := []int{pos}
	for i := 1; i < spanLength(sess.Kind); i++ {
		if pos+i >= len(s.slots) {
			break
		}
		positions = append(positions, pos+i)
	}
	return positions
}

func covers(span []int, pos int) bool {
	for _, p := range span {
		if p == pos {
			return true
		}
	}
	return false
}

func overlaps(a, b []int) bool {
	for _, p := range a {
		if covers(b, p) {
			return true
		}
	}
	return false
}

func (s *Store) removeWhere(match func(Session) bool) []Session {
	kept := s.sessions[:0]
	var removed []Session
	for _, sess := range s.sessions {
		if match(sess) {
			removed = append(removed, sess)
			continue
		}
		kept = append(kept, sess)
	}
	// clear the tail so dropped sessions do not linger in the backing array
	for i := len(kept); i < len(s.sessions); i++ {
		s.sessions[i] = Session{}
	}
	s.sessions = kept
	return removed
}
