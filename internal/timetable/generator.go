package timetable

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// DefaultMaxSteps bounds the number of search nodes a generation may expand.
const DefaultMaxSteps = 2_000_000

const cancelCheckInterval = 512

// GenerateRequest is the Auto-Generator input.
type GenerateRequest struct {
	Sections []SectionPlan
	Catalog  Catalog
	// Pinned sessions are held fixed; its time slots and sections define the grid.
	Pinned *Store
	// TimeSlots is used only when Pinned is nil.
	TimeSlots []string
	// Days restricts generation to a subset of the week; empty means all days.
	Days     []Weekday
	MaxSteps int
}

// GenerateStats summarises a search.
type GenerateStats struct {
	Units      int `json:"units"`
	Pinned     int `json:"pinned"`
	Nodes      int `json:"nodes"`
	Backtracks int `json:"backtracks"`
}

// GenerateResult is a complete, conflict-free store.
type GenerateResult struct {
	Store  *Store        `json:"-"`
	Placed []Session     `json:"placed"`
	Stats  GenerateStats `json:"stats"`
}

// Generate fills the free cells of the pinned store so that every section
// meets its weekly subject frequencies exactly, with no section, faculty or
// room double-booking and every practical on two adjacent slots. The search is
// a depth-first backtracking over units of demand with forward checking,
// visiting the least slack section first. Identical inputs always yield the
// same assignment.
//
// An unsatisfiable input returns an *Error of kind INFEASIBLE carrying the
// deepest partial assignment and the unit that could not be placed. An expired
// ctx yields the same INFEASIBLE diagnostics and a cancelled one a CANCELLED
// error; both unwrap to ctx.Err(). The pinned store is never modified.
func Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, stopped(err, nil, nil)
	}
	pinned := req.Pinned
	if pinned == nil {
		pinned = NewStore(req.TimeSlots)
	}
	if len(pinned.slots) == 0 {
		return nil, invalidPlacement("at least one time slot is required")
	}
	if violations := pinned.Validate(); len(violations) > 0 {
		messages := make([]string, 0, len(violations))
		for _, v := range violations {
			messages = append(messages, v.Message)
		}
		return nil, &Error{
			Kind:    KindInfeasible,
			Message: "pinned sessions violate hard constraints: " + strings.Join(messages, "; "),
		}
	}

	days := req.Days
	if len(days) == 0 {
		days = Weekdays
	}
	for _, d := range days {
		if !d.Valid() {
			return nil, invalidPlacement(fmt.Sprintf("invalid weekday %d", int(d)))
		}
	}

	out := pinned.Clone()
	for _, plan := range req.Sections {
		if !out.HasSection(plan.Section.ID) {
			if _, err := out.AddSection(plan.Section.ID, plan.Section.Track); err != nil {
				return nil, err
			}
		}
	}

	s := newSolver(ctx, req, out, days)
	if err := s.buildUnits(); err != nil {
		return nil, err
	}
	slack := s.slack()
	if err := s.checkCapacity(slack); err != nil {
		return nil, err
	}
	s.orderUnits(slack)

	ok, err := s.solve(0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, s.infeasible()
	}

	placed := s.sessions(s.units)
	out.sessions = append(out.sessions, placed...)
	if id := duplicateID(out.sessions); id != "" {
		return nil, invalidPlacement(fmt.Sprintf("generated session id %q is not unique", id))
	}
	return &GenerateResult{
		Store:  out,
		Placed: placed,
		Stats: GenerateStats{
			Units:      len(s.units),
			Pinned:     len(pinned.sessions),
			Nodes:      s.nodes,
			Backtracks: s.backtracks,
		},
	}, nil
}

// unit is one session still to be placed: a CSP variable. Practicals are a
// single two-slot unit.
type unit struct {
	order    int
	section  string
	subject  string
	kind     Kind
	length   int
	faculty  []string
	rooms    []string
	prevSame int

	assigned bool
	day      Weekday
	pos      int
	fac      string
	room     string
}

type value struct {
	day  Weekday
	pos  int
	fac  string
	room string
}

type solver struct {
	ctx      context.Context
	req      GenerateRequest
	store    *Store
	days     []Weekday
	nslots   int
	maxSteps int

	units []*unit

	sectionBusy map[cell]bool
	facultyBusy map[string]map[timeKey]bool
	roomBusy    map[string]map[timeKey]bool
	facultyDay  map[string]map[Weekday]int
	facultyWeek map[string]int
	subjectDay  map[string]map[Weekday]int
	limits      map[string]Faculty

	nodes      int
	backtracks int

	deepest     int
	deepestGap  *Gap
	deepestPart []Session
}

func newSolver(ctx context.Context, req GenerateRequest, store *Store, days []Weekday) *solver {
	maxSteps := req.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	s := &solver{
		ctx:         ctx,
		req:         req,
		store:       store,
		days:        days,
		nslots:      len(store.slots),
		maxSteps:    maxSteps,
		sectionBusy: make(map[cell]bool),
		facultyBusy: make(map[string]map[timeKey]bool),
		roomBusy:    make(map[string]map[timeKey]bool),
		facultyDay:  make(map[string]map[Weekday]int),
		facultyWeek: make(map[string]int),
		subjectDay:  make(map[string]map[Weekday]int),
		limits:      make(map[string]Faculty),
		deepest:     -1,
	}
	for _, f := range req.Catalog.Faculty {
		s.limits[nameKey(f.Name)] = f
	}
	for _, sess := range store.sessions {
		for _, pos := range store.span(sess) {
			s.reserve(sess.Section, sess.Faculty, sess.Room, sess.Day, pos)
		}
	}
	return s
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func subjectKey(section, subject string) string {
	return section + "\x00" + strings.ToLower(subject)
}

func (s *solver) buildUnits() error {
	catalog := s.req.Catalog
	pinnedCount := make(map[string]int)
	for _, sess := range s.store.sessions {
		pinnedCount[subjectKey(sess.Section, sess.Subject)]++
	}

	for _, plan := range s.req.Sections {
		reqs, err := catalog.requirements(plan)
		if err != nil {
			return err
		}
		required := make(map[string]bool, len(reqs))
		for _, req := range reqs {
			sub, _ := catalog.subject(req.Subject)
			required[subjectKey(plan.Section.ID, sub.Name)] = true
		}
		// a pinned subject outside the requirements would leave the section
		// above its weekly target
		for _, sess := range s.store.sessions {
			if sess.Section != plan.Section.ID || required[subjectKey(sess.Section, sess.Subject)] {
				continue
			}
			return s.infeasibleAt(Gap{
				Section: sess.Section,
				Subject: sess.Subject,
				Kind:    sess.Kind,
				Reason:  fmt.Sprintf("pinned session %s has no weekly requirement for this section", sess.ID),
			})
		}
		for _, req := range reqs {
			sub, _ := catalog.subject(req.Subject)
			need := req.PerWeek - pinnedCount[subjectKey(plan.Section.ID, sub.Name)]
			gap := Gap{Section: plan.Section.ID, Subject: sub.Name, Kind: sub.kind()}
			if need < 0 {
				gap.Reason = fmt.Sprintf("pinned sessions exceed the weekly frequency of %d", req.PerWeek)
				return s.infeasibleAt(gap)
			}
			if need == 0 {
				continue
			}
			faculty := catalog.eligibleFaculty(sub)
			if len(faculty) == 0 {
				gap.Reason = "no faculty can teach this subject"
				return s.infeasibleAt(gap)
			}
			rooms := catalog.eligibleRooms(sub, plan.Strength)
			if len(rooms) == 0 {
				gap.Reason = fmt.Sprintf("no %s room seats %d students", sub.roomType(), plan.Strength)
				return s.infeasibleAt(gap)
			}
			kind := sub.kind()
			if spanLength(kind) > s.nslots {
				gap.Reason = "practical needs two adjacent time slots"
				return s.infeasibleAt(gap)
			}
			for i := 0; i < need; i++ {
				s.units = append(s.units, &unit{
					order:    len(s.units),
					section:  plan.Section.ID,
					subject:  sub.Name,
					kind:     kind,
					length:   spanLength(kind),
					faculty:  faculty,
					rooms:    rooms,
					prevSame: -1,
				})
			}
		}
	}
	return nil
}

// slack returns, per planned section, the free cells left after its demand.
func (s *solver) slack() map[string]int {
	demand := make(map[string]int)
	for _, u := range s.units {
		demand[u.section] += u.length
	}
	slack := make(map[string]int)
	for _, plan := range s.req.Sections {
		id := plan.Section.ID
		free := 0
		for _, day := range s.days {
			for pos := 0; pos < s.nslots; pos++ {
				if !s.sectionBusy[cell{Section: id, Day: day, Pos: pos}] {
					free++
				}
			}
		}
		slack[id] = free - demand[id]
	}
	return slack
}

// checkCapacity fails fast when a section needs more slots than it has free.
func (s *solver) checkCapacity(slack map[string]int) error {
	for _, plan := range s.req.Sections {
		if over := slack[plan.Section.ID]; over < 0 {
			return s.infeasibleAt(Gap{
				Section: plan.Section.ID,
				Reason:  fmt.Sprintf("weekly demand exceeds free cells by %d", -over),
			})
		}
	}
	return nil
}

// orderUnits puts the sections with the least slack first; within a section
// practicals go before theory and scarce-faculty subjects before the rest.
// Identical units end up adjacent and are chained for symmetry breaking.
func (s *solver) orderUnits(slack map[string]int) {
	planOrder := make(map[string]int)
	for i, plan := range s.req.Sections {
		if _, seen := planOrder[plan.Section.ID]; !seen {
			planOrder[plan.Section.ID] = i
		}
	}

	sort.SliceStable(s.units, func(i, j int) bool {
		a, b := s.units[i], s.units[j]
		if a.section != b.section {
			if slack[a.section] != slack[b.section] {
				return slack[a.section] < slack[b.section]
			}
			return planOrder[a.section] < planOrder[b.section]
		}
		if a.length != b.length {
			return a.length > b.length
		}
		if len(a.faculty) != len(b.faculty) {
			return len(a.faculty) < len(b.faculty)
		}
		return a.order < b.order
	})

	last := make(map[string]int)
	for i, u := range s.units {
		key := subjectKey(u.section, u.subject)
		if prev, ok := last[key]; ok {
			u.prevSame = prev
		}
		last[key] = i
	}
}

func (s *solver) solve(i int) (bool, error) {
	if i == len(s.units) {
		return true, nil
	}
	s.nodes++
	if s.nodes%cancelCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			return false, s.stop(i, err)
		}
	}
	if s.nodes > s.maxSteps {
		return false, &Error{
			Kind:    KindInfeasible,
			Message: fmt.Sprintf("search budget of %d steps exhausted", s.maxSteps),
			Gap:     s.deepestGap,
			Partial: s.deepestPart,
		}
	}

	u := s.units[i]
	values := s.values(u)
	if len(values) == 0 {
		s.recordFailure(i, u, "no free cell with an available faculty and room")
		return false, nil
	}
	for _, v := range values {
		s.assign(u, v)
		if blocked := s.forwardCheck(i + 1); blocked != nil {
			s.recordFailure(i+1, blocked, "no legal placement remains after earlier choices")
		} else {
			ok, err := s.solve(i + 1)
			if err != nil || ok {
				return ok, err
			}
		}
		s.unassign(u)
		s.backtracks++
	}
	return false, nil
}

// forwardCheck returns the first unplaced unit left without any legal value.
func (s *solver) forwardCheck(from int) *unit {
	for _, u := range s.units[from:] {
		if !s.hasValue(u) {
			return u
		}
	}
	return nil
}

// cells lists candidate (day, position) anchors for u in preference order:
// days where the section sees the subject least often first, then grid order.
func (s *solver) cells(u *unit) []timeKey {
	minPos := -1
	if u.prevSame >= 0 {
		if prev := s.units[u.prevSame]; prev.assigned {
			minPos = s.linear(prev.day, prev.pos)
		}
	}
	perDay := s.subjectDay[subjectKey(u.section, u.subject)]
	var out []timeKey
	for _, day := range s.days {
		for pos := 0; pos+u.length <= s.nslots; pos++ {
			if s.linear(day, pos) <= minPos {
				continue
			}
			if !s.sectionFree(u.section, day, pos, u.length) {
				continue
			}
			out = append(out, timeKey{Day: day, Pos: pos})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return perDay[out[i].Day] < perDay[out[j].Day]
	})
	return out
}

func (s *solver) values(u *unit) []value {
	var out []value
	for _, tk := range s.cells(u) {
		for _, fac := range u.faculty {
			if !s.facultyFree(fac, tk.Day, tk.Pos, u.length) {
				continue
			}
			for _, room := range u.rooms {
				if s.roomFree(room, tk.Day, tk.Pos, u.length) {
					out = append(out, value{day: tk.Day, pos: tk.Pos, fac: fac, room: room})
				}
			}
		}
	}
	return out
}

func (s *solver) hasValue(u *unit) bool {
	for _, tk := range s.cells(u) {
		for _, fac := range u.faculty {
			if !s.facultyFree(fac, tk.Day, tk.Pos, u.length) {
				continue
			}
			for _, room := range u.rooms {
				if s.roomFree(room, tk.Day, tk.Pos, u.length) {
					return true
				}
			}
		}
	}
	return false
}

func (s *solver) linear(day Weekday, pos int) int {
	return int(day)*s.nslots + pos
}

func (s *solver) sectionFree(section string, day Weekday, pos, length int) bool {
	for i := 0; i < length; i++ {
		if s.sectionBusy[cell{Section: section, Day: day, Pos: pos + i}] {
			return false
		}
	}
	return true
}

func (s *solver) facultyFree(name string, day Weekday, pos, length int) bool {
	key := nameKey(name)
	if limits, ok := s.limits[key]; ok {
		if !limits.availableOn(day) {
			return false
		}
		if limits.MaxPerDay > 0 && s.facultyDay[key][day]+length > limits.MaxPerDay {
			return false
		}
		if limits.MaxPerWeek > 0 && s.facultyWeek[key]+length > limits.MaxPerWeek {
			return false
		}
	}
	busy := s.facultyBusy[key]
	for i := 0; i < length; i++ {
		if busy[timeKey{Day: day, Pos: pos + i}] {
			return false
		}
	}
	return true
}

func (s *solver) roomFree(name string, day Weekday, pos, length int) bool {
	busy := s.roomBusy[nameKey(name)]
	for i := 0; i < length; i++ {
		if busy[timeKey{Day: day, Pos: pos + i}] {
			return false
		}
	}
	return true
}

func (s *solver) reserve(section, faculty, room string, day Weekday, pos int) {
	s.sectionBusy[cell{Section: section, Day: day, Pos: pos}] = true
	tk := timeKey{Day: day, Pos: pos}
	if key := nameKey(faculty); key != "" {
		if s.facultyBusy[key] == nil {
			s.facultyBusy[key] = make(map[timeKey]bool)
			s.facultyDay[key] = make(map[Weekday]int)
		}
		s.facultyBusy[key][tk] = true
		s.facultyDay[key][day]++
		s.facultyWeek[key]++
	}
	if key := nameKey(room); key != "" {
		if s.roomBusy[key] == nil {
			s.roomBusy[key] = make(map[timeKey]bool)
		}
		s.roomBusy[key][tk] = true
	}
}

func (s *solver) release(section, faculty, room string, day Weekday, pos int) {
	delete(s.sectionBusy, cell{Section: section, Day: day, Pos: pos})
	tk := timeKey{Day: day, Pos: pos}
	if key := nameKey(faculty); key != "" {
		delete(s.facultyBusy[key], tk)
		s.facultyDay[key][day]--
		s.facultyWeek[key]--
	}
	if key := nameKey(room); key != "" {
		delete(s.roomBusy[key], tk)
	}
}

func (s *solver) assign(u *unit, v value) {
	u.assigned, u.day, u.pos, u.fac, u.room = true, v.day, v.pos, v.fac, v.room
	for i := 0; i < u.length; i++ {
		s.reserve(u.section, v.fac, v.room, v.day, v.pos+i)
	}
	key := subjectKey(u.section, u.subject)
	if s.subjectDay[key] == nil {
		s.subjectDay[key] = make(map[Weekday]int)
	}
	s.subjectDay[key][v.day]++
}

func (s *solver) unassign(u *unit) {
	for i := 0; i < u.length; i++ {
		s.release(u.section, u.fac, u.room, u.day, u.pos+i)
	}
	s.subjectDay[subjectKey(u.section, u.subject)][u.day]--
	u.assigned = false
}

func (s *solver) recordFailure(depth int, u *unit, reason string) {
	if depth <= s.deepest {
		return
	}
	s.deepest = depth
	s.deepestGap = &Gap{Section: u.section, Subject: u.subject, Kind: u.kind, Reason: reason}
	s.deepestPart = s.sessions(s.units[:depth])
}

// stop keeps the diagnostics of an interrupted search. When it got further
// than any recorded failure, the unit at depth is reported as the gap.
func (s *solver) stop(depth int, cause error) *Error {
	if depth < len(s.units) {
		s.recordFailure(depth, s.units[depth], "search stopped before this unit was placed")
	}
	return stopped(cause, s.deepestGap, s.deepestPart)
}

// sessions materialises assigned units. Ids derive from the cell and skip any
// id already held by a pinned session or an earlier unit.
func (s *solver) sessions(units []*unit) []Session {
	taken := make(map[string]bool, len(s.store.sessions)+len(units))
	for _, sess := range s.store.sessions {
		taken[sess.ID] = true
	}
	out := make([]Session, 0, len(units))
	for _, u := range units {
		if !u.assigned {
			continue
		}
		slot := s.store.slots[u.pos]
		out = append(out, Session{
			ID:      uniqueID(taken, fmt.Sprintf("gen:%s:%s:%s", u.section, u.day, slot)),
			Section: u.section,
			Day:     u.day,
			Slot:    slot,
			Subject: u.subject,
			Faculty: u.fac,
			Room:    u.room,
			Kind:    u.kind,
		})
	}
	return out
}

func uniqueID(taken map[string]bool, base string) string {
	id := base
	for n := 2; taken[id]; n++ {
		id = fmt.Sprintf("%s#%d", base, n)
	}
	taken[id] = true
	return id
}

func duplicateID(sessions []Session) string {
	seen := make(map[string]bool, len(sessions))
	for _, sess := range sessions {
		if seen[sess.ID] {
			return sess.ID
		}
		seen[sess.ID] = true
	}
	return ""
}

func (s *solver) infeasibleAt(gap Gap) *Error {
	return &Error{
		Kind:    KindInfeasible,
		Message: gap.describe(),
		Gap:     &gap,
	}
}

func (s *solver) infeasible() *Error {
	if s.deepestGap == nil {
		return &Error{Kind: KindInfeasible, Message: "no complete assignment exists"}
	}
	gap := *s.deepestGap
	err := s.infeasibleAt(gap)
	err.Partial = s.deepestPart
	return err
}
