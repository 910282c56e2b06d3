package timetable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPracticalBlocksFacultyAcrossBothSlots(t *testing.T) {
	store := newTestStore(t, "A", "B")
	lab, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Physics", Faculty: "Dr.X", Room: "Lab1", Kind: Practical}, false)
	require.NoError(t, err)

	theory := Candidate{Section: "B", Day: Monday, Slot: "09:00-10:00", Subject: "Math", Faculty: "dr.x ", Room: "R2", Kind: Theory}
	conflicts, err := CheckPlacement(store, theory)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, DimensionFaculty, conflicts[0].Dimension)
	assert.Equal(t, lab.Session.ID, conflicts[0].Existing.ID)

	_, err = store.Place(theory, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConflict))
	var engineErr *Error
	require.True(t, errors.As(err, &engineErr))
	assert.Len(t, engineErr.Conflicts, 1)
	assert.Len(t, store.Sessions(), 1)

	assert.True(t, store.Remove(lab.Session.ID))
	placed, err := store.Place(theory, false)
	require.NoError(t, err)
	assert.Equal(t, "B", placed.Session.Section)
}

func TestPracticalAtLastSlotHasNoContinuation(t *testing.T) {
	store := newTestStore(t, "A")
	before := store.Snapshot()

	_, err := store.Place(Candidate{Section: "A", Day: Friday, Slot: "10:00-11:00", Subject: "Chem", Kind: Practical}, false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoContinuationSlot))
	assert.Equal(t, before, store.Snapshot())

	_, err = store.Place(Candidate{Section: "A", Day: Friday, Slot: "10:00-11:00", Subject: "Chem", Kind: Practical}, true)
	assert.True(t, errors.Is(err, ErrNoContinuationSlot), "override never bypasses continuation")
}

func TestConflictsOrderedBySectionFacultyRoom(t *testing.T) {
	store := newTestStore(t, "A", "B")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math", Faculty: "Dr.Y", Room: "R1"}, false)
	require.NoError(t, err)
	_, err = store.Place(Candidate{Section: "B", Day: Monday, Slot: "08:00-09:00", Subject: "Art", Faculty: "Dr.Z", Room: "R2"}, false)
	require.NoError(t, err)

	conflicts, err := CheckPlacement(store, Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Bio", Faculty: "Dr.Z", Room: "R2"})
	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, DimensionSection, conflicts[0].Dimension)
	assert.Equal(t, DimensionFaculty, conflicts[1].Dimension)
	assert.Equal(t, DimensionRoom, conflicts[2].Dimension)
}

func TestBlankFacultyAndRoomNeverConflict(t *testing.T) {
	store := newTestStore(t, "A", "B")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)

	conflicts, err := CheckPlacement(store, Candidate{Section: "B", Day: Monday, Slot: "08:00-09:00", Subject: "Art"})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestOverrideReplacesSectionCellInsteadOfDuplicating(t *testing.T) {
	store := newTestStore(t, "A")
	first, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)

	second, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Bio"}, true)
	require.NoError(t, err)
	require.Len(t, second.Replaced, 1)
	assert.Equal(t, first.Session.ID, second.Replaced[0].ID)
	require.Len(t, second.Overridden, 1)

	sessions := store.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "Bio", sessions[0].Subject)
	assert.Empty(t, store.Validate())
}

func TestPracticalOverrideReplacesBothCells(t *testing.T) {
	store := newTestStore(t, "A")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)
	_, err = store.Place(Candidate{Section: "A", Day: Monday, Slot: "09:00-10:00", Subject: "Art"}, false)
	require.NoError(t, err)

	res, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Physics", Kind: Practical}, true)
	require.NoError(t, err)
	assert.Len(t, res.Replaced, 2)
	assert.Len(t, store.Sessions(), 1)
}

func TestOverrideAcceptsCrossSectionClash(t *testing.T) {
	store := newTestStore(t, "A", "B")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math", Faculty: "Dr.Y"}, false)
	require.NoError(t, err)

	res, err := store.Place(Candidate{Section: "B", Day: Monday, Slot: "08:00-09:00", Subject: "Math", Faculty: "Dr.Y"}, true)
	require.NoError(t, err)
	assert.Empty(t, res.Replaced)
	assert.Len(t, store.Sessions(), 2)

	violations := store.Validate()
	require.Len(t, violations, 1)
	assert.Equal(t, RuleFacultyExclusive, violations[0].Rule)
}

func TestPlaceRejectsUnknownReferences(t *testing.T) {
	store := newTestStore(t, "A")

	_, err := store.Place(Candidate{Section: "Z", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	assert.True(t, errors.Is(err, ErrUnknownReference))

	_, err = store.Place(Candidate{Section: "A", Day: Monday, Slot: "07:00", Subject: "Math"}, false)
	assert.True(t, errors.Is(err, ErrUnknownReference))

	_, err = store.Place(Candidate{Section: "A", Day: Weekday(9), Slot: "08:00-09:00", Subject: "Math"}, false)
	assert.True(t, errors.Is(err, ErrInvalidPlacement))
}

func TestMoveKeepsIDAndIgnoresItself(t *testing.T) {
	store := newTestStore(t, "A")
	lab, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Physics", Kind: Practical}, false)
	require.NoError(t, err)

	moved, err := store.Move(lab.Session.ID, Monday, "09:00-10:00", false)
	require.NoError(t, err)
	assert.Equal(t, lab.Session.ID, moved.Session.ID)
	assert.Equal(t, "09:00-10:00", moved.Session.Slot)
	assert.Len(t, store.Sessions(), 1)

	_, err = store.Move(lab.Session.ID, Monday, "10:00-11:00", false)
	assert.True(t, errors.Is(err, ErrNoContinuationSlot))
	got, _ := store.Session(lab.Session.ID)
	assert.Equal(t, "09:00-10:00", got.Slot)

	_, err = store.Move("missing", Monday, "08:00-09:00", false)
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestRemoveIsIdempotent(t *testing.T) {
	store := newTestStore(t, "A")
	res, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)

	assert.True(t, store.Remove(res.Session.ID))
	assert.False(t, store.Remove(res.Session.ID))
	assert.Empty(t, store.Sessions())
}

func TestTimeSlotLifecycle(t *testing.T) {
	store := newTestStore(t, "A")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "09:00-10:00", Subject: "Math"}, false)
	require.NoError(t, err)

	require.NoError(t, store.AddTimeSlot("11:00-12:00"))
	err = store.AddTimeSlot(" 11:00-12:00 ")
	assert.True(t, errors.Is(err, ErrDuplicateLabel))

	require.NoError(t, store.RenameTimeSlot("09:00-10:00", "09:00-09:50"))
	require.NoError(t, store.RenameTimeSlot("09:00-09:50", "09:00-09:50"))
	assert.True(t, errors.Is(store.RenameTimeSlot("09:00-09:50", "08:00-09:00"), ErrDuplicateLabel))
	assert.True(t, errors.Is(store.RenameTimeSlot("nope", "x"), ErrUnknownReference))

	got, ok := store.SessionAt("A", Monday, "09:00-09:50")
	require.True(t, ok)
	assert.Equal(t, "Math", got.Subject)
	assert.Equal(t, []string{"08:00-09:00", "09:00-09:50", "10:00-11:00", "11:00-12:00"}, store.TimeSlots())
}

func TestRemoveTimeSlotCascadesToContinuation(t *testing.T) {
	store := newTestStore(t, "A")
	_, err := store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Physics", Kind: Practical}, false)
	require.NoError(t, err)
	_, err = store.Place(Candidate{Section: "A", Day: Tuesday, Slot: "10:00-11:00", Subject: "Math"}, false)
	require.NoError(t, err)

	destroyed, err := store.RemoveTimeSlot("09:00-10:00")
	require.NoError(t, err)
	require.Len(t, destroyed, 1)
	assert.Equal(t, "Physics", destroyed[0].Subject)
	assert.Len(t, store.Sessions(), 1)
	assert.Equal(t, []string{"08:00-09:00", "10:00-11:00"}, store.TimeSlots())

	_, err = store.RemoveTimeSlot("09:00-10:00")
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestSectionLifecycle(t *testing.T) {
	store := newTestStore(t, "A", "B")
	_, err := store.AddSection("A", TrackTPP)
	assert.True(t, errors.Is(err, ErrDuplicateLabel))

	_, err = store.Place(Candidate{Section: "A", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)
	_, err = store.Place(Candidate{Section: "B", Day: Monday, Slot: "08:00-09:00", Subject: "Math"}, false)
	require.NoError(t, err)

	destroyed, err := store.RemoveSection("A")
	require.NoError(t, err)
	assert.Len(t, destroyed, 1)
	assert.False(t, store.HasSection("A"))
	assert.Len(t, store.Sessions(), 1)

	_, err = store.RemoveSection("A")
	assert.True(t, errors.Is(err, ErrUnknownReference))
}

func TestValidateFlagsBrokenSnapshot(t *testing.T) {
	store := FromSnapshot(Snapshot{
		Sections:  []Section{{ID: "A"}},
		TimeSlots: []string{"08:00", "09:00"},
		Sessions: []Session{
			{ID: "1", Section: "A", Day: Monday, Slot: "09:00", Subject: "Physics", Kind: Practical},
			{ID: "2", Section: "X", Day: Monday, Slot: "08:00", Subject: "Math"},
			{ID: "3", Section: "A", Day: Monday, Slot: "07:00", Subject: "Math"},
		},
	})

	rules := map[string]int{}
	for _, v := range store.Validate() {
		rules[v.Rule]++
	}
	assert.Equal(t, 1, rules[RuleContinuation])
	assert.Equal(t, 2, rules[RuleReference])
}
