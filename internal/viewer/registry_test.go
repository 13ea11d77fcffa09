package viewer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nvsview/internal/testutil"
	"nvsview/internal/types"
)

func registryWithSkeleton(t *testing.T, n int) (*Registry, *testutil.Edition) {
	t.Helper()
	edition := testutil.NewEdition(n)
	reg := NewRegistry()
	stubs, _, err := edition.Skeleton(context.Background())
	require.NoError(t, err)
	reg.LoadSkeleton(stubs)
	return reg, edition
}

func fetch(t *testing.T, edition *testutil.Edition, start, end int) ([]*types.Line, []*types.Note) {
	t.Helper()
	lines, err := edition.Lines(context.Background(), start, end)
	require.NoError(t, err)
	notes, err := edition.Notes(context.Background(), start, end)
	require.NoError(t, err)
	return lines, notes
}

type registrySnapshot struct {
	Lines map[string]types.Line
	Notes map[string]types.Note
	Nos   []int
}

func snapshot(reg *Registry) registrySnapshot {
	snap := registrySnapshot{Lines: map[string]types.Line{}, Notes: map[string]types.Note{}, Nos: reg.RegisteredNos()}
	for id, line := range reg.lines {
		snap.Lines[id] = *line
	}
	for id, note := range reg.notes {
		snap.Notes[id] = *note
	}
	return snap
}

func TestRegisterIsIdempotent(t *testing.T) {
	reg, edition := registryWithSkeleton(t, 100)

	lines, notes := fetch(t, edition, 1, 30)
	added := reg.Register(lines, notes)
	require.Len(t, added, 30)
	assert.Equal(t, 1, added[0])
	assert.Equal(t, 30, added[29])
	before := snapshot(reg)

	again, againNotes := fetch(t, edition, 1, 30)
	assert.Empty(t, reg.Register(again, againNotes))
	assert.Equal(t, before, snapshot(reg))
}

func TestRegisterLinksNoteExactlyOnce(t *testing.T) {
	reg, edition := registryWithSkeleton(t, 100)
	edition.AddNote("tn_extra", 42)

	lines, notes := fetch(t, edition, 40, 45)
	reg.Register(lines, notes)
	reg.Register(nil, notes)

	line := reg.LineByNo(42)
	require.NotNil(t, line)
	assert.Equal(t, []string{testutil.NoteID(42), "tn_extra"}, line.Notes)
	assert.Len(t, reg.NotesFor(line.ID), 2)
}

func TestRegisterDropsLinkageForAbsentLine(t *testing.T) {
	reg, edition := registryWithSkeleton(t, 100)

	_, notes := fetch(t, edition, 14, 14)
	reg.Register(nil, notes)
	require.NotNil(t, reg.Note(testutil.NoteID(14)))

	lines, _ := fetch(t, edition, 14, 14)
	reg.Register(lines, nil)
	assert.Empty(t, reg.LineByNo(14).Notes)
}

func TestRegisterComputesLineRangeForSpanningNotes(t *testing.T) {
	reg, edition := registryWithSkeleton(t, 100)
	edition.AddNote("tn_span", 8, 9, 10)

	lines, notes := fetch(t, edition, 7, 10)
	reg.Register(lines, notes)

	assert.Equal(t, "8-10: ", reg.Note("tn_span").LineRange)
	assert.Equal(t, "", reg.Note(testutil.NoteID(7)).LineRange)
	for no := 8; no <= 10; no++ {
		assert.True(t, reg.LineByNo(no).HasNote("tn_span"), "line %d", no)
	}
}

func TestRegistrySkeletonQueries(t *testing.T) {
	reg, edition := registryWithSkeleton(t, 650)

	lowest, highest, ok := reg.Bounds()
	require.True(t, ok)
	assert.Equal(t, 1, lowest)
	assert.Equal(t, 650, highest)
	assert.Equal(t, []string{"1.1", "1.2", "1.3", "2.1", "2.2", "2.3", "3.1"}, reg.ActScenes())
	assert.Equal(t, "2.2", reg.ActSceneOf(450))

	first, ok := reg.FirstNoOfActScene("2.1")
	require.True(t, ok)
	assert.Equal(t, 301, first)

	lines, notes := fetch(t, edition, 1, 10)
	reg.Register(lines, notes)
	next, ok := reg.FirstUnregistered()
	require.True(t, ok)
	assert.Equal(t, 11, next)
	assert.False(t, reg.FullyRegistered())

	all, allNotes := fetch(t, edition, 1, 650)
	reg.Register(all, allNotes)
	_, ok = reg.FirstUnregistered()
	assert.False(t, ok)
	assert.True(t, reg.FullyRegistered())
}

func TestRegistryBoundsWithoutSkeleton(t *testing.T) {
	reg := NewRegistry()
	_, _, ok := reg.Bounds()
	assert.False(t, ok)

	reg.Register([]*types.Line{{ID: "a", LineNumber: 5}, {ID: "b", LineNumber: 3}}, nil)
	lowest, highest, ok := reg.Bounds()
	require.True(t, ok)
	assert.Equal(t, 3, lowest)
	assert.Equal(t, 5, highest)
	assert.False(t, reg.FullyRegistered())
}
