package store

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/diskstore/document"
	"github.com/hupe1980/diskstore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var petSchema = schema.Schema{"id": {PrimaryKey: true, AutoIncrement: true}}

func seeded(t *testing.T) *State {
	t.Helper()
	tx := NewState().Begin()
	tx.Register("Pets", petSchema)
	require.NoError(t, tx.Insert("pets",
		document.Record{"id": document.Int(1)},
		document.Record{"id": document.Int(2)},
		document.Record{"id": document.Int(3)},
	))
	return tx.Commit()
}

func TestRegisterLowercasesName(t *testing.T) {
	st := seeded(t)
	c, err := st.Collection("PETS")
	require.NoError(t, err)
	assert.Equal(t, "pets", c.Name())
	assert.Equal(t, "id", c.PrimaryKey())
	assert.Equal(t, []string{"pets"}, st.Names())
}

func TestTxIsolation(t *testing.T) {
	st := seeded(t)

	tx := st.Begin()
	require.NoError(t, tx.ReplaceAt("pets", 0, document.Record{"id": document.Int(10)}))
	require.NoError(t, tx.RemoveIndices("pets", roaring.BitmapOf(2)))
	next := tx.Commit()

	before, err := st.Scan("pets")
	require.NoError(t, err)
	assert.Len(t, before, 3)
	assert.Equal(t, document.Int(1), before[0]["id"])

	after, err := next.Scan("pets")
	require.NoError(t, err)
	assert.Equal(t, []document.Record{{"id": document.Int(10)}, {"id": document.Int(2)}}, after)
}

func TestUnknownCollection(t *testing.T) {
	st := NewState()
	_, err := st.Scan("nope")
	assert.ErrorIs(t, err, ErrCollectionNotFound)

	tx := st.Begin()
	assert.ErrorIs(t, tx.Insert("nope", document.Record{}), ErrCollectionNotFound)
	assert.ErrorIs(t, tx.Drop("nope"), ErrCollectionNotFound)
}

func TestReplaceAtOutOfRange(t *testing.T) {
	tx := seeded(t).Begin()
	assert.Error(t, tx.ReplaceAt("pets", 3, document.Record{}))
}

func TestDrop(t *testing.T) {
	st := seeded(t)
	tx := st.Begin()
	require.NoError(t, tx.Drop("pets"))
	next := tx.Commit()

	_, err := next.Collection("pets")
	assert.ErrorIs(t, err, ErrCollectionNotFound)
	_, err = st.Collection("pets")
	assert.NoError(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	tx := seeded(t).Begin()
	require.NoError(t, tx.SetCounters("pets", map[string]int64{"id": 3}))
	st := tx.Commit()

	snap := st.Snapshot()
	assert.Equal(t, map[string]int64{"id": 3}, snap.Counters["pets"])
	assert.Len(t, snap.Data["pets"], 3)

	restored := FromSnapshot(snap)
	c, err := restored.Collection("pets")
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"id": 3}, c.Counters())
	assert.Equal(t, "id", c.PrimaryKey())
	assert.Equal(t, 3, c.Len())
}

func TestStorePublish(t *testing.T) {
	s := New(nil)
	assert.Empty(t, s.Load().Names())
	s.Publish(seeded(t))
	assert.Equal(t, []string{"pets"}, s.Load().Names())
}
