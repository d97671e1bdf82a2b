package stellaecs

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func buildSampleWorld(t *testing.T) (*World, ComponentType[testPosition], ComponentType[testHealth]) {
	t.Helper()
	w := Factory.NewWorld()
	position := FactoryNewComponent[testPosition]()
	health := FactoryNewComponent[testHealth]()

	mana, err := w.DefineComponent("Mana", map[string]any{"value": 100.0, "max": 150.0})
	require.NoError(t, err)

	e1 := w.CreateEntity()
	e2 := w.CreateEntity()
	e3 := w.CreateEntity()

	require.NoError(t, position.Set(w, e1, testPosition{X: 1.5, Y: -2.25}))
	require.NoError(t, health.Set(w, e1, testHealth{Current: 40, Max: 100}))
	require.NoError(t, position.Set(w, e2, testPosition{X: 3, Y: 4}))
	require.NoError(t, mana.Set(w, e2, map[string]any{"value": 50.0}))

	require.NoError(t, w.Graph().AddDirected(e1, e2, map[string]any{EdgeAttrType: "owns"}))
	require.NoError(t, w.Graph().AddUndirected(e2, e3, map[string]any{EdgeAttrType: "friendOf"}))

	return w, position, health
}

func TestSnapshotRoundTrip(t *testing.T) {
	w, position, health := buildSampleWorld(t)

	snap, err := ToSnapshot(w)
	require.NoError(t, err)
	assert.Equal(t, SnapshotFormatVersion, snap.Format)
	assert.NotEmpty(t, snap.Checksum)

	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))
	decoded, err := DecodeSnapshot(&buf)
	require.NoError(t, err)

	restored, err := FromSnapshot(decoded, []RegisteredType{position, health})
	require.NoError(t, err)

	p, ok := position.Get(restored, 1)
	require.True(t, ok)
	assert.Equal(t, testPosition{X: 1.5, Y: -2.25}, p)
	h, ok := health.Get(restored, 1)
	require.True(t, ok)
	assert.Equal(t, testHealth{Current: 40, Max: 100}, h)

	record, ok := restored.GetNamed(2, "Mana")
	require.True(t, ok)
	assert.Equal(t, 50.0, record["value"])
	assert.Equal(t, 150.0, record["max"], "default fields survive the round trip")

	// Dynamic schemas travel with the snapshot: new sets use the template
	e := restored.CreateEntity()
	require.NoError(t, restored.SetNamed(e, "Mana", nil))
	record, _ = restored.GetNamed(e, "Mana")
	assert.Equal(t, 100.0, record["value"])

	assert.Equal(t, w.Graph().Edges(), restored.Graph().Edges())

	// Restored world answers the same queries
	q := restored.NewQuery().With(position)
	assert.Equal(t, 2, q.Count())
}

func TestSnapshotWireShape(t *testing.T) {
	w, _, _ := buildSampleWorld(t)

	snap, err := ToSnapshot(w)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, EncodeSnapshot(&buf, snap))

	var wire map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &wire))
	assert.Contains(t, wire, "format")
	assert.Contains(t, wire, "entities")
	assert.Contains(t, wire, "edges")

	entities := wire["entities"].([]any)
	require.NotEmpty(t, entities)
	first := entities[0].(map[string]any)
	assert.Contains(t, first, "id")
	components := first["components"].([]any)
	require.NotEmpty(t, components)
	component := components[0].(map[string]any)
	assert.Contains(t, component, "typeKey")
	assert.Contains(t, component, "isDynamic")
	assert.Contains(t, component, "data")

	edges := wire["edges"].([]any)
	require.Len(t, edges, 2)
	edge := edges[0].(map[string]any)
	assert.Contains(t, edge, "from")
	assert.Contains(t, edge, "to")
	assert.Contains(t, edge, "kind")
	assert.Contains(t, edge, "attributes")
}

func TestSnapshotSkipsUnknownComponentTypes(t *testing.T) {
	w, position, _ := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)

	// Restore without supplying the health type
	restored, err := FromSnapshot(snap, []RegisteredType{position},
		WithLogger(zap.New(core)))
	require.NoError(t, err)

	p, ok := position.Get(restored, 1)
	require.True(t, ok, "components of known types still load")
	assert.Equal(t, 1.5, p.X)

	health := FactoryNewComponent[testHealth]()
	assert.False(t, health.Has(restored, 1), "components of unknown types are dropped")

	assert.Equal(t, 1, logs.FilterMessageSnippet("not registered").Len())
	assert.Equal(t, 1, logs.FilterMessageSnippet("skipped components").Len())
}

func TestSnapshotRejectsUnknownFormat(t *testing.T) {
	w, position, health := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	snap.Format = 99
	_, err = FromSnapshot(snap, []RegisteredType{position, health})
	require.Error(t, err)
	assert.IsType(t, SnapshotFormatError{}, err)
}

func TestSnapshotRejectsChecksumMismatch(t *testing.T) {
	w, position, health := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	// Tampering with the payload after checksumming must fail the load
	snap.Entities[0].Components[0].Data = json.RawMessage(`{"X":999,"Y":999}`)
	_, err = FromSnapshot(snap, []RegisteredType{position, health})
	require.Error(t, err)
	assert.IsType(t, SnapshotChecksumError{}, err)
}

func TestSnapshotChecksumIsOptional(t *testing.T) {
	w, position, health := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	// Hand-authored snapshots may omit the checksum entirely
	snap.Checksum = ""
	_, err = FromSnapshot(snap, []RegisteredType{position, health})
	assert.NoError(t, err)
}

func TestSnapshotSkipsMalformedComponentData(t *testing.T) {
	w, position, health := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	snap.Entities[0].Components[0].Data = json.RawMessage(`"not an object"`)
	snap.Checksum = ""

	core, logs := observer.New(zap.WarnLevel)
	restored, err := FromSnapshot(snap, []RegisteredType{position, health},
		WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessageSnippet("failed to decode").Len())

	// The entity's other components still load
	_, ok := health.Get(restored, 1)
	assert.True(t, ok)
}

func TestSnapshotSkipsUnknownEdgeKind(t *testing.T) {
	w, position, health := buildSampleWorld(t)
	snap, err := ToSnapshot(w)
	require.NoError(t, err)

	snap.Edges[0].Kind = "sideways"
	snap.Checksum = ""

	core, logs := observer.New(zap.WarnLevel)
	restored, err := FromSnapshot(snap, []RegisteredType{position, health},
		WithLogger(zap.New(core)))
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessageSnippet("unknown kind").Len())
	assert.Equal(t, 1, restored.Graph().EdgeCount())
}

func TestSnapshotPreservesEntityIds(t *testing.T) {
	w := Factory.NewWorld()
	position := FactoryNewComponent[testPosition]()

	// Leave gaps: destroyed and bare ids must not shift survivors
	ids := w.CreateEntities(6)
	position.Set(w, ids[1], testPosition{X: 10})
	position.Set(w, ids[4], testPosition{X: 40})
	require.NoError(t, w.DestroyEntity(ids[2]))

	snap, err := ToSnapshot(w)
	require.NoError(t, err)
	require.Len(t, snap.Entities, 2)
	assert.Equal(t, int(ids[1]), snap.Entities[0].ID)
	assert.Equal(t, int(ids[4]), snap.Entities[1].ID)

	restored, err := FromSnapshot(snap, []RegisteredType{position})
	require.NoError(t, err)
	p, ok := position.Get(restored, ids[4])
	require.True(t, ok)
	assert.Equal(t, 40.0, p.X)

	// New ids in the restored world continue past the highest snapshot id
	next := restored.CreateEntity()
	assert.Greater(t, next, ids[4])
}

func TestSnapshotOfEmptyWorld(t *testing.T) {
	w := Factory.NewWorld()
	snap, err := ToSnapshot(w)
	require.NoError(t, err)
	assert.Empty(t, snap.Entities)
	assert.Empty(t, snap.Edges)

	restored, err := FromSnapshot(snap, nil)
	require.NoError(t, err)
	assert.NotNil(t, restored)
}
