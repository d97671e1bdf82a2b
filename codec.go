package stellaecs

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

// SnapshotFormatVersion is the wire format revision ToSnapshot emits and
// FromSnapshot accepts.
const SnapshotFormatVersion = 1

// Snapshot is a point-in-time serializable projection of a world:
// entities with their components, dynamic type schemas, and all graph
// edges. It is independent of the live World it was taken from.
type Snapshot struct {
	Format       int              `json:"format"`
	WorldID      string           `json:"worldId,omitempty"`
	Checksum     string           `json:"checksum,omitempty"`
	DynamicTypes []DynamicSchema  `json:"dynamicTypes,omitempty"`
	Entities     []SnapshotEntity `json:"entities"`
	Edges        []SnapshotEdge   `json:"edges"`
}

// DynamicSchema carries a runtime-declared component type so it can be
// re-registered during restoration.
type DynamicSchema struct {
	Name     string         `json:"name"`
	Defaults map[string]any `json:"defaults"`
}

type SnapshotEntity struct {
	ID         int                 `json:"id"`
	Components []SnapshotComponent `json:"components"`
}

// SnapshotComponent is one component instance. TypeKey discriminates the
// component type: a static type's registered name, or a dynamic schema
// name when IsDynamic is set.
type SnapshotComponent struct {
	TypeKey   string          `json:"typeKey"`
	IsDynamic bool            `json:"isDynamic"`
	Data      json.RawMessage `json:"data"`
}

type SnapshotEdge struct {
	From       int            `json:"from"`
	To         int            `json:"to"`
	Kind       string         `json:"kind"`
	Attributes map[string]any `json:"attributes"`
}

// snapshotPayload is the checksummed portion of a snapshot.
type snapshotPayload struct {
	Entities []SnapshotEntity `json:"entities"`
	Edges    []SnapshotEdge   `json:"edges"`
}

// ToSnapshot walks the whole world and produces its snapshot. An entity is
// live when any storage or the graph references it; bare ids that were
// created but never used do not survive the round trip.
func ToSnapshot(w *World) (*Snapshot, error) {
	live := make(map[Entity]struct{})
	for id := 0; id < w.registry.count(); id++ {
		for _, e := range w.registry.byID(id).storage.entities() {
			live[e] = struct{}{}
		}
	}
	graphEdges := w.graph.Edges()
	for _, edge := range graphEdges {
		live[edge.From] = struct{}{}
		live[edge.To] = struct{}{}
	}

	ids := make([]Entity, 0, len(live))
	for e := range live {
		ids = append(ids, e)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	snap := &Snapshot{
		Format:   SnapshotFormatVersion,
		WorldID:  w.id.String(),
		Entities: make([]SnapshotEntity, 0, len(ids)),
		Edges:    make([]SnapshotEdge, 0, len(graphEdges)),
	}

	for id := 0; id < w.registry.count(); id++ {
		entry := w.registry.byID(id)
		if entry.kind == typeDynamic {
			snap.DynamicTypes = append(snap.DynamicTypes, DynamicSchema{
				Name:     entry.name,
				Defaults: entry.defaults,
			})
		}
	}

	for _, e := range ids {
		se := SnapshotEntity{ID: int(e), Components: []SnapshotComponent{}}
		for id := 0; id < w.registry.count(); id++ {
			entry := w.registry.byID(id)
			v, ok := entry.storage.value(e)
			if !ok {
				continue
			}
			data, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			se.Components = append(se.Components, SnapshotComponent{
				TypeKey:   entry.name,
				IsDynamic: entry.kind == typeDynamic,
				Data:      data,
			})
		}
		snap.Entities = append(snap.Entities, se)
	}

	for _, edge := range graphEdges {
		attrs := edge.Attrs
		if attrs == nil {
			attrs = map[string]any{}
		}
		snap.Edges = append(snap.Edges, SnapshotEdge{
			From:       int(edge.From),
			To:         int(edge.To),
			Kind:       string(edge.Kind),
			Attributes: attrs,
		})
	}

	sum, err := payloadChecksum(snap)
	if err != nil {
		return nil, err
	}
	snap.Checksum = sum
	return snap, nil
}

// FromSnapshot reconstructs a world from a snapshot. Static component
// types referenced by the snapshot must be supplied in types; dynamic
// schemas re-register from the snapshot itself. A component whose TypeKey
// resolves to nothing is skipped with a warning while the rest of the
// world loads; a bad format, checksum mismatch, or malformed payload
// fails the whole load.
func FromSnapshot(snap *Snapshot, types []RegisteredType, opts ...Option) (*World, error) {
	if snap.Format != SnapshotFormatVersion {
		return nil, SnapshotFormatError{Format: snap.Format}
	}
	if snap.Checksum != "" {
		sum, err := payloadChecksum(snap)
		if err != nil {
			return nil, err
		}
		if sum != snap.Checksum {
			return nil, SnapshotChecksumError{Want: snap.Checksum, Got: sum}
		}
	}

	w := Factory.NewWorld(opts...)

	for _, t := range types {
		if _, err := t.resolve(w); err != nil {
			return nil, err
		}
	}
	for _, schema := range snap.DynamicTypes {
		if _, err := w.DefineComponent(schema.Name, schema.Defaults); err != nil {
			return nil, err
		}
	}

	skipped := 0
	for _, se := range snap.Entities {
		e := Entity(se.ID)
		if e <= 0 {
			skipped += len(se.Components)
			w.log.Warn("snapshot entity has invalid id; skipping", zap.Int("id", se.ID))
			continue
		}
		w.ensureEntity(e)

		for _, sc := range se.Components {
			entry, ok := w.registry.byName(sc.TypeKey)
			if !ok {
				skipped++
				w.log.Warn("snapshot component type not registered; skipping",
					zap.String("typeKey", sc.TypeKey),
					zap.Int("entity", se.ID))
				continue
			}

			var v any
			var err error
			if entry.kind == typeDynamic {
				var record map[string]any
				err = json.Unmarshal(sc.Data, &record)
				v = record
			} else {
				v, err = entry.decode(sc.Data)
			}
			if err != nil {
				skipped++
				w.log.Warn("snapshot component failed to decode; skipping",
					zap.String("typeKey", sc.TypeKey),
					zap.Int("entity", se.ID),
					zap.Error(err))
				continue
			}

			if err := w.setByID(entry.id, e, v); err != nil {
				skipped++
				w.log.Warn("snapshot component failed to attach; skipping",
					zap.String("typeKey", sc.TypeKey),
					zap.Int("entity", se.ID),
					zap.Error(err))
			}
		}
	}

	for _, edge := range snap.Edges {
		from, to := Entity(edge.From), Entity(edge.To)
		w.ensureEntity(from)
		w.ensureEntity(to)
		var err error
		switch EdgeKind(edge.Kind) {
		case EdgeDirected:
			err = w.graph.AddDirected(from, to, edge.Attributes)
		case EdgeUndirected:
			err = w.graph.AddUndirected(from, to, edge.Attributes)
		default:
			w.log.Warn("snapshot edge has unknown kind; skipping",
				zap.String("kind", edge.Kind),
				zap.Int("from", edge.From),
				zap.Int("to", edge.To))
			continue
		}
		if err != nil {
			w.log.Warn("snapshot edge failed to attach; skipping",
				zap.Int("from", edge.From),
				zap.Int("to", edge.To),
				zap.Error(err))
		}
	}

	if skipped > 0 {
		w.log.Warn("snapshot restored with skipped components", zap.Int("skipped", skipped))
	}
	return w, nil
}

// EncodeSnapshot writes a snapshot as indented JSON.
func EncodeSnapshot(out io.Writer, snap *Snapshot) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// DecodeSnapshot reads a snapshot from JSON.
func DecodeSnapshot(in io.Reader) (*Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(in).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// payloadChecksum hashes the entities and edges sections. json.Marshal
// emits map keys in sorted order, so the digest is deterministic for
// equal payloads.
func payloadChecksum(snap *Snapshot) (string, error) {
	payload, err := json.Marshal(snapshotPayload{
		Entities: snap.Entities,
		Edges:    snap.Edges,
	})
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(xxhash.Sum64(payload), 16), nil
}
