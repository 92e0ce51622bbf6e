package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"groundforge/internal/sim/ground"
)

// StateDigest folds the persistent terrain state into a hex digest.
// Two terrains driven by the same operation stream must agree on it.
func (t *Terrain) StateDigest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, uint64(t.hf.Rows))
	digestWriteU64(h, &tmp, uint64(t.hf.Columns))
	digestWriteU64(h, &tmp, math.Float64bits(t.hf.CellSize))

	keys := make([]ground.Key, 0, len(t.hf.Heights))
	for k := range t.hf.Heights {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Col < keys[j].Col
	})
	for _, k := range keys {
		digestWriteU64(h, &tmp, uint64(uint32(k.Row))<<32|uint64(uint32(k.Col)))
		digestWriteU64(h, &tmp, math.Float64bits(t.hf.Heights[k]))
	}

	if t.hf.HasManualEdits {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	if s := t.hf.Generation; s != nil {
		h.Write([]byte(s.Mode))
		digestWriteU64(h, &tmp, uint64(s.Seed))
		digestWriteU64(h, &tmp, math.Float64bits(s.NoiseScale))
		digestWriteU64(h, &tmp, math.Float64bits(s.NoiseAmplitude))
		digestWriteU64(h, &tmp, math.Float64bits(s.NoiseStrength))
		digestWriteU64(h, &tmp, math.Float64bits(s.DetailScale))
		digestWriteU64(h, &tmp, math.Float64bits(s.DetailAmplitude))
		digestWriteU64(h, &tmp, math.Float64bits(s.EdgeFalloff))
	}

	roadIDs := make([]string, 0, len(t.roads))
	for id := range t.roads {
		roadIDs = append(roadIDs, id)
	}
	sort.Strings(roadIDs)
	for _, id := range roadIDs {
		h.Write([]byte(id))
		h.Write([]byte(t.roads[id].result.Signature))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h interface{ Write([]byte) (int, error) }, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}
