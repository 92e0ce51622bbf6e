package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"groundforge/internal/sim/ground"
)

type Header struct {
	Version   int    `json:"version"`
	TerrainID string `json:"terrain_id"`
	Baked     int64  `json:"baked_unix"`
}

// TerrainV1 is the persisted terrain state. Chunk caches and road
// signatures are derived data and deliberately absent; everything here is
// enough to rebuild them.
type TerrainV1 struct {
	Header Header `json:"header"`

	Rows     int     `json:"rows"`
	Columns  int     `json:"columns"`
	CellSize float64 `json:"cell_size"`

	// Sparse vertex heights keyed "row:col"; zeros are never stored.
	Heights map[string]float64 `json:"heights"`

	Generation     *ground.Settings `json:"generation,omitempty"`
	HasManualEdits bool             `json:"has_manual_edits"`
}

// Export captures a height field into snapshot form.
func Export(id string, bakedUnix int64, hf *ground.HeightField) TerrainV1 {
	snap := TerrainV1{
		Header:         Header{Version: 1, TerrainID: id, Baked: bakedUnix},
		Rows:           hf.Rows,
		Columns:        hf.Columns,
		CellSize:       hf.CellSize,
		Heights:        make(map[string]float64, len(hf.Heights)),
		HasManualEdits: hf.HasManualEdits,
	}
	for k, v := range hf.Heights {
		snap.Heights[k.String()] = v
	}
	if hf.Generation != nil {
		s := *hf.Generation
		snap.Generation = &s
	}
	return snap
}

// Import rebuilds a height field from snapshot form. A malformed grid
// fails the restore; malformed keys and zero heights are dropped.
func (snap TerrainV1) Import() (*ground.HeightField, error) {
	if snap.Rows <= 0 || snap.Columns <= 0 || snap.CellSize <= 0 {
		return nil, fmt.Errorf("snapshot grid %dx%d cell %g", snap.Rows, snap.Columns, snap.CellSize)
	}
	hf := ground.NewHeightField(snap.Rows, snap.Columns, snap.CellSize)
	for key, v := range snap.Heights {
		row, col, ok := parseKey(key)
		if !ok {
			continue
		}
		hf.SetHeight(row, col, v)
	}
	// SetHeight flips the manual flag; restore the recorded state.
	hf.HasManualEdits = snap.HasManualEdits
	if snap.Generation != nil {
		s := *snap.Generation
		hf.Generation = &s
	}
	return hf, nil
}

func parseKey(key string) (row, col int, ok bool) {
	r, c, found := strings.Cut(key, ":")
	if !found {
		return 0, 0, false
	}
	row, err := strconv.Atoi(r)
	if err != nil {
		return 0, 0, false
	}
	col, err = strconv.Atoi(c)
	if err != nil {
		return 0, 0, false
	}
	return row, col, true
}

// SortedKeys returns the height keys in row-major order, for stable
// inspection output.
func (snap TerrainV1) SortedKeys() []string {
	keys := make([]string, 0, len(snap.Heights))
	for k := range snap.Heights {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// WriteSnapshot stores a snapshot as a zstd stream holding one JSON header
// line followed by the gob body. The header line lets tools identify a file
// without decoding the body.
func WriteSnapshot(path string, snap TerrainV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (TerrainV1, error) {
	var snap TerrainV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Skip the header line; the gob body carries the header too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line of a snapshot file.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReaderSize(dec, 64*1024).ReadBytes('\n')
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("snapshot header: %w", err)
	}
	return h, nil
}
