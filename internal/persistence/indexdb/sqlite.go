package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"groundforge/internal/persistence/snapshot"
	"groundforge/internal/sim/tuning"
)

// SQLiteIndex is a queryable secondary index over baked terrain snapshots
// and sculpt audit rows. All writes funnel through one goroutine; callers
// never block on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqSnapshot reqKind = iota + 1
	reqEdit
	reqFlush
)

type req struct {
	kind     reqKind
	snapshot snapshotRow
	edit     EditEntry
	done     chan struct{}
}

type snapshotRow struct {
	TerrainID string
	Path      string
	Baked     int64
	Rows      int
	Columns   int
	CellSize  float64
	Heights   int
	Manual    bool
	Seed      int64
	Mode      string
	Signature string
}

// EditEntry is one sculpt application worth indexing for audit queries.
type EditEntry struct {
	TerrainID string
	Op        string
	Shape     string
	CenterX   float64
	CenterZ   float64
	Radius    float64
	Strength  float64
	Changed   bool
}

// SnapshotInfo is a read-model row for snapshot listings.
type SnapshotInfo struct {
	TerrainID string
	Path      string
	Baked     int64
	Heights   int
	Signature string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Sculpt strokes arrive in bursts while an editor drags a brush;
		// buffer enough to never stall the tick.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads. NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			terrain_id TEXT NOT NULL,
			baked_unix INTEGER NOT NULL,
			path TEXT NOT NULL,
			rows INTEGER NOT NULL,
			columns INTEGER NOT NULL,
			cell_size REAL NOT NULL,
			heights INTEGER NOT NULL,
			manual INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			mode TEXT NOT NULL,
			signature TEXT NOT NULL,
			PRIMARY KEY (terrain_id, baked_unix)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_baked ON snapshots(baked_unix);`,
		`CREATE TABLE IF NOT EXISTS edits (
			terrain_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			op TEXT NOT NULL,
			shape TEXT NOT NULL,
			cx REAL NOT NULL,
			cz REAL NOT NULL,
			radius REAL NOT NULL,
			strength REAL NOT NULL,
			changed INTEGER NOT NULL,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (terrain_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_edits_terrain ON edits(terrain_id, recorded_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordSnapshot indexes a written snapshot file. Non-blocking; drops the
// row if the indexer falls behind (the snapshot file itself is the source
// of truth).
func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.TerrainV1, signature string) {
	if s == nil || s.closed.Load() {
		return
	}
	r := snapshotRow{
		TerrainID: snap.Header.TerrainID,
		Path:      path,
		Baked:     snap.Header.Baked,
		Rows:      snap.Rows,
		Columns:   snap.Columns,
		CellSize:  snap.CellSize,
		Heights:   len(snap.Heights),
		Manual:    snap.HasManualEdits,
		Signature: signature,
	}
	if snap.Generation != nil {
		r.Seed = snap.Generation.Seed
		r.Mode = snap.Generation.Mode
	}
	select {
	case s.ch <- req{kind: reqSnapshot, snapshot: r}:
	default:
	}
}

// RecordEdit indexes one sculpt application. Non-blocking.
func (s *SQLiteIndex) RecordEdit(e EditEntry) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEdit, edit: e}:
	default:
	}
}

// Flush blocks until every queued write so far is committed.
func (s *SQLiteIndex) Flush() {
	if s == nil || s.closed.Load() {
		return
	}
	done := make(chan struct{})
	s.ch <- req{kind: reqFlush, done: done}
	<-done
}

// UpsertTuning stores the applied tuning values as canonical JSON with a
// digest, so a stored bake can be traced to its parameters.
func (s *SQLiteIndex) UpsertTuning(tn tuning.Tuning) error {
	if s == nil {
		return nil
	}
	b, err := json.Marshal(tn)
	if err != nil {
		return err
	}
	sum := sha256.Sum256(b)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_digest',?)`, hex.EncodeToString(sum[:])); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_json',?)`, string(b)); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('tuning_updated_at',?)`, now); err != nil {
		return err
	}
	return tx.Commit()
}

// LatestSnapshot returns the newest indexed snapshot for a terrain, or
// ok=false when none exists.
func (s *SQLiteIndex) LatestSnapshot(terrainID string) (SnapshotInfo, bool, error) {
	var info SnapshotInfo
	row := s.db.QueryRow(
		`SELECT terrain_id, path, baked_unix, heights, signature
		 FROM snapshots WHERE terrain_id = ? ORDER BY baked_unix DESC LIMIT 1`, terrainID)
	err := row.Scan(&info.TerrainID, &info.Path, &info.Baked, &info.Heights, &info.Signature)
	if err == sql.ErrNoRows {
		return info, false, nil
	}
	if err != nil {
		return info, false, err
	}
	return info, true, nil
}

// EditCount reports the number of indexed sculpt rows for a terrain.
func (s *SQLiteIndex) EditCount(terrainID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM edits WHERE terrain_id = ?`, terrainID).Scan(&n)
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots
		(terrain_id,baked_unix,path,rows,columns,cell_size,heights,manual,seed,mode,signature)
		VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertEdit, _ := s.db.Prepare(`INSERT OR REPLACE INTO edits
		(terrain_id,seq,op,shape,cx,cz,radius,strength,changed,recorded_at)
		VALUES(?,?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertSnapshot != nil {
			_ = insertSnapshot.Close()
		}
		if insertEdit != nil {
			_ = insertEdit.Close()
		}
	}()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 500
		commitWait  = time.Second

		editSeq = map[string]int{}
	)

	begin := func() bool {
		if tx != nil {
			return true
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return false
		}
		tx = txx
		return true
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		switch r.kind {
		case reqSnapshot:
			if !begin() {
				continue
			}
			row := r.snapshot
			_, _ = tx.Stmt(insertSnapshot).Exec(
				row.TerrainID, row.Baked, row.Path, row.Rows, row.Columns,
				row.CellSize, row.Heights, boolInt(row.Manual), row.Seed,
				row.Mode, row.Signature)
			opCount++
		case reqEdit:
			e := r.edit
			if _, ok := editSeq[e.TerrainID]; !ok {
				// Resume numbering from existing rows. Commit first: the
				// single connection cannot serve a query under an open tx.
				commit()
				var maxSeq sql.NullInt64
				_ = s.db.QueryRow(`SELECT MAX(seq) FROM edits WHERE terrain_id = ?`, e.TerrainID).Scan(&maxSeq)
				editSeq[e.TerrainID] = int(maxSeq.Int64)
			}
			if !begin() {
				continue
			}
			editSeq[e.TerrainID]++
			_, _ = tx.Stmt(insertEdit).Exec(
				e.TerrainID, editSeq[e.TerrainID], e.Op, e.Shape,
				e.CenterX, e.CenterZ, e.Radius, e.Strength,
				boolInt(e.Changed), time.Now().UTC().Format(time.RFC3339Nano))
			opCount++
		case reqFlush:
			commit()
			close(r.done)
		}

		if opCount >= commitEvery || (opCount > 0 && time.Since(lastCommit) > commitWait) {
			commit()
		}
	}
	commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
