package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"groundforge/internal/assets"
	"groundforge/internal/persistence/indexdb"
	"groundforge/internal/persistence/snapshot"
	"groundforge/internal/sim/physics"
	"groundforge/internal/sim/tuning"
	"groundforge/internal/sim/world"
	"groundforge/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		terrainID  = flag.String("terrain", "terrain_1", "terrain id")
		rows       = flag.Int("rows", 256, "grid rows (fresh terrain only)")
		columns    = flag.Int("columns", 256, "grid columns (fresh terrain only)")
		cellSize   = flag.Float64("cell", 1.0, "grid cell size in world units (fresh terrain only)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the snapshot/edit index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")

		textureDir = flag.String("textures", "", "ground texture directory (empty to disable the resolver)")
		textureRef = flag.String("texture", "", "initial ground texture ref to resolve")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	_ = os.MkdirAll(*dataDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Printf("tuning not found (%s); using defaults", tp)
			tune = tuning.Defaults()
		} else {
			logger.Fatalf("load tuning: %v", err)
		}
	}
	tune.SnapshotDir = *dataDir

	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(*dataDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	phys := physics.NewMemWorld(0)
	terrain := world.NewTerrain(world.TerrainConfig{
		ID:       *terrainID,
		Rows:     *rows,
		Columns:  *columns,
		CellSize: *cellSize,
		Tuning:   tune,
	}, phys, logger, time.Now)
	defer terrain.Dispose()

	// Resume from snapshot (fresh terrain otherwise).
	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		snapshotToLoad = latestSnapshot(idx, *dataDir, *terrainID)
	}
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		if snap.Header.TerrainID != "" && snap.Header.TerrainID != *terrainID {
			logger.Fatalf("snapshot terrain id mismatch: flag=%s snap=%s", *terrainID, snap.Header.TerrainID)
		}
		hf, err := snap.Import()
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		terrain.ReplaceHeightField(hf)
		logger.Printf("resumed from snapshot=%s baked=%d", filepath.Base(snapshotToLoad), snap.Header.Baked)
	}

	ctx, cancel := signalContext()
	defer cancel()

	var textures *assets.Resolver
	if strings.TrimSpace(*textureDir) != "" {
		textures = assets.NewResolver(assets.NewDirSource(*textureDir), 16, 10*time.Second, logger)
		defer textures.Close()
		if strings.TrimSpace(*textureRef) != "" {
			textures.Request(*textureRef)
		}
	}

	svc := world.NewService(terrain, tune, idx, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP groundforge_chunks_render Resident render chunk count.\n")
		fmt.Fprintf(rw, "# TYPE groundforge_chunks_render gauge\n")
		fmt.Fprintf(rw, "groundforge_chunks_render{terrain=%q} %d\n", *terrainID, len(terrain.Chunks().ResidentRender()))

		fmt.Fprintf(rw, "# HELP groundforge_chunks_physics Resident physics chunk count.\n")
		fmt.Fprintf(rw, "# TYPE groundforge_chunks_physics gauge\n")
		fmt.Fprintf(rw, "groundforge_chunks_physics{terrain=%q} %d\n", *terrainID, len(terrain.Chunks().ResidentPhysics()))

		fmt.Fprintf(rw, "# HELP groundforge_bodies Live collision body count.\n")
		fmt.Fprintf(rw, "# TYPE groundforge_bodies gauge\n")
		fmt.Fprintf(rw, "groundforge_bodies{terrain=%q} %d\n", *terrainID, len(phys.Bodies))

		writeTextureMetrics(rw, textures)
		if idx != nil {
			if n, err := idx.EditCount(*terrainID); err == nil {
				fmt.Fprintf(rw, "# HELP groundforge_edits_total Recorded sculpt edits.\n")
				fmt.Fprintf(rw, "# TYPE groundforge_edits_total counter\n")
				fmt.Fprintf(rw, "groundforge_edits_total{terrain=%q} %d\n", *terrainID, n)
			}
		}
	})
	if envBool("GF_ENABLE_PPROF_HTTP", false) {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", ws.NewServer(svc, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

// latestSnapshot prefers the index record; falls back to scanning the data
// dir for <terrain>-<unix>.snap files.
func latestSnapshot(idx *indexdb.SQLiteIndex, dataDir, terrainID string) string {
	if idx != nil {
		if info, ok, err := idx.LatestSnapshot(terrainID); err == nil && ok {
			if _, statErr := os.Stat(info.Path); statErr == nil {
				return info.Path
			}
		}
	}
	ents, err := os.ReadDir(dataDir)
	if err != nil {
		return ""
	}
	prefix := terrainID + "-"
	var best string
	var bestBaked int64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".snap") {
			continue
		}
		base := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".snap")
		baked, err := strconv.ParseInt(base, 10, 64)
		if err != nil {
			continue
		}
		if best == "" || baked > bestBaked {
			bestBaked = baked
			best = filepath.Join(dataDir, name)
		}
	}
	return best
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeTextureMetrics(rw http.ResponseWriter, r *assets.Resolver) {
	if r == nil {
		return
	}
	s := r.Stats()
	fmt.Fprintf(rw, "# HELP groundforge_texture_requested_total Total texture resolve requests.\n")
	fmt.Fprintf(rw, "# TYPE groundforge_texture_requested_total counter\n")
	fmt.Fprintf(rw, "groundforge_texture_requested_total %d\n", s.RequestedTotal)

	fmt.Fprintf(rw, "# HELP groundforge_texture_stale_total Total superseded texture results dropped.\n")
	fmt.Fprintf(rw, "# TYPE groundforge_texture_stale_total counter\n")
	fmt.Fprintf(rw, "groundforge_texture_stale_total %d\n", s.StaleTotal)

	fmt.Fprintf(rw, "# HELP groundforge_texture_fail_total Total failed texture fetches.\n")
	fmt.Fprintf(rw, "# TYPE groundforge_texture_fail_total counter\n")
	fmt.Fprintf(rw, "groundforge_texture_fail_total %d\n", s.FailTotal)
}
