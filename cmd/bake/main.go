package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"groundforge/internal/persistence/indexdb"
	"groundforge/internal/persistence/snapshot"
	"groundforge/internal/sim/ground"
	"groundforge/internal/sim/physics"
	"groundforge/internal/sim/road"
	"groundforge/internal/sim/tuning"
	"groundforge/internal/sim/world"
)

// bakeConfig is the offline bake recipe: grid dimensions, generation
// settings, and optional road networks to pre-build.
type bakeConfig struct {
	Terrain    string          `yaml:"terrain"`
	Rows       int             `yaml:"rows"`
	Columns    int             `yaml:"columns"`
	CellSize   float64         `yaml:"cell_size"`
	Generation ground.Settings `yaml:"generation"`
	Roads      []bakeRoad      `yaml:"roads"`
}

type bakeRoad struct {
	ID       string       `yaml:"id"`
	Vertices [][2]float64 `yaml:"vertices"`
	Segments [][2]int     `yaml:"segments"`
}

func main() {
	var (
		cfgPath    = flag.String("config", "", "path to bake config yaml")
		tuningPath = flag.String("tuning", "./configs/tuning.yaml", "path to tuning.yaml")
		outDir     = flag.String("out", "./data", "output directory")
		indexPath  = flag.String("index", "", "index db path (empty to skip indexing)")
	)
	flag.Parse()

	if *cfgPath == "" {
		fmt.Fprintln(os.Stderr, "missing -config")
		os.Exit(2)
	}

	cfg, err := loadBakeConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	tune, err := tuning.Load(*tuningPath)
	if err != nil {
		if os.IsNotExist(err) {
			tune = tuning.Defaults()
		} else {
			fmt.Fprintln(os.Stderr, "load tuning:", err)
			os.Exit(1)
		}
	}

	logger := log.New(os.Stdout, "[bake] ", log.LstdFlags)

	phys := physics.NewMemWorld(0)
	terrain := world.NewTerrain(world.TerrainConfig{
		ID:       cfg.Terrain,
		Rows:     cfg.Rows,
		Columns:  cfg.Columns,
		CellSize: cfg.CellSize,
		Tuning:   tune,
	}, phys, logger, time.Now)
	defer terrain.Dispose()

	applied := terrain.ApplyGroundGeneration(cfg.Generation)
	fmt.Printf("generated terrain=%s grid=%dx%d mode=%s seed=%d heights=%d\n",
		cfg.Terrain, cfg.Rows, cfg.Columns, applied.Mode, applied.Seed, len(terrain.HeightField().Heights))

	for _, r := range cfg.Roads {
		g, err := roadGraph(r)
		if err != nil {
			fmt.Fprintln(os.Stderr, "road", r.ID, "config:", err)
			os.Exit(1)
		}
		res, _ := terrain.BuildRoadCollisionTiles(r.ID, g, tune.Road)
		fmt.Printf("road id=%s bodies=%d tiles=%d boxes=%d heightfields=%d\n",
			r.ID, len(res.Bodies), len(res.Tiles),
			phys.CountKind(physics.ShapeBox), phys.CountKind(physics.ShapeHeightfield))
	}

	baked := time.Now().Unix()
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintln(os.Stderr, "out dir:", err)
		os.Exit(1)
	}
	path := filepath.Join(*outDir, fmt.Sprintf("%s-%d.snap", cfg.Terrain, baked))
	snap := snapshot.Export(cfg.Terrain, baked, terrain.HeightField())
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		fmt.Fprintln(os.Stderr, "write snapshot:", err)
		os.Exit(1)
	}
	fmt.Printf("snapshot path=%s signature=%s\n", path, terrain.HeightField().Signature())

	if strings.TrimSpace(*indexPath) != "" {
		idx, err := indexdb.OpenSQLite(*indexPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "open index:", err)
			os.Exit(1)
		}
		idx.RecordSnapshot(path, snap, terrain.HeightField().Signature())
		idx.Flush()
		idx.Close()
	}
}

func loadBakeConfig(path string) (bakeConfig, error) {
	cfg := bakeConfig{
		Terrain:  "terrain_1",
		Rows:     256,
		Columns:  256,
		CellSize: 1.0,
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	if cfg.Rows <= 0 || cfg.Columns <= 0 || cfg.CellSize <= 0 {
		return cfg, fmt.Errorf("%s: invalid grid %dx%d cell %g", path, cfg.Rows, cfg.Columns, cfg.CellSize)
	}
	return cfg, nil
}

func roadGraph(r bakeRoad) (*road.Graph, error) {
	if r.ID == "" {
		return nil, fmt.Errorf("missing road id")
	}
	pts := make([]*road.Point, len(r.Vertices))
	for i, v := range r.Vertices {
		pts[i] = &road.Point{X: v[0], Z: v[1]}
	}
	g := road.NewGraph(pts, r.Segments)
	if g.Segments() == 0 {
		return nil, fmt.Errorf("no usable segments")
	}
	return g, nil
}
