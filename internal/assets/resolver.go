package assets

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Source fetches raw texture bytes for a reference string.
type Source interface {
	Fetch(ctx context.Context, ref string) ([]byte, error)
}

// Texture is a resolved ground surface texture.
type Texture struct {
	Ref  string
	Data []byte
}

type Stats struct {
	QueueDepth     int
	QueueCapacity  int
	RequestedTotal uint64
	StaleTotal     uint64
	FailTotal      uint64
	ReadyTotal     uint64
}

type job struct {
	gen uint64
	ref string
}

// Resolver loads ground textures off the tick thread. Each Request
// supersedes the previous one; a fetch that completes after a newer
// request was issued is dropped. There is no cancellation token, only
// the generation check on delivery.
type Resolver struct {
	source  Source
	timeout time.Duration
	logger  *log.Logger

	jobs chan job
	gen  atomic.Uint64
	wg   sync.WaitGroup

	mu      sync.Mutex
	current *Texture

	requestedTotal atomic.Uint64
	staleTotal     atomic.Uint64
	failTotal      atomic.Uint64
	readyTotal     atomic.Uint64
}

func NewResolver(source Source, queueCapacity int, timeout time.Duration, logger *log.Logger) *Resolver {
	if queueCapacity <= 0 {
		queueCapacity = 16
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	r := &Resolver{
		source:  source,
		timeout: timeout,
		logger:  logger,
		jobs:    make(chan job, queueCapacity),
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for j := range r.jobs {
			r.fetchOne(j)
		}
	}()
	return r
}

// Request asks for ref to become the current texture. Non-blocking; if
// the queue is full the oldest pending request is discarded, since a
// newer generation supersedes it anyway.
func (r *Resolver) Request(ref string) {
	if r == nil || r.source == nil || ref == "" {
		return
	}
	r.requestedTotal.Add(1)
	j := job{gen: r.gen.Add(1), ref: ref}
	for {
		select {
		case r.jobs <- j:
			return
		default:
		}
		select {
		case <-r.jobs:
		default:
		}
	}
}

// Current returns the most recently resolved texture, or nil.
func (r *Resolver) Current() *Texture {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Resolver) Close() {
	if r == nil {
		return
	}
	close(r.jobs)
	r.wg.Wait()
}

func (r *Resolver) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(r.jobs),
		QueueCapacity:  cap(r.jobs),
		RequestedTotal: r.requestedTotal.Load(),
		StaleTotal:     r.staleTotal.Load(),
		FailTotal:      r.failTotal.Load(),
		ReadyTotal:     r.readyTotal.Load(),
	}
}

func (r *Resolver) fetchOne(j job) {
	if j.gen != r.gen.Load() {
		r.staleTotal.Add(1)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	data, err := r.source.Fetch(ctx, j.ref)
	cancel()
	if err != nil {
		r.failTotal.Add(1)
		r.printf("texture fetch failed ref=%s err=%v", j.ref, err)
		return
	}
	if j.gen != r.gen.Load() {
		r.staleTotal.Add(1)
		r.printf("texture drop ref=%s reason=superseded", j.ref)
		return
	}
	r.mu.Lock()
	r.current = &Texture{Ref: j.ref, Data: data}
	r.mu.Unlock()
	r.readyTotal.Add(1)
}

func (r *Resolver) printf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

// DirSource serves texture refs from files under a base directory.
type DirSource struct {
	baseDir string
}

func NewDirSource(baseDir string) *DirSource {
	return &DirSource{baseDir: baseDir}
}

func (s *DirSource) Fetch(_ context.Context, ref string) ([]byte, error) {
	if ref == "" {
		return nil, fmt.Errorf("empty texture ref")
	}
	rel := filepath.FromSlash(ref)
	if filepath.IsAbs(rel) || strings.Contains(rel, "..") {
		return nil, fmt.Errorf("texture ref %s escapes base dir", ref)
	}
	b, err := os.ReadFile(filepath.Join(s.baseDir, rel))
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w", ref, err)
	}
	return b, nil
}
