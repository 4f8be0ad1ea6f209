// Package profiling serves pprof endpoints and runtime statistics next to the viewer.
//
// The endpoints expose goroutine stacks and heap contents. They are off unless
// server.profiling is set, and should only be enabled on a local or internal address.
package profiling

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/conduit-lang/schemaviewer/internal/web/response"
	"github.com/conduit-lang/schemaviewer/internal/web/router"
	"github.com/go-chi/chi/v5"
)

// Config holds profiling configuration
type Config struct {
	// Path is the URL prefix of the endpoints
	Path string

	// BlockRate sets the block profiling rate (0 = disabled)
	BlockRate int

	// MutexFraction sets the mutex profiling fraction (0 = disabled)
	MutexFraction int
}

// DefaultConfig returns default profiling configuration
func DefaultConfig() *Config {
	return &Config{
		Path:          "/debug/pprof",
		BlockRate:     0,
		MutexFraction: 0,
	}
}

// Handler returns the pprof endpoints plus /stats, rooted at "/"
func Handler(config *Config) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}

	runtime.SetBlockProfileRate(config.BlockRate)
	runtime.SetMutexProfileFraction(config.MutexFraction)

	r := chi.NewRouter()
	r.Get("/", pprof.Index)
	r.Get("/cmdline", pprof.Cmdline)
	r.Get("/profile", pprof.Profile)
	r.Get("/symbol", pprof.Symbol)
	r.Post("/symbol", pprof.Symbol)
	r.Get("/trace", pprof.Trace)
	r.Get("/stats", StatsHandler())

	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		r.Handle("/"+name, pprof.Handler(name))
	}
	return r
}

// Mount attaches the profiling endpoints to r under config.Path
func Mount(r *router.Router, config *Config) {
	if config == nil {
		config = DefaultConfig()
	}
	r.Mount(config.Path, Handler(config))
}

// Stats is a snapshot of the Go runtime
type Stats struct {
	Goroutines int         `json:"goroutines"`
	NumCPU     int         `json:"num_cpu"`
	Memory     MemoryStats `json:"memory"`
}

// MemoryStats holds the allocator counters of a Stats snapshot
type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// RuntimeStats returns current runtime statistics
func RuntimeStats() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Stats{
		Goroutines: runtime.NumGoroutine(),
		NumCPU:     runtime.NumCPU(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
	}
}

// StatsHandler serves RuntimeStats as JSON
func StatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, RuntimeStats())
	}
}
