// Package performance captures pprof profiles around long simulation runs.
package performance

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync/atomic"
	"time"

	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// ProfilerConfig holds configuration for the profiler
type ProfilerConfig struct {
	OutputDir    string
	EnableCPU    bool
	EnableMemory bool
}

// Profiler writes a CPU profile for the lifetime of a run and a heap
// profile when it stops
type Profiler struct {
	config    ProfilerConfig
	cpuFile   *os.File
	running   int64
	startTime time.Time
	stamp     string
	log       *logger.Logger
}

// NewProfiler creates a new performance profiler
func NewProfiler(config ProfilerConfig) *Profiler {
	if config.OutputDir == "" {
		config.OutputDir = "./profiles"
	}

	return &Profiler{
		config: config,
		log:    logger.GetLogger("performance.profiler"),
	}
}

// Start starts the profiler
func (p *Profiler) Start() error {
	if !atomic.CompareAndSwapInt64(&p.running, 0, 1) {
		return fmt.Errorf("profiler is already running")
	}

	if err := os.MkdirAll(p.config.OutputDir, 0o755); err != nil {
		atomic.StoreInt64(&p.running, 0)
		return fmt.Errorf("failed to create profile directory: %w", err)
	}

	p.startTime = time.Now()
	p.stamp = p.startTime.Format("20060102_150405")

	if p.config.EnableCPU {
		path := p.path("cpu")
		f, err := os.Create(path)
		if err != nil {
			atomic.StoreInt64(&p.running, 0)
			return fmt.Errorf("failed to create CPU profile file: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			atomic.StoreInt64(&p.running, 0)
			return fmt.Errorf("failed to start CPU profiling: %w", err)
		}
		p.cpuFile = f
		p.log.Infof("Started CPU profiling to %s", path)
	}

	return nil
}

// Stop stops CPU profiling and saves the heap profile
func (p *Profiler) Stop() error {
	if !atomic.CompareAndSwapInt64(&p.running, 1, 0) {
		return fmt.Errorf("profiler is not running")
	}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := p.cpuFile.Close(); err != nil {
			return fmt.Errorf("failed to close CPU profile: %w", err)
		}
		p.cpuFile = nil
	}

	if p.config.EnableMemory {
		if err := p.saveMemoryProfile(); err != nil {
			return err
		}
	}

	p.log.Infof("Profiler stopped after %v", time.Since(p.startTime))
	return nil
}

// IsRunning returns true if the profiler is running
func (p *Profiler) IsRunning() bool {
	return atomic.LoadInt64(&p.running) == 1
}

// Files lists the profiles a completed run has written
func (p *Profiler) Files() []string {
	var files []string
	if p.config.EnableCPU {
		files = append(files, p.path("cpu"))
	}
	if p.config.EnableMemory {
		files = append(files, p.path("memory"))
	}
	return files
}

func (p *Profiler) path(kind string) string {
	return filepath.Join(p.config.OutputDir, fmt.Sprintf("%s_%s.prof", kind, p.stamp))
}

func (p *Profiler) saveMemoryProfile() error {
	path := p.path("memory")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create memory profile file: %w", err)
	}
	defer file.Close()

	runtime.GC() // up-to-date heap statistics
	if err := pprof.WriteHeapProfile(file); err != nil {
		return fmt.Errorf("failed to write memory profile: %w", err)
	}

	p.log.Infof("Saved memory profile to %s", path)
	return nil
}
