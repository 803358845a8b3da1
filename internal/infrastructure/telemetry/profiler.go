package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"

	"github.com/grafana/pyroscope-go"
	"go.uber.org/zap"
)

// pprof label keys. Labels must stay low-cardinality, so request and user
// IDs never become labels.
const (
	ProfilingLabelRoute  = "route"
	ProfilingLabelMethod = "method"
	ProfilingLabelTenant = "tenant"
	ProfilingLabelJob    = "job"
)

// MaxLabelValueLength truncates label values.
const MaxLabelValueLength = 128

type ProfilerConfig struct {
	Enabled            bool
	ServerAddress      string // e.g. http://pyroscope:4040
	ApplicationName    string
	ProfileAllocations bool
	ProfileMutexes     bool
}

// Profiler pushes continuous profiles to Pyroscope. A disabled Profiler is
// a valid no-op.
type Profiler struct {
	profiler *pyroscope.Profiler
	logger   *zap.Logger
	stopOnce sync.Once
	stopErr  error
}

func NewProfiler(cfg ProfilerConfig, logger *zap.Logger) (*Profiler, error) {
	p := &Profiler{logger: logger}
	if !cfg.Enabled {
		logger.Info("Continuous profiling disabled")
		return p, nil
	}
	switch {
	case cfg.ServerAddress == "":
		return nil, errors.New("profiling enabled without a server address")
	case cfg.ApplicationName == "":
		return nil, errors.New("profiling enabled without an application name")
	}

	tags := map[string]string{}
	if host := os.Getenv("HOSTNAME"); host != "" {
		tags["hostname"] = host
	}
	prof, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ApplicationName,
		ServerAddress:   cfg.ServerAddress,
		Logger:          logger.Named("pyroscope").Sugar(),
		Tags:            tags,
		ProfileTypes:    profileTypes(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("start pyroscope: %w", err)
	}
	p.profiler = prof

	logger.Info("Continuous profiling enabled", zap.String("server_address", cfg.ServerAddress))
	return p, nil
}

// CPU, heap and goroutine profiles always; allocation and mutex profiles
// cost more and are opt-in.
func profileTypes(cfg ProfilerConfig) []pyroscope.ProfileType {
	types := []pyroscope.ProfileType{pyroscope.ProfileCPU, pyroscope.ProfileInuseSpace, pyroscope.ProfileGoroutines}
	if cfg.ProfileAllocations {
		types = append(types, pyroscope.ProfileAllocObjects, pyroscope.ProfileAllocSpace)
	}
	if cfg.ProfileMutexes {
		types = append(types, pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration)
	}
	return types
}

// Stop flushes and stops the agent. Later calls return the first result.
func (p *Profiler) Stop() error {
	p.stopOnce.Do(func() {
		if p.profiler == nil {
			return
		}
		if err := p.profiler.Stop(); err != nil {
			p.stopErr = fmt.Errorf("stop pyroscope: %w", err)
			return
		}
		p.logger.Info("Continuous profiling stopped")
	})
	return p.stopErr
}

func (p *Profiler) IsEnabled() bool {
	return p.profiler != nil
}

// WithProfilingLabels runs fn with pprof labels so profiles can be sliced
// by route, tenant or job. Empty values are skipped.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// labelPairs flattens labels into sorted key, value pairs.
func labelPairs(labels map[string]string) []string {
	var keys []string
	for k, v := range labels {
		if k != "" && v != "" {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		v := labels[k]
		if len(v) > MaxLabelValueLength {
			v = v[:MaxLabelValueLength]
		}
		pairs = append(pairs, k, v)
	}
	return pairs
}
