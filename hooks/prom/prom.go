// Package prom exports metacache hook events as Prometheus counters.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/metacache"
)

// Hooks counts events per cache. Keys are never used as labels.
type Hooks struct {
	partialWrites   *prometheus.CounterVec
	replaceMissed   prometheus.Counter
	setRejected     prometheus.Counter
	decodeFailed    prometheus.Counter
	patternRemovals prometheus.Counter
	patternScanned  prometheus.Counter
	patternRemoved  prometheus.Counter
	flushes         prometheus.Counter
}

var _ metacache.Hooks = (*Hooks)(nil)

type Options struct {
	Namespace string // metric namespace; "" => "metacache"
	// Cache is attached as a constant "cache" label (e.g. the prefix).
	Cache string
}

// New creates the counters and registers them on reg
// (nil => prometheus.DefaultRegisterer).
func New(reg prometheus.Registerer, opts Options) (*Hooks, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "metacache"
	}
	labels := prometheus.Labels{"cache": opts.Cache}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Name: name, Help: help, ConstLabels: labels,
		})
	}

	h := &Hooks{
		partialWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Name:        "partial_writes_total",
			Help:        "Set calls whose metadata or registry write failed",
			ConstLabels: labels,
		}, []string{"part"}), // "metadata", "registry"
		replaceMissed:   counter("replace_missed_total", "Set calls that fell back from replace to set"),
		setRejected:     counter("set_rejected_total", "Data writes rejected by the provider"),
		decodeFailed:    counter("decode_failed_total", "Stored payloads that could not be decoded"),
		patternRemovals: counter("pattern_removals_total", "RemovePattern calls"),
		patternScanned:  counter("pattern_scanned_keys_total", "Registry keys scanned by RemovePattern"),
		patternRemoved:  counter("pattern_removed_keys_total", "Entries deleted by RemovePattern"),
		flushes:         counter("flushes_total", "Full backend flushes"),
	}
	for _, c := range []prometheus.Collector{
		h.partialWrites, h.replaceMissed, h.setRejected, h.decodeFailed,
		h.patternRemovals, h.patternScanned, h.patternRemoved, h.flushes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) MetadataWriteFailed(string, error) {
	h.partialWrites.WithLabelValues("metadata").Inc()
}

func (h *Hooks) RegistryAppendFailed(string, error) {
	h.partialWrites.WithLabelValues("registry").Inc()
}

func (h *Hooks) ReplaceMissed(string)       { h.replaceMissed.Inc() }
func (h *Hooks) ProviderSetRejected(string) { h.setRejected.Inc() }
func (h *Hooks) DecodeFailed(string, error) { h.decodeFailed.Inc() }

func (h *Hooks) PatternRemoved(_ string, scanned, removed int) {
	h.patternRemovals.Inc()
	h.patternScanned.Add(float64(scanned))
	h.patternRemoved.Add(float64(removed))
}

func (h *Hooks) Flushed(string) { h.flushes.Inc() }
