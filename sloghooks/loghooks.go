package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/metacache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	ReplaceMissedEvery uint64
	DecodeFailedEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	replaceMissedCtr atomic.Uint64
	decodeFailedCtr  atomic.Uint64
}

var _ metacache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) MetadataWriteFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("metacache.metadata_write_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) RegistryAppendFailed(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("metacache.registry_append_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) ReplaceMissed(storageKey string) {
	if h.l == nil || !sample(h.opts.ReplaceMissedEvery, &h.replaceMissedCtr) {
		return
	}
	h.l.Debug("metacache.replace_missed",
		"key", h.redact(storageKey))
}

func (h *Hooks) ProviderSetRejected(storageKey string) {
	if h.l == nil {
		return
	}
	h.l.Warn("metacache.provider_set_rejected",
		"key", h.redact(storageKey))
}

func (h *Hooks) DecodeFailed(storageKey string, err error) {
	if h.l == nil || !sample(h.opts.DecodeFailedEvery, &h.decodeFailedCtr) {
		return
	}
	h.l.Warn("metacache.decode_failed",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) PatternRemoved(pattern string, scanned, removed int) {
	if h.l == nil {
		return
	}
	h.l.Info("metacache.pattern_removed",
		"pattern", pattern,
		"scanned", scanned,
		"removed", removed)
}

func (h *Hooks) Flushed(prefix string) {
	if h.l == nil {
		return
	}
	h.l.Warn("metacache.flushed",
		"prefix", prefix,
		"scope", "all prefixes")
}
