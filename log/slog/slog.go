package slog

import (
	"context"
	stdslog "log/slog"
	"sort"

	"github.com/unkn0wn-root/metacache"
)

var _ metacache.Logger = Logger{}

// Logger forwards to a *slog.Logger. Fields are emitted in key order so
// output is stable across runs.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f metacache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f metacache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f metacache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f metacache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f metacache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, level) {
		return
	}
	s.L.LogAttrs(ctx, level, msg, attrs(f)...)
}

func attrs(f metacache.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	ks := make([]string, 0, len(f))
	for k := range f {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range ks {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
