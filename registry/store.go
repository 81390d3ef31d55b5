package registry

import (
	"context"
	"errors"

	"github.com/unkn0wn-root/metacache/internal/wire"
	pr "github.com/unkn0wn-root/metacache/provider"
)

// Store keeps the registry as one encoded list under a single backend key.
//
// Append and Prune are read-modify-write over separate backend calls. Two
// writers racing on the same key can lose each other's appends (last writer
// wins on the whole list), and pattern removal will then miss those keys.
// The registry key is written without TTL so it outlives the entries it lists.
type Store struct {
	p   pr.Provider
	key string
}

var _ Registry = (*Store)(nil)

func NewStore(p pr.Provider, key string) *Store {
	return &Store{p: p, key: key}
}

func (s *Store) Key() string { return s.key }

func (s *Store) Append(ctx context.Context, physicalKey string) error {
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	return s.write(ctx, append(keys, physicalKey))
}

// Keys treats an absent or undecodable list as empty.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	raw, ok, err := s.p.Get(ctx, s.key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	keys, err := wire.DecodeKeys(raw)
	if errors.Is(err, wire.ErrCorrupt) {
		return nil, nil
	}
	return keys, err
}

func (s *Store) Prune(ctx context.Context, physicalKeys []string) error {
	if len(physicalKeys) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(physicalKeys))
	for _, k := range physicalKeys {
		drop[k] = struct{}{}
	}
	keys, err := s.Keys(ctx)
	if err != nil {
		return err
	}
	kept := keys[:0]
	for _, k := range keys {
		if _, ok := drop[k]; !ok {
			kept = append(kept, k)
		}
	}
	if len(kept) == len(keys) {
		return nil
	}
	return s.write(ctx, kept)
}

func (s *Store) write(ctx context.Context, keys []string) error {
	b, err := wire.EncodeKeys(keys)
	if err != nil {
		return err
	}
	ok, err := s.p.Set(ctx, s.key, b, 0)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("registry: write rejected by provider")
	}
	return nil
}
