// Package memory implements the Shelf store primitives in process
// memory. It is the default embedded backend and the test double for
// the table, sorted, and session layers.
//
// One mutex guards all state. Every key carries a version counter that
// is bumped on each mutation; the watch/commit transaction compares the
// counters captured at watch time against the current ones at commit
// time, which is exactly the abort-on-conflict contract the engine
// layers rely on.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mesh-intelligence/shelf/pkg/types"
)

type kind int

const (
	kindString kind = iota
	kindHash
	kindSet
	kindZSet
)

func (k kind) String() string {
	switch k {
	case kindString:
		return "string"
	case kindHash:
		return "hash"
	case kindSet:
		return "set"
	case kindZSet:
		return "zset"
	}
	return "unknown"
}

type entry struct {
	kind     kind
	expireAt time.Time // zero means no expiry

	str  string
	hash map[string]string
	set  map[string]struct{}
	zset *zset
}

func (e *entry) expired(now time.Time) bool {
	return !e.expireAt.IsZero() && now.After(e.expireAt)
}

// Store is an in-memory types.Store.
type Store struct {
	mu       sync.Mutex
	data     map[string]*entry
	versions map[string]uint64

	now func() time.Time // test hook
}

var _ types.Store = (*Store)(nil)

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		data:     make(map[string]*entry),
		versions: make(map[string]uint64),
		now:      time.Now,
	}
}

func (s *Store) Close() error { return nil }

// bump marks key as mutated for the watch protocol.
func (s *Store) bump(key string) { s.versions[key]++ }

// lookup returns the live entry at key, purging it first if expired.
func (s *Store) lookup(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if e.expired(s.now()) {
		delete(s.data, key)
		s.bump(key)
		return nil
	}
	return e
}

// typed returns the live entry at key, failing when the key holds a
// different kind of value.
func (s *Store) typed(key string, k kind) (*entry, error) {
	e := s.lookup(key)
	if e == nil {
		return nil, nil
	}
	if e.kind != k {
		return nil, fmt.Errorf("key %q holds a %s, not a %s", key, e.kind, k)
	}
	return e, nil
}

// String operations.

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindString)
	if err != nil || e == nil {
		return "", false, err
	}
	return e.str, true, nil
}

func (s *Store) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value, ttl)
	return nil
}

func (s *Store) setLocked(key, value string, ttl time.Duration) {
	e := &entry{kind: kindString, str: value}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	}
	s.data[key] = e
	s.bump(key)
}

func (s *Store) Incr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindString)
	if err != nil {
		return 0, err
	}
	var n int64
	if e != nil {
		n, err = strconv.ParseInt(e.str, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incrementing key %q: %w", key, err)
		}
	}
	n++
	if e == nil {
		e = &entry{kind: kindString}
		s.data[key] = e
	}
	e.str = strconv.FormatInt(n, 10)
	s.bump(key)
	return n, nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, key := range keys {
		if s.lookup(key) != nil {
			n++
		}
		s.delLocked(key)
	}
	return n, nil
}

func (s *Store) delLocked(key string) {
	if _, ok := s.data[key]; ok {
		delete(s.data, key)
		s.bump(key)
	}
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookup(key) != nil, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.lookup(key)
	if e == nil {
		return false, nil
	}
	if ttl > 0 {
		e.expireAt = s.now().Add(ttl)
	} else {
		e.expireAt = time.Time{}
	}
	s.bump(key)
	return true, nil
}

// Hash operations.

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindHash)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	if e != nil {
		for f, v := range e.hash {
			out[f] = v
		}
	}
	return out, nil
}

func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hsetLocked(key, fields)
}

func (s *Store) hsetLocked(key string, fields map[string]string) error {
	e, err := s.typed(key, kindHash)
	if err != nil {
		return err
	}
	if e == nil {
		e = &entry{kind: kindHash, hash: make(map[string]string)}
		s.data[key] = e
	}
	for f, v := range fields {
		e.hash[f] = v
	}
	s.bump(key)
	return nil
}

// Set operations.

func (s *Store) SAdd(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saddLocked(key, members)
}

func (s *Store) saddLocked(key string, members []string) (int64, error) {
	e, err := s.typed(key, kindSet)
	if err != nil {
		return 0, err
	}
	if e == nil {
		e = &entry{kind: kindSet, set: make(map[string]struct{})}
		s.data[key] = e
	}
	var n int64
	for _, m := range members {
		if _, ok := e.set[m]; !ok {
			e.set[m] = struct{}{}
			n++
		}
	}
	s.bump(key)
	return n, nil
}

func (s *Store) SRem(_ context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sremLocked(key, members)
}

func (s *Store) sremLocked(key string, members []string) (int64, error) {
	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}
	var n int64
	for _, m := range members {
		if _, ok := e.set[m]; ok {
			delete(e.set, m)
			n++
		}
	}
	if len(e.set) == 0 {
		delete(s.data, key)
	}
	s.bump(key)
	return n, nil
}

func (s *Store) SIsMember(_ context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return false, err
	}
	_, ok := e.set[member]
	return ok, nil
}

func (s *Store) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.smembersLocked(key)
}

func (s *Store) smembersLocked(key string) ([]string, error) {
	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return nil, err
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) SCard(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := s.typed(key, kindSet)
	if err != nil || e == nil {
		return 0, err
	}
	return int64(len(e.set)), nil
}

// SScan walks the set in sorted member order, the cursor being the next
// position. Enumeration of a quiescent set is complete and
// duplicate-free; concurrent mutation may deliver a member twice or not
// at all, as with any store-side cursor scan.
func (s *Store) SScan(_ context.Context, key string, cursor uint64, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, err := s.smembersLocked(key)
	if err != nil {
		return nil, 0, err
	}
	return scanPage(members, cursor, count)
}

func (s *Store) ScanKeys(_ context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var all []string
	for k, e := range s.data {
		if e.expired(now) {
			continue
		}
		if globMatch(match, k) {
			all = append(all, k)
		}
	}
	sort.Strings(all)
	return scanPage(all, cursor, count)
}

// globMatch reports whether s matches pattern. Only * and ? are
// wildcards; every other byte, slashes and brackets included, matches
// itself. Index key patterns embed raw field values, so a path-style
// matcher that stops * at separators or parses character classes would
// skip keys those values produce.
func globMatch(pattern, s string) bool {
	p, i := 0, 0
	starP, starS := -1, 0
	for i < len(s) {
		switch {
		case p < len(pattern) && pattern[p] == '*':
			starP, starS = p, i
			p++
		case p < len(pattern) && (pattern[p] == '?' || pattern[p] == s[i]):
			p++
			i++
		case starP >= 0:
			starS++
			p, i = starP+1, starS
		default:
			return false
		}
	}
	for p < len(pattern) && pattern[p] == '*' {
		p++
	}
	return p == len(pattern)
}

// scanPage slices one cursor step out of the full sorted listing.
func scanPage(all []string, cursor uint64, count int64) ([]string, uint64, error) {
	if count <= 0 {
		count = 10
	}
	if cursor >= uint64(len(all)) {
		return nil, 0, nil
	}
	end := cursor + uint64(count)
	if end >= uint64(len(all)) {
		return all[cursor:], 0, nil
	}
	return all[cursor:end], end, nil
}
