package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/okian/glicko/internal/domain/model"
	"github.com/okian/glicko/pkg/metrics"
)

// node is a treap node keyed by (rating desc, id asc) with subtree sizes
// for O(log n) rank queries.
type node struct {
	id     string
	rating float64
	prio   uint64
	size   int
	left   *node
	right  *node
}

func size(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	n.size = 1 + size(n.left) + size(n.right)
}

// before reports whether (r1, id1) sorts ahead of (r2, id2) on the leaderboard.
func before(r1 float64, id1 string, r2 float64, id2 string) bool {
	if r1 != r2 {
		return r1 > r2
	}
	return id1 < id2
}

func rotateRight(n *node) *node {
	l := n.left
	n.left = l.right
	l.right = n
	fix(n)
	fix(l)
	return l
}

func rotateLeft(n *node) *node {
	r := n.right
	n.right = r.left
	r.left = n
	fix(n)
	fix(r)
	return r
}

func insert(n *node, id string, rating float64, prio uint64) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: prio, size: 1}
	}
	if before(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, rating)
		}
	case before(rating, id, n.rating, n.id):
		n.left = remove(n.left, id, rating)
	default:
		n.right = remove(n.right, id, rating)
	}
	fix(n)
	return n
}

// countHigher returns how many nodes carry a rating strictly above rating.
func countHigher(n *node, rating float64) int {
	total := 0
	for n != nil {
		if n.rating > rating {
			total += size(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return total
}

// collect appends up to limit nodes in leaderboard order.
func collect(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	collect(n.right, limit, out)
}

// TreapStore is an in-memory Store ordered by rating.
type TreapStore struct {
	mu   sync.RWMutex
	root *node
	byID map[string]model.Competitor
	rng  *rand.Rand
}

// NewTreapStore constructs a treap store with configuration options.
func NewTreapStore(_ context.Context, opts ...Option) *TreapStore {
	s := &TreapStore{
		byID: make(map[string]model.Competitor),
		rng:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), //nolint:gosec // treap priorities, not security
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Create implements Store.Create.
func (s *TreapStore) Create(_ context.Context, c model.Competitor) error {
	s.mu.Lock()
	if _, ok := s.byID[c.ID]; ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyExists, c.ID)
	}
	s.byID[c.ID] = c
	s.root = insert(s.root, c.ID, c.Rating, s.rng.Uint64())
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateCompetitors(n)
	return nil
}

// Get implements Store.Get.
func (s *TreapStore) Get(_ context.Context, id string) (model.Competitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return model.Competitor{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return c, nil
}

// All implements Store.All.
func (s *TreapStore) All(_ context.Context) ([]model.Competitor, error) {
	s.mu.RLock()
	out := make([]model.Competitor, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Apply implements Store.Apply.
func (s *TreapStore) Apply(_ context.Context, updates []model.Competitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if _, ok := s.byID[u.ID]; !ok {
			metrics.RecordErrorByComponent("repository", "not_found")
			return fmt.Errorf("%w: %s", ErrNotFound, u.ID)
		}
	}
	for _, u := range updates {
		old := s.byID[u.ID]
		s.root = remove(s.root, old.ID, old.Rating)
		s.root = insert(s.root, u.ID, u.Rating, s.rng.Uint64())
		s.byID[u.ID] = u
	}
	return nil
}

// Rank implements Store.Rank in O(log n).
func (s *TreapStore) Rank(_ context.Context, id string) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return Entry{Rank: countHigher(s.root, c.Rating) + 1, Competitor: c}, nil
}

// TopN implements Store.TopN.
func (s *TreapStore) TopN(_ context.Context, n int) ([]Entry, error) {
	if n < 1 {
		metrics.RecordErrorByComponent("repository", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := make([]*node, 0, min(n, len(s.byID)))
	collect(s.root, n, &nodes)

	out := make([]Entry, len(nodes))
	for i, nd := range nodes {
		rank := i + 1
		if i > 0 && nd.rating == nodes[i-1].rating {
			rank = out[i-1].Rank
		}
		out[i] = Entry{Rank: rank, Competitor: s.byID[nd.id]}
	}
	return out, nil
}

// Count implements Store.Count.
func (s *TreapStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID), nil
}

// Close implements Store.Close. The treap holds no external resources.
func (s *TreapStore) Close() error {
	return nil
}
