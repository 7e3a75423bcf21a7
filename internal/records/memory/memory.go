package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bilancio/internal/core"
	"bilancio/internal/records"
)

// Store keeps transactions and categories in process memory.
type Store struct {
	mu    sync.Mutex
	cats  []core.Category
	items []core.Transaction
}

var _ records.Source = (*Store)(nil)

// DefaultCategories seed a store when no seed file is available.
var DefaultCategories = []string{"Salary", "Food", "Rent", "Transport", "Utilities", "Entertainment"}

// New creates a store with the given category names, deduplicated
// case-insensitively in input order.
func New(names []string) *Store {
	s := &Store{}
	for _, name := range dedupe(names) {
		s.cats = append(s.cats, core.Category{ID: uuid.NewString(), Name: name})
	}
	return s
}

// NewFromFiles seeds categories from <base>/seed_categories.txt, one name per
// line. Blank lines and lines starting with '#' are skipped.
func NewFromFiles(base string) *Store {
	names := SeedCategories(base)
	if len(names) == 0 {
		names = DefaultCategories
	}
	return New(names)
}

// SeedCategories reads the category names listed in <base>/seed_categories.txt.
// A missing file yields none.
func SeedCategories(base string) []string {
	return readLines(filepath.Join(base, "seed_categories.txt"))
}

// Transactions returns a copy of the stored transactions in insertion order.
func (s *Store) Transactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.items...), nil
}

// ListCategories returns a copy of the categories.
func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.cats...), nil
}

// CreateTransaction validates the input, resolves its category and stores
// the transaction under a fresh id.
func (s *Store) CreateTransaction(_ context.Context, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := core.ResolveCategory(s.cats, in.Category)
	if !ok {
		return core.Transaction{}, &records.StoreError{
			Op:     "create transaction",
			Detail: fmt.Sprintf("Unknown category %q", strings.TrimSpace(in.Category)),
			Err:    core.ErrUnknownCategory,
		}
	}
	tx := core.Transaction{
		ID:           uuid.NewString(),
		Type:         in.Type,
		CategoryID:   cat.ID,
		CategoryName: cat.Name,
		Amount:       in.Amount,
		Date:         in.Date,
		Description:  strings.TrimSpace(in.Description),
	}
	s.items = append(s.items, tx)
	return tx, nil
}

// DeleteTransaction removes the transaction with the given id.
func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, tx := range s.items {
		if tx.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete transaction %s: %w", id, core.ErrNotFound)
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return dedupe(out)
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := strings.ToLower(v)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, v)
	}
	return out
}
