package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

// openTestStore creates a fresh store in a temp directory.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// day builds a date at midnight UTC.
func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mustUpsertIngredient seeds one catalog entry or fails the test.
func mustUpsertIngredient(t *testing.T, s *Store, ing Ingredient) {
	t.Helper()
	if err := s.UpsertIngredient(context.Background(), ing); err != nil {
		t.Fatalf("UpsertIngredient(%s) failed: %v", ing.ID, err)
	}
}

// mustInsertUsage seeds one usage row or fails the test.
func mustInsertUsage(t *testing.T, s *Store, u UsageRecord) {
	t.Helper()
	if err := s.InsertUsage(context.Background(), u); err != nil {
		t.Fatalf("InsertUsage failed: %v", err)
	}
}

// mustDecimal parses a decimal literal or fails the test.
func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

// mustUpsertRecipeLine seeds one recipe mapping or fails the test.
func mustUpsertRecipeLine(t *testing.T, s *Store, r RecipeLine) {
	t.Helper()
	if err := s.UpsertRecipeLine(context.Background(), r); err != nil {
		t.Fatalf("UpsertRecipeLine failed: %v", err)
	}
}
