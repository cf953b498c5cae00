package pipeline

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLedgerHasAndAdd(t *testing.T) {
	ctx := context.Background()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("OpenLedger() error = %v", err)
	}
	defer ledger.Close()

	seen, err := ledger.Has(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if seen {
		t.Error("Has() on fresh ledger = true, want false")
	}

	if err := ledger.Add(ctx, "a.pdf"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	seen, err = ledger.Has(ctx, "a.pdf")
	if err != nil {
		t.Fatalf("Has() error = %v", err)
	}
	if !seen {
		t.Error("Has() after Add() = false, want true")
	}

	// Re-adding is a no-op, not an error.
	if err := ledger.Add(ctx, "a.pdf"); err != nil {
		t.Errorf("repeat Add() error = %v", err)
	}

	ids, err := ledger.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "a.pdf" {
		t.Errorf("List() = %v, want [a.pdf]", ids)
	}
}

func TestLedgerSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	ledger, err := OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := ledger.Add(ctx, "guide.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Add(ctx, "faq.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenLedger(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	ids, err := reopened.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "guide.pdf" || ids[1] != "faq.pdf" {
		t.Errorf("List() after reopen = %v, want [guide.pdf faq.pdf]", ids)
	}
}

func TestLedgerClear(t *testing.T) {
	ctx := context.Background()
	ledger, err := OpenLedger(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer ledger.Close()

	if err := ledger.Add(ctx, "a.pdf"); err != nil {
		t.Fatal(err)
	}
	if err := ledger.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	seen, err := ledger.Has(ctx, "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if seen {
		t.Error("Has() after Clear() = true, want false")
	}
}
