package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/records"
	"bilancio/internal/records/memory"
)

// fakeStore wraps the memory store with failure injection and hooks.
type fakeStore struct {
	records.Store

	reads      atomic.Int64
	createErr  error
	deleteErr  error
	listErr    error
	beforeRead func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{Store: records.Paged(memory.New(memory.DefaultCategories))}
}

func (f *fakeStore) Transactions(ctx context.Context) ([]core.Transaction, error) {
	f.reads.Add(1)
	if f.beforeRead != nil {
		f.beforeRead()
	}
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.Store.Transactions(ctx)
}

func (f *fakeStore) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	return f.Store.CreateTransaction(ctx, in)
}

func (f *fakeStore) DeleteTransaction(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Store.DeleteTransaction(ctx, id)
}

func newService(store records.Store) *TransactionService {
	return NewTransactionService(store, Options{
		PageSize: 10,
		Cache:    cache.NewLRUCache[View](50, time.Minute),
	})
}

func input(typ core.TransactionType, category string, cents int64, day int) core.TransactionInput {
	return core.TransactionInput{
		Type:     typ,
		Category: category,
		Amount:   core.Money{Cents: cents},
		Date:     core.NewDate(2024, 1, day),
	}
}

func mustCreate(t *testing.T, svc *TransactionService, in core.TransactionInput) core.Transaction {
	t.Helper()
	tx, err := svc.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return tx
}

func TestQuery_DerivesEverythingFromOneParamsSet(t *testing.T) {
	svc := newService(newFakeStore())
	mustCreate(t, svc, input(core.Income, "Salary", 10000, 1))
	mustCreate(t, svc, input(core.Expense, "Food", 3000, 2))
	mustCreate(t, svc, input(core.Expense, "Food", 2000, 3))

	v, err := svc.Query(context.Background(), core.DefaultParams())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if v.Page.Pagination != (core.Pagination{Page: 1, TotalPages: 1, Count: 3}) {
		t.Errorf("pagination = %+v", v.Page.Pagination)
	}
	if got := v.Page.Transactions[0].Amount.Cents; got != 2000 {
		t.Errorf("newest first expected, got amount %d", got)
	}
	if v.Summary.Totals.Income.Cents != 10000 || v.Summary.Totals.Expense.Cents != 5000 {
		t.Errorf("totals = %+v", v.Summary.Totals)
	}
	if len(v.Summary.ByCategory) != 1 || v.Summary.ByCategory[0] != (core.CategoryAmount{Name: "Food", Amount: core.Money{Cents: 5000}}) {
		t.Errorf("by category = %+v", v.Summary.ByCategory)
	}
	if len(v.Series.Income) != 1 || len(v.Series.Expense) != 2 {
		t.Errorf("series = %+v", v.Series)
	}
	if v.Series.Expense[0].Label != "03/01/2024" {
		t.Errorf("expense label = %q", v.Series.Expense[0].Label)
	}
	if len(v.Categories) != len(memory.DefaultCategories) {
		t.Errorf("categories = %d", len(v.Categories))
	}
}

// writeDuringRead creates a transaction whenever the service reaches for
// the paged listing or the categories, like a concurrent writer would.
type writeDuringRead struct {
	*fakeStore
	writes atomic.Int64
}

func (w *writeDuringRead) write(ctx context.Context) {
	n := w.writes.Add(1)
	_, _ = w.fakeStore.CreateTransaction(ctx, input(core.Expense, "Food", 300, int(n)+1))
}

func (w *writeDuringRead) ListTransactions(ctx context.Context, p core.Params, pageSize int) (core.TransactionPage, error) {
	w.write(ctx)
	return w.fakeStore.ListTransactions(ctx, p, pageSize)
}

func (w *writeDuringRead) ListCategories(ctx context.Context) ([]core.Category, error) {
	w.write(ctx)
	return w.fakeStore.ListCategories(ctx)
}

func TestQuery_PageAndChartsShareOneSnapshot(t *testing.T) {
	store := &writeDuringRead{fakeStore: newFakeStore()}
	svc := newService(store)
	mustCreate(t, svc, input(core.Expense, "Food", 500, 1))

	v, err := svc.Query(context.Background(), core.DefaultParams())
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}

	count := v.Page.Pagination.Count
	if points := len(v.Series.Income) + len(v.Series.Expense); points != count {
		t.Errorf("page count = %d, series points = %d", count, points)
	}
	var pageSum int64
	for _, tx := range v.Page.Transactions {
		pageSum += tx.Amount.Cents
	}
	if pageSum != v.Summary.Totals.Expense.Cents {
		t.Errorf("page sum = %d, expense total = %d", pageSum, v.Summary.Totals.Expense.Cents)
	}
	if store.reads.Load() != 1 {
		t.Errorf("transactions read %d times, want 1", store.reads.Load())
	}
}

func TestQuery_ClampsPageInParams(t *testing.T) {
	svc := newService(newFakeStore())
	mustCreate(t, svc, input(core.Expense, "Rent", 100, 1))

	v, err := svc.Query(context.Background(), core.DefaultParams().WithPage(7))
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if v.Params.Page != 1 || v.Page.Pagination.Page != 1 {
		t.Errorf("expected clamp to 1, got params %d, page %d", v.Params.Page, v.Page.Pagination.Page)
	}
}

func TestQuery_RejectsInvalidParams(t *testing.T) {
	svc := newService(newFakeStore())
	_, err := svc.Query(context.Background(), core.Params{Filter: "weird", Sort: core.SortByDate, Order: core.OrderAsc, Page: 1})
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !errors.Is(err, core.ErrInvalidFilter) {
		t.Errorf("expected ErrInvalidFilter in chain, got %v", err)
	}
}

func TestQuery_CachesUntilMutation(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()
	p := core.DefaultParams()

	if _, err := svc.Query(ctx, p); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Query(ctx, p); err != nil {
		t.Fatal(err)
	}
	if got := store.reads.Load(); got != 1 {
		t.Fatalf("expected one store read, got %d", got)
	}

	mustCreate(t, svc, input(core.Expense, "Food", 100, 1))
	v, err := svc.Query(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if v.Page.Pagination.Count != 1 {
		t.Errorf("view not refreshed after create: %+v", v.Page.Pagination)
	}
	if got := store.reads.Load(); got != 2 {
		t.Errorf("expected a second store read, got %d", got)
	}
}

func TestCreate_ValidationNeverReachesStore(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("store must not be called")
	svc := newService(store)

	_, err := svc.Create(context.Background(), input(core.Expense, "Food", 0, 1))
	if KindOf(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if Message(err) != "Amount must be a positive number" {
		t.Errorf("Message() = %q", Message(err))
	}
}

func TestCreate_StoreFailureMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain error falls back", errors.New("disk full"), "Failed to create transaction"},
		{"store detail wins", &records.StoreError{Op: "create", Detail: "Sheet is read-only"}, "Sheet is read-only"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.createErr = tt.err
			svc := newService(store)

			_, err := svc.Create(context.Background(), input(core.Expense, "Food", 100, 1))
			if KindOf(err) != KindOperationFailed {
				t.Fatalf("expected operation failure, got %v", err)
			}
			if Message(err) != tt.want {
				t.Errorf("Message() = %q, want %q", Message(err), tt.want)
			}
		})
	}
}

func TestCreate_UnknownCategoryIsOperationFailure(t *testing.T) {
	svc := newService(newFakeStore())
	_, err := svc.Create(context.Background(), input(core.Expense, "Yachts", 100, 1))
	if KindOf(err) != KindOperationFailed {
		t.Fatalf("expected operation failure, got %v", err)
	}
	if Message(err) != `Unknown category "Yachts"` {
		t.Errorf("Message() = %q", Message(err))
	}
}

func TestDelete_NotFoundLeavesSnapshot(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()
	mustCreate(t, svc, input(core.Expense, "Food", 100, 1))

	before, err := svc.Query(ctx, core.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	epoch := svc.Epoch()
	reads := store.reads.Load()

	err = svc.Delete(ctx, "no-such-id")
	if KindOf(err) != KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if svc.Epoch() != epoch {
		t.Error("not found must not invalidate")
	}

	after, err := svc.Query(ctx, core.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if store.reads.Load() != reads {
		t.Error("snapshot should have been served from cache")
	}
	if after.Page.Pagination != before.Page.Pagination {
		t.Errorf("snapshot changed: %+v vs %+v", after.Page.Pagination, before.Page.Pagination)
	}
}

func TestDelete_Failures(t *testing.T) {
	store := newFakeStore()
	store.deleteErr = errors.New("locked")
	svc := newService(store)

	err := svc.Delete(context.Background(), "abc")
	if KindOf(err) != KindOperationFailed || Message(err) != "Failed to delete transaction" {
		t.Errorf("unexpected error: kind %v, message %q", KindOf(err), Message(err))
	}

	if err := svc.Delete(context.Background(), "  "); KindOf(err) != KindValidation {
		t.Errorf("expected validation error for blank id, got %v", err)
	}
}

func TestDelete_InvalidatesAllViews(t *testing.T) {
	svc := newService(newFakeStore())
	ctx := context.Background()
	tx := mustCreate(t, svc, input(core.Expense, "Food", 100, 1))
	mustCreate(t, svc, input(core.Income, "Salary", 900, 2))

	views := []core.Params{
		core.DefaultParams(),
		core.DefaultParams().WithFilter(core.FilterExpense),
		core.DefaultParams().WithSort(core.SortByAmount),
	}
	for _, p := range views {
		if _, err := svc.Query(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	if err := svc.Delete(ctx, tx.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	for _, p := range views {
		v, err := svc.Query(ctx, p)
		if err != nil {
			t.Fatal(err)
		}
		for _, got := range v.Page.Transactions {
			if got.ID == tx.ID {
				t.Errorf("%s still shows deleted transaction", p.Key())
			}
		}
	}
}

// A read that began before a mutation must not repopulate the cache.
func TestQuery_StaleReadIsNotCached(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)
	ctx := context.Background()

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	store.beforeRead = func() {
		once.Do(func() {
			close(started)
			<-release
		})
	}

	done := make(chan View)
	go func() {
		v, err := svc.Query(ctx, core.DefaultParams())
		if err != nil {
			t.Error(err)
		}
		done <- v
	}()

	<-started
	mustCreate(t, svc, input(core.Expense, "Food", 100, 1))
	close(release)
	<-done

	v, err := svc.Query(ctx, core.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if v.Page.Pagination.Count != 1 {
		t.Errorf("stale view served after mutation: %+v", v.Page.Pagination)
	}
}

func TestQuery_CoalescesConcurrentReads(t *testing.T) {
	store := newFakeStore()
	svc := newService(store)

	gate := make(chan struct{})
	store.beforeRead = func() { <-gate }

	const n = 8
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			if _, err := svc.Query(context.Background(), core.DefaultParams()); err != nil {
				t.Error(err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := store.reads.Load(); got > 2 {
		t.Errorf("expected concurrent reads to be coalesced, got %d store reads", got)
	}
}

func TestQuery_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("connection reset")
	svc := newService(store)

	_, err := svc.Query(context.Background(), core.DefaultParams())
	if KindOf(err) != KindOperationFailed || Message(err) != "Failed to load transactions" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBusy(t *testing.T) {
	block := make(chan struct{})
	entered := make(chan struct{})
	svc := newService(&blockingCreate{fakeStore: newFakeStore(), entered: entered, block: block})
	if svc.Busy() {
		t.Fatal("idle service reports busy")
	}

	go svc.Create(context.Background(), input(core.Expense, "Food", 100, 1))
	<-entered
	if !svc.Busy() {
		t.Error("expected busy during create")
	}
	close(block)
	deadline := time.Now().Add(time.Second)
	for svc.Busy() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.Busy() {
		t.Error("expected idle after create")
	}
}

type blockingCreate struct {
	*fakeStore
	entered chan struct{}
	block   chan struct{}
}

func (b *blockingCreate) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	close(b.entered)
	<-b.block
	return b.fakeStore.CreateTransaction(ctx, in)
}
