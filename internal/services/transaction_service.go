package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	applog "bilancio/internal/log"
	"bilancio/internal/records"
	"bilancio/internal/report"
)

const (
	createFailedMessage = "Failed to create transaction"
	deleteFailedMessage = "Failed to delete transaction"
	queryFailedMessage  = "Failed to load transactions"

	defaultViewTTL = 5 * time.Minute
)

// View is everything derived from one set of query params: the page, the
// chart series over the whole filtered set and the aggregates.
type View struct {
	// Params echo the request with Page clamped to the page returned.
	Params     core.Params
	Page       core.TransactionPage
	Series     report.TimeSeries
	Summary    report.Summary
	Categories []core.Category
}

// Options configure a TransactionService. Zero values fall back to defaults.
type Options struct {
	PageSize    int
	LabelLayout string
	Cache       cache.Cache[View]
	Logger      *applog.Logger
}

// TransactionService answers transaction views from snapshots cached by
// canonical params key and coordinates mutations against the store.
// Every successful mutation drops all cached views, and a read that
// started before that mutation never puts its result back in the cache.
type TransactionService struct {
	store    records.Store
	cache    cache.Cache[View]
	pageSize int
	layout   string
	logger   *applog.Logger
	events   *applog.StructuredLogger

	group singleflight.Group

	// mu orders cache writes against invalidations.
	mu    sync.Mutex
	epoch uint64

	inflight atomic.Int64
}

func NewTransactionService(store records.Store, opts Options) *TransactionService {
	if opts.PageSize <= 0 {
		opts.PageSize = report.DefaultPageSize
	}
	if opts.LabelLayout == "" {
		opts.LabelLayout = report.DefaultLabelLayout
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewLRUCache[View](100, defaultViewTTL)
	}
	if opts.Logger == nil {
		opts.Logger = applog.FromContext(context.Background())
	}
	logger := opts.Logger.WithComponent(applog.ComponentTransactions)
	return &TransactionService{
		store:    store,
		cache:    opts.Cache,
		pageSize: opts.PageSize,
		layout:   opts.LabelLayout,
		logger:   logger,
		events:   applog.NewStructuredLogger(logger),
	}
}

// PageSize is the number of transactions per page.
func (s *TransactionService) PageSize() int { return s.pageSize }

// Busy reports whether a mutation is in flight.
func (s *TransactionService) Busy() bool { return s.inflight.Load() > 0 }

// CacheStats reports the view cache counters.
func (s *TransactionService) CacheStats() cache.Stats { return s.cache.Stats() }

// Epoch counts the invalidations so far.
func (s *TransactionService) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Query returns the view for p, from cache when possible. Concurrent
// identical queries within the same epoch share one store round trip.
func (s *TransactionService) Query(ctx context.Context, p core.Params) (View, error) {
	if err := p.Validate(); err != nil {
		return View{}, ValidationError("query", err)
	}

	key := p.Key()
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	epoch := s.Epoch()
	flightKey := key + "@" + strconv.FormatUint(epoch, 10)
	res, err, _ := s.group.Do(flightKey, func() (any, error) {
		// Shared by every waiter, so one caller going away must not fail the rest.
		v, err := s.load(context.WithoutCancel(ctx), p)
		if err != nil {
			return View{}, err
		}
		s.remember(key, epoch, v)
		return v, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Transaction query failed",
			applog.FieldOperation, applog.OpQuery,
			applog.FieldCacheKey, key,
			applog.FieldError, err.Error())
		return View{}, failure("query", queryFailedMessage, err)
	}
	return res.(View), nil
}

// remember caches v unless an invalidation happened since epoch was read.
func (s *TransactionService) remember(key string, epoch uint64, v View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		s.logger.Debug("Discarding view loaded before invalidation",
			applog.FieldCacheKey, key,
			applog.FieldEpoch, epoch)
		return
	}
	s.cache.Set(key, v)
}

// load derives every part of the view from a single read of the
// transactions, so the page and the charts always agree.
func (s *TransactionService) load(ctx context.Context, p core.Params) (View, error) {
	var (
		all  []core.Transaction
		cats []core.Category
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		all, err = s.store.Transactions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return View{}, err
	}

	selected := report.Select(all, p)
	page := report.PageOf(selected, p.Page, s.pageSize)
	if cats == nil {
		cats = []core.Category{}
	}
	return View{
		Params:     p.WithPage(page.Pagination.Page),
		Page:       page,
		Series:     report.Project(selected, s.layout),
		Summary:    report.Summarize(selected),
		Categories: cats,
	}, nil
}

// Categories lists the categories straight from the store.
func (s *TransactionService) Categories(ctx context.Context) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, failure("list categories", "Failed to load categories", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

// Create validates in, stores it and invalidates every cached view.
func (s *TransactionService) Create(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	if err := in.Validate(); err != nil {
		return core.Transaction{}, ValidationError("create transaction", err)
	}

	tx, err := s.store.CreateTransaction(ctx, in)
	if err != nil {
		s.events.LogFailure(ctx, "Failed to create transaction", err, applog.OpCreate, nil)
		return core.Transaction{}, failure("create transaction", createFailedMessage, err)
	}

	s.invalidate(ctx)
	s.events.LogTransactionCreated(ctx, tx.ID, string(tx.Type), tx.CategoryName, tx.Amount.Cents, tx.Date.String())
	return tx, nil
}

// Delete removes the transaction with id. An unknown id is reported as
// KindNotFound and leaves every cached view in place.
func (s *TransactionService) Delete(ctx context.Context, id string) error {
	s.inflight.Add(1)
	defer s.inflight.Add(-1)

	id = strings.TrimSpace(id)
	if id == "" {
		return &OperationError{Kind: KindValidation, Op: "delete transaction", Message: "Transaction id is required"}
	}

	err := s.store.DeleteTransaction(ctx, id)
	switch {
	case errors.Is(err, core.ErrNotFound):
		return &OperationError{Kind: KindNotFound, Op: "delete transaction", Message: "Transaction not found", Err: err}
	case err != nil:
		s.events.LogFailure(ctx, "Failed to delete transaction", err, applog.OpDelete,
			applog.NewFields().WithTransaction(id, "", "", 0, ""))
		return failure("delete transaction", deleteFailedMessage, err)
	}

	s.invalidate(ctx)
	s.events.LogTransactionDeleted(ctx, id)
	return nil
}

func (s *TransactionService) invalidate(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	n := s.cache.DeletePrefix(core.TransactionsKeyPrefix)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Transaction views invalidated",
		applog.FieldOperation, applog.OpInvalidate,
		applog.FieldEpoch, epoch,
		"dropped", n)
}
