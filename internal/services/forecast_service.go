package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cashflow/internal/cache"
	"cashflow/internal/core"
	"cashflow/internal/notify"
	"cashflow/internal/store"
)

// ForecastConfig selects engine behavior for every view the service computes.
type ForecastConfig struct {
	SeriesMode     SeriesMode
	PaydayFallback bool
	CacheSize      int
	CacheTTL       time.Duration
}

// ForecastService computes dashboard, budget and calendar views and keeps
// them cached until a change event touches their tables.
type ForecastService struct {
	loader     *SnapshotLoader
	cfg        ForecastConfig
	dashboards *cache.LRUCache[core.Dashboard]
	budgets    *cache.LRUCache[core.BudgetReport]
	calendars  *cache.LRUCache[[]core.DayBalance]
	unsub      []func()
}

func NewForecastService(s store.Store, cfg ForecastConfig) *ForecastService {
	if cfg.SeriesMode == "" {
		cfg.SeriesMode = SeriesIncludeAll
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ForecastService{
		loader:     NewSnapshotLoader(s),
		cfg:        cfg,
		dashboards: cache.NewLRUCache[core.Dashboard](cfg.CacheSize, cfg.CacheTTL),
		budgets:    cache.NewLRUCache[core.BudgetReport](cfg.CacheSize, cfg.CacheTTL),
		calendars:  cache.NewLRUCache[[]core.DayBalance](cfg.CacheSize, cfg.CacheTTL),
	}
}

// Caches exposes the view caches so a cache.Manager can sweep them.
func (s *ForecastService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.dashboards, s.budgets, s.calendars}
}

// Watch subscribes the service to change events of every table.
func (s *ForecastService) Watch(hub *notify.Hub) {
	for _, table := range notify.Tables {
		s.unsub = append(s.unsub, hub.Subscribe(table, s.Invalidate))
	}
}

// Invalidate drops every cached view depending on the event's table.
func (s *ForecastService) Invalidate(e notify.Event) {
	dep := cache.Dep{Table: e.Table, UserID: e.UserID}
	n := s.dashboards.Invalidate(dep) + s.budgets.Invalidate(dep) + s.calendars.Invalidate(dep)
	if n > 0 {
		slog.Debug("Invalidated cached views", "table", e.Table, "user_id", e.UserID, "count", n)
	}
}

func (s *ForecastService) Close() {
	for _, u := range s.unsub {
		u()
	}
	s.unsub = nil
}

// Dashboard returns the forecast and month summaries as of today.
func (s *ForecastService) Dashboard(ctx context.Context, userID string, today core.Date) (core.Dashboard, error) {
	key := fmt.Sprintf("dashboard:%s:%s:%s:%t", userID, today, s.cfg.SeriesMode, s.cfg.PaydayFallback)
	if d, ok := s.dashboards.Get(key); ok {
		return d, nil
	}

	snap, err := s.loader.Load(ctx, userID, store.TransactionFilter{})
	if err != nil {
		return core.Dashboard{}, err
	}
	d := BuildDashboard(snap, today, ProjectionOptions{
		SeriesMode:     s.cfg.SeriesMode,
		PaydayFallback: s.cfg.PaydayFallback,
		Settings:       snap.Settings,
	})
	s.dashboards.Set(key, d, deps(userID, notify.TableTransactions, notify.TableSettings)...)
	return d, nil
}

// BuildDashboard runs the projector and the month summaries over snap.
func BuildDashboard(snap Snapshot, today core.Date, opts ProjectionOptions) core.Dashboard {
	return core.Dashboard{
		Forecast:         Project(snap.Transactions, today, opts),
		IncomeMTD:        IncomeMonthToDate(snap.Transactions, today),
		OutstandingBills: OutstandingBills(snap.Transactions),
		UnreviewedCount:  len(ReviewInbox(snap.Transactions)),
	}
}

// Budget returns the budget rollup for month m.
func (s *ForecastService) Budget(ctx context.Context, userID string, m core.Month) (core.BudgetReport, error) {
	if err := m.Validate(); err != nil {
		return core.BudgetReport{}, err
	}
	key := fmt.Sprintf("budget:%s:%s", userID, m)
	if r, ok := s.budgets.Get(key); ok {
		return r, nil
	}
	snap, err := s.loader.Load(ctx, userID, store.MonthFilter(userID, m))
	if err != nil {
		return core.BudgetReport{}, err
	}
	r := AggregateBudget(snap.Categories, snap.Transactions, m)
	s.budgets.Set(key, r, deps(userID, notify.TableTransactions, notify.TableCategories)...)
	return r, nil
}

// Calendar returns the running balance for every day of month m.
func (s *ForecastService) Calendar(ctx context.Context, userID string, m core.Month) ([]core.DayBalance, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("calendar:%s:%s", userID, m)
	if c, ok := s.calendars.Get(key); ok {
		return c, nil
	}
	end := m.End()
	snap, err := s.loader.Load(ctx, userID, store.TransactionFilter{To: &end})
	if err != nil {
		return nil, err
	}
	days := CalendarBalances(snap.Transactions, m)
	s.calendars.Set(key, days, deps(userID, notify.TableTransactions)...)
	return days, nil
}

func deps(userID string, tables ...string) []cache.Dep {
	out := make([]cache.Dep, len(tables))
	for i, t := range tables {
		out[i] = cache.Dep{Table: t, UserID: userID}
	}
	return out
}
