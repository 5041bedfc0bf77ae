package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/notify"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

// snapshotProducts freezes the outlet's current product stock together
// with the prices in force at open time.
func (s *Service) snapshotProducts(ctx context.Context, outletID string) ([]domain.ProductSnapshot, error) {
	rows, err := s.repo.ListInventoryByOutlet(ctx, outletID)
	if err != nil {
		return nil, err
	}
	snapshot := make([]domain.ProductSnapshot, 0, len(rows))
	for _, inv := range rows {
		product, err := s.repo.GetProductByID(ctx, inv.ProductID)
		if err != nil {
			log.Printf("[service] WARN: inventory row references missing product %s, skipping snapshot entry", inv.ProductID)
			continue
		}
		snapshot = append(snapshot, domain.ProductSnapshot{
			ProductID:    inv.ProductID,
			Quantity:     inv.Stock,
			CostPrice:    product.CostPrice,
			SellingPrice: product.SellingPrice,
		})
	}
	return snapshot, nil
}

// StartSession opens a new daily session for an outlet. Owner only; at
// most one session may be OPEN per outlet, and a given calendar day can
// only be worked once.
func (s *Service) StartSession(ctx context.Context, req domain.StartSessionRequest) (*domain.DailyLog, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	outlet, err := s.ownedOutlet(ctx, actor, req.OutletID)
	if err != nil {
		return nil, err
	}
	if req.InitialCash < 0 {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	open, err := s.repo.GetOpenDailyLog(ctx, req.OutletID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	if open != nil {
		return nil, fmt.Errorf("%w: the session from %s is still open, close it first", store.ErrConflict, open.CreatedAt.UTC().Format("2006-01-02"))
	}

	from, to := dayWindow(time.Now().UTC())
	todays, err := s.repo.ListDailyLogsClosedBetween(ctx, []string{req.OutletID}, from, to)
	if err != nil {
		return nil, err
	}
	if len(todays) > 0 {
		return nil, fmt.Errorf("%w: today's session has already been closed", store.ErrConflict)
	}

	snapshot, err := s.snapshotProducts(ctx, req.OutletID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	dlog := domain.DailyLog{
		ID:       xid.New("dlog"),
		OutletID: req.OutletID,
		UserID:   actor.ID,
		Status:   domain.SessionStatusOpen,
		StartOfDay: domain.StartOfDay{
			InitialCash:  req.InitialCash,
			AssetStock:   req.AssetStock,
			ProductStock: snapshot,
		},
		TransactionIDs: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := s.repo.CreateDailyLog(ctx, dlog)
	if err != nil {
		return nil, err
	}

	s.notifyOutletStaff(ctx, outlet, notify.Message{
		Title: fmt.Sprintf("Sesi dibuka di %s", outlet.Name),
		Body:  fmt.Sprintf("Kas awal Rp%d, dibuka oleh %s", req.InitialCash, actor.Name),
		URL:   "/stok-awal",
	})

	return created, nil
}

// TodaySession returns the outlet's open session, or nil when none is
// running.
func (s *Service) TodaySession(ctx context.Context, outletID string) (*domain.DailyLog, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleOutlet(ctx, actor, outletID); err != nil {
		return nil, err
	}
	open, err := s.repo.GetOpenDailyLog(ctx, outletID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return open, nil
}

func (s *Service) ListOpenSessions(ctx context.Context) ([]domain.DailyLog, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	outletIDs, err := s.ownerOutletIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListOpenDailyLogsByOutlets(ctx, outletIDs)
}

// UpdateSession replaces the opening snapshot of a still-open session.
// Owner only.
func (s *Service) UpdateSession(ctx context.Context, id string, req domain.UpdateSessionRequest) (*domain.DailyLog, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	dlog, err := s.repo.GetDailyLogByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, dlog.OutletID); err != nil {
		return nil, err
	}
	if dlog.Status != domain.SessionStatusOpen {
		return nil, fmt.Errorf("%w: only open sessions can be updated", store.ErrValidation)
	}
	if req.InitialCash < 0 {
		return nil, fmt.Errorf("%w: initial cash cannot be negative", store.ErrValidation)
	}

	dlog.StartOfDay.InitialCash = req.InitialCash
	dlog.StartOfDay.AssetStock = req.AssetStock
	if req.ProductStock != nil {
		dlog.StartOfDay.ProductStock = req.ProductStock
	}
	dlog.UpdatedAt = time.Now().UTC()
	return s.repo.UpdateDailyLog(ctx, *dlog)
}

// ResetSession deletes a session outright. An administrative escape
// hatch: recorded stock movements are not rolled back.
func (s *Service) ResetSession(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	dlog, err := s.repo.GetDailyLogByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.ownedOutlet(ctx, actor, dlog.OutletID); err != nil {
		return err
	}
	return s.repo.DeleteDailyLog(ctx, id)
}

// CloseSession ends the outlet's open session, records the closing
// counts and persists the session totals.
func (s *Service) CloseSession(ctx context.Context, req domain.CloseSessionRequest) (*domain.DailyLog, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	outlet, err := s.accessibleOutlet(ctx, actor, req.OutletID)
	if err != nil {
		return nil, err
	}

	dlog, err := s.repo.GetOpenDailyLog(ctx, req.OutletID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active session for this outlet", store.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if req.FinalCash < 0 {
		return nil, fmt.Errorf("%w: final cash cannot be negative", store.ErrValidation)
	}

	totals, err := s.computeSessionTotals(ctx, dlog)
	if err != nil {
		return nil, err
	}

	dlog.EndOfDay = &domain.EndOfDay{
		FinalCash:             req.FinalCash,
		RemainingAssetStock:   req.RemainingAssetStock,
		RemainingProductStock: req.RemainingProductStock,
	}
	dlog.Calculated = &totals
	dlog.Status = domain.SessionStatusClosed
	dlog.UpdatedAt = time.Now().UTC()

	closed, err := s.repo.UpdateDailyLog(ctx, *dlog)
	if err != nil {
		return nil, err
	}

	s.notifyOutletStaff(ctx, outlet, notify.Message{
		Title: fmt.Sprintf("Sesi ditutup di %s", outlet.Name),
		Body:  fmt.Sprintf("Omzet Rp%d, laba bersih Rp%d", totals.TotalRevenue, totals.NetProfit),
		URL:   "/laporan",
	})

	return closed, nil
}

// ListSessions returns the owner's session history, newest first, each
// enriched with its expenses, totals and product reconciliation. Totals
// of still-open sessions are computed on the fly.
func (s *Service) ListSessions(ctx context.Context, outletID string) ([]domain.SessionView, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	var outletIDs []string
	if outletID != "" && outletID != "all" {
		if _, err := s.ownedOutlet(ctx, actor, outletID); err != nil {
			return nil, err
		}
		outletIDs = []string{outletID}
	} else {
		outletIDs, err = s.ownerOutletIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	logs, err := s.repo.ListDailyLogsByOutlets(ctx, outletIDs)
	if err != nil {
		return nil, err
	}

	views := make([]domain.SessionView, 0, len(logs))
	for _, dlog := range logs {
		view, err := s.buildSessionView(ctx, dlog)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *Service) buildSessionView(ctx context.Context, dlog domain.DailyLog) (domain.SessionView, error) {
	from, to := dayWindow(dlog.CreatedAt)
	expenses, err := s.repo.ListExpensesByOutletBetween(ctx, dlog.OutletID, from, to)
	if err != nil {
		return domain.SessionView{}, err
	}

	if dlog.Status == domain.SessionStatusOpen || dlog.Calculated == nil {
		totals, err := s.computeSessionTotals(ctx, &dlog)
		if err != nil {
			return domain.SessionView{}, err
		}
		dlog.Calculated = &totals
	}

	report, err := s.buildProductReport(ctx, dlog)
	if err != nil {
		return domain.SessionView{}, err
	}

	return domain.SessionView{
		DailyLog:      dlog,
		Expenses:      expenses,
		ProductReport: report,
	}, nil
}

// dayWindow is the UTC calendar day containing t, as a half-open range.
func dayWindow(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	from := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return from, from.Add(24 * time.Hour)
}
