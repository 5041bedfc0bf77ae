package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
)

// computeSessionTotals rolls a session's transactions and same-day
// expenses into the five headline figures.
func (s *Service) computeSessionTotals(ctx context.Context, dlog *domain.DailyLog) (domain.SessionTotals, error) {
	txs, err := s.repo.ListTransactionsByDailyLog(ctx, dlog.ID)
	if err != nil {
		return domain.SessionTotals{}, err
	}

	var totals domain.SessionTotals
	for _, tx := range txs {
		totals.TotalRevenue += tx.TotalAmount
		totals.TotalCOGS += tx.TotalCostPrice
	}
	totals.GrossProfit = totals.TotalRevenue - totals.TotalCOGS

	from, to := dayWindow(dlog.CreatedAt)
	expenses, err := s.repo.ListExpensesByOutletBetween(ctx, dlog.OutletID, from, to)
	if err != nil {
		return domain.SessionTotals{}, err
	}
	for _, e := range expenses {
		totals.TotalExpense += e.Amount
	}
	totals.NetProfit = totals.GrossProfit - totals.TotalExpense
	return totals, nil
}

// buildProductReport reconciles every product that appears anywhere in
// the session: opening snapshot, sales, or closing count. Sold counts
// physical pieces (cart quantity times bundle size); revenue counts
// cart quantity times the recorded line price.
func (s *Service) buildProductReport(ctx context.Context, dlog domain.DailyLog) ([]domain.ProductReportRow, error) {
	txs, err := s.repo.ListTransactionsByDailyLog(ctx, dlog.ID)
	if err != nil {
		return nil, err
	}

	initial := make(map[string]int)
	for _, snap := range dlog.StartOfDay.ProductStock {
		initial[snap.ProductID] = snap.Quantity
	}

	sold := make(map[string]int)
	revenue := make(map[string]int64)
	for _, tx := range txs {
		for _, item := range tx.Items {
			bundle := 1
			if product, err := s.repo.GetProductByID(ctx, item.ProductID); err == nil && product.BundleQuantity > 1 {
				bundle = product.BundleQuantity
			}
			sold[item.ProductID] += item.Quantity * bundle
			revenue[item.ProductID] += int64(item.Quantity) * item.Price
		}
	}

	physical := make(map[string]int)
	if dlog.EndOfDay != nil {
		for _, count := range dlog.EndOfDay.RemainingProductStock {
			physical[count.ProductID] = count.Quantity
		}
	}

	ids := make([]string, 0, len(initial))
	for id := range initial {
		ids = append(ids, id)
	}
	for id := range sold {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	for id := range physical {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	rows := make([]domain.ProductReportRow, 0, len(ids))
	for _, id := range ids {
		name := "Produk terhapus"
		if product, err := s.repo.GetProductByID(ctx, id); err == nil {
			name = product.Name
		}

		row := domain.ProductReportRow{
			ProductID:   id,
			Name:        name,
			Initial:     initial[id],
			Sold:        sold[id],
			Theoretical: initial[id] - sold[id],
			Revenue:     revenue[id],
		}
		if dlog.EndOfDay != nil {
			counted := physical[id]
			row.Physical = &counted
			diff := counted - row.Theoretical
			row.Discrepancy = &diff
		}
		rows = append(rows, row)
	}
	slices.SortFunc(rows, func(a, b domain.ProductReportRow) int { return strings.Compare(a.Name, b.Name) })
	return rows, nil
}

// buildAssetReport groups sessions' asset movements by name, summing
// what was brought out against what came back.
func buildAssetReport(logs []domain.DailyLog) []domain.AssetReportRow {
	brought := make(map[string]int)
	returned := make(map[string]int)
	for _, dlog := range logs {
		for _, snap := range dlog.StartOfDay.AssetStock {
			brought[snap.Name] += snap.Quantity
		}
		if dlog.EndOfDay == nil {
			continue
		}
		for _, count := range dlog.EndOfDay.RemainingAssetStock {
			returned[count.Name] += count.Quantity
		}
	}

	names := make([]string, 0, len(brought))
	for name := range brought {
		names = append(names, name)
	}
	for name := range returned {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	rows := make([]domain.AssetReportRow, 0, len(names))
	for _, name := range names {
		rows = append(rows, domain.AssetReportRow{Name: name, Brought: brought[name], Returned: returned[name]})
	}
	return rows
}

func summarize(logs []domain.DailyLog) domain.SummaryReport {
	report := domain.SummaryReport{AssetReport: buildAssetReport(logs)}
	for _, dlog := range logs {
		if dlog.Calculated != nil {
			report.TotalRevenue += dlog.Calculated.TotalRevenue
			report.TotalCOGS += dlog.Calculated.TotalCOGS
			report.GrossProfit += dlog.Calculated.GrossProfit
			report.TotalExpense += dlog.Calculated.TotalExpense
			report.NetProfit += dlog.Calculated.NetProfit
		}
		report.TransactionCount += len(dlog.TransactionIDs)
		report.SessionCount++
	}
	return report
}

func (s *Service) reportOutletIDs(ctx context.Context, actor domain.Actor, outletID string) ([]string, error) {
	if outletID != "" && outletID != "all" {
		if _, err := s.ownedOutlet(ctx, actor, outletID); err != nil {
			return nil, err
		}
		return []string{outletID}, nil
	}
	return s.ownerOutletIDs(ctx, actor.ID)
}

func (s *Service) cachedReport(ctx context.Context, key string, out any) bool {
	raw, hit, err := s.reportCache.Get(ctx, key)
	if err != nil {
		log.Printf("[service] WARN: report cache get %s: %v", key, err)
		return false
	}
	if !hit {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		log.Printf("[service] WARN: stale report cache entry %s: %v", key, err)
		return false
	}
	return true
}

func (s *Service) storeReport(ctx context.Context, key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.reportCache.Set(ctx, key, raw, s.reportTTL); err != nil {
		log.Printf("[service] WARN: report cache set %s: %v", key, err)
	}
}

// MonthlyReport aggregates closed sessions over an inclusive month
// range of one year.
func (s *Service) MonthlyReport(ctx context.Context, year int, startMonth int, endMonth int, outletID string) (*domain.SummaryReport, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if year < 2000 || year > 2200 {
		return nil, fmt.Errorf("%w: invalid year", store.ErrValidation)
	}
	if startMonth < 1 || startMonth > 12 || endMonth < 1 || endMonth > 12 || startMonth > endMonth {
		return nil, fmt.Errorf("%w: invalid month range", store.ErrValidation)
	}
	outletIDs, err := s.reportOutletIDs(ctx, actor, outletID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("report:monthly:%s:%s:%d:%d:%d", actor.ID, outletID, year, startMonth, endMonth)
	var cached domain.SummaryReport
	if s.cachedReport(ctx, key, &cached) {
		return &cached, nil
	}

	from := time.Date(year, time.Month(startMonth), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.Month(endMonth)+1, 1, 0, 0, 0, 0, time.UTC)
	logs, err := s.repo.ListDailyLogsClosedBetween(ctx, outletIDs, from, to)
	if err != nil {
		return nil, err
	}

	report := summarize(logs)
	s.storeReport(ctx, key, report)
	return &report, nil
}

// YearlyReport aggregates closed sessions of one calendar year, broken
// down per month.
func (s *Service) YearlyReport(ctx context.Context, year int, outletID string) (*domain.YearlyReport, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if year < 2000 || year > 2200 {
		return nil, fmt.Errorf("%w: invalid year", store.ErrValidation)
	}
	outletIDs, err := s.reportOutletIDs(ctx, actor, outletID)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("report:yearly:%s:%s:%d", actor.ID, outletID, year)
	var cached domain.YearlyReport
	if s.cachedReport(ctx, key, &cached) {
		return &cached, nil
	}

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(1, 0, 0)
	logs, err := s.repo.ListDailyLogsClosedBetween(ctx, outletIDs, from, to)
	if err != nil {
		return nil, err
	}

	byMonth := make(map[int][]domain.DailyLog)
	for _, dlog := range logs {
		m := int(dlog.CreatedAt.UTC().Month())
		byMonth[m] = append(byMonth[m], dlog)
	}

	report := domain.YearlyReport{
		Year:        year,
		Months:      make([]domain.MonthlySummary, 0, len(byMonth)),
		Total:       summarize(logs),
		AssetReport: buildAssetReport(logs),
	}
	for m := 1; m <= 12; m++ {
		monthLogs, ok := byMonth[m]
		if !ok {
			continue
		}
		report.Months = append(report.Months, domain.MonthlySummary{Month: m, SummaryReport: summarize(monthLogs)})
	}

	s.storeReport(ctx, key, report)
	return &report, nil
}
