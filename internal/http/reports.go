package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
)

type logsResponse struct {
	Entries []model.LogEntry `json:"entries"`
	Count   int              `json:"count"`
}

type statsResponse struct {
	TodaysRevenue        int                 `json:"todays_revenue"`
	TodaysRevenueDisplay string              `json:"todays_revenue_display"`
	TodaysSales          int                 `json:"todays_sales"`
	TodaysErrors         int                 `json:"todays_errors"`
	TotalRevenue         int                 `json:"total_revenue"`
	ErrorsByKind         map[string]int      `json:"errors_by_kind"`
	MostPopular          *journal.Popularity `json:"most_popular"`
}

var entryTypes = map[model.EntryType]bool{
	model.EntrySale:    true,
	model.EntryError:   true,
	model.EntryRestock: true,
}

// logsHandler lists journal entries, optionally filtered by type and UTC
// date, and clears the journal on DELETE.
func (a *App) logsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if a.closing.Load() {
			WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
			return
		}
		if err := a.Journal.Clear(r.Context()); err != nil {
			obs.Logger.Warn("journal_clear_failed", zap.Error(err))
			WriteJSONError(w, http.StatusBadGateway, "persistence_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}

	q := r.URL.Query()
	typ := model.EntryType(q.Get("type"))
	if typ != "" && !entryTypes[typ] {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "type must be one of SALE, ERROR, RESTOCK")
		return
	}
	date := q.Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "date must be YYYY-MM-DD")
			return
		}
	}

	var entries []model.LogEntry
	switch {
	case date != "":
		entries = a.Journal.ByDate(date)
	case typ != "":
		entries = a.Journal.ByType(typ)
	default:
		entries = a.Journal.All()
	}
	if date != "" && typ != "" {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Type == typ {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	writeJSON(w, http.StatusOK, logsResponse{Entries: entries, Count: len(entries)})
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	revenue := a.Journal.TodaysRevenue()
	resp := statsResponse{
		TodaysRevenue:        revenue,
		TodaysRevenueDisplay: money.FormatAmount(revenue),
		TodaysSales:          a.Journal.TodaysSalesCount(),
		TodaysErrors:         a.Journal.TodaysErrorCount(),
		TotalRevenue:         a.Journal.SalesTotal(""),
		ErrorsByKind:         map[string]int{},
	}
	for _, k := range []model.ErrorKind{model.InsufficientMoney, model.OutOfStock, model.CannotMakeChange, model.ProductNotFound} {
		resp.ErrorsByKind[string(k)] = a.Journal.ErrorCount(k)
	}
	if p, ok := a.Journal.MostPopularProduct(); ok {
		resp.MostPopular = &p
	}
	writeJSON(w, http.StatusOK, resp)
}
