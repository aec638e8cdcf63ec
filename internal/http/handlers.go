package httpapi

import (
	"encoding/json"
	"expvar"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/fairyhunter13/vending-machine-simulator/internal/config"
	httpopenapi "github.com/fairyhunter13/vending-machine-simulator/internal/http/openapi"
	"github.com/fairyhunter13/vending-machine-simulator/internal/journal"
	"github.com/fairyhunter13/vending-machine-simulator/internal/machine"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
	"github.com/fairyhunter13/vending-machine-simulator/internal/money"
	"github.com/fairyhunter13/vending-machine-simulator/internal/obs"
	"github.com/fairyhunter13/vending-machine-simulator/internal/queue"
)

var (
	purchasesTotal = expvar.NewInt("vending_purchases_total")
	refundsTotal   = expvar.NewInt("vending_refunds_total")
	machineErrors  = expvar.NewMap("vending_machine_errors")
)

type App struct {
	Cfg     config.Config
	Machine *machine.Machine
	Journal *journal.Journal
	Manager *queue.Manager
	closing atomic.Bool
	started time.Time
}

func NewApp(cfg config.Config, m *machine.Machine, j *journal.Journal, mgr *queue.Manager) *App {
	return &App{Cfg: cfg, Machine: m, Journal: j, Manager: mgr, started: time.Now()}
}

// StartShutdown rejects further mutating requests and closes the dispatcher
// intake.
func (a *App) StartShutdown() {
	a.closing.Store(true)
	a.Manager.CloseIntake()
}

type moneyRequest struct {
	Amount *int `json:"amount"`
}

type selectionRequest struct {
	Code string `json:"code"`
}

type restockRequest struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

type coinsRequest struct {
	Denomination money.Denomination `json:"denomination"`
	Quantity     int                `json:"quantity"`
}

type creditResponse struct {
	Credit        int    `json:"credit"`
	CreditDisplay string `json:"credit_display"`
}

type purchaseResponse struct {
	machine.PurchaseResult
	ChangeDisplay string `json:"change_display"`
}

type refundResponse struct {
	machine.RefundResult
	RefundedDisplay string `json:"refunded_display"`
}

type restockResponse struct {
	Code          string `json:"code"`
	QuantityAdded int    `json:"quantity_added"`
	Stock         int    `json:"stock"`
}

type coinCount struct {
	Denomination money.Denomination `json:"denomination"`
	Label        string             `json:"label"`
	Count        int                `json:"count"`
}

type coinsResponse struct {
	Coins        []coinCount `json:"coins"`
	Total        int         `json:"total"`
	TotalDisplay string      `json:"total_display"`
}

type sessionResponse struct {
	SessionID     string         `json:"session_id"`
	Credit        int            `json:"credit"`
	CreditDisplay string         `json:"credit_display"`
	Selection     *model.Product `json:"selection"`
}

// mutating runs the checks shared by every state-changing endpoint. It
// writes the error response and returns false when the request must stop.
func (a *App) mutating(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return false
	}
	if a.closing.Load() || a.Manager.IsShuttingDown() {
		WriteJSONError(w, http.StatusServiceUnavailable, "shutting_down", "")
		return false
	}
	return true
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
// An empty body is accepted only when required is false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, required bool) bool {
	if r.ContentLength == 0 && !required {
		return true
	}
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		WriteJSONError(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "expected application/json")
		return false
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return false
	}
	return true
}

func (a *App) insertMoneyHandler(w http.ResponseWriter, r *http.Request) {
	if !a.mutating(w, r) {
		return
	}
	var req moneyRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Amount == nil {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "amount is required")
		return
	}
	if err := a.Machine.InsertMoney(*req.Amount); err != nil {
		writeMachineError(w, err)
		return
	}
	credit := a.Machine.TotalInserted()
	writeJSON(w, http.StatusOK, creditResponse{Credit: credit, CreditDisplay: money.FormatAmount(credit)})
}

func (a *App) selectProductHandler(w http.ResponseWriter, r *http.Request) {
	if !a.mutating(w, r) {
		return
	}
	var req selectionRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Code == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "code is required")
		return
	}
	p, err := a.Machine.SelectProduct(req.Code)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *App) purchaseHandler(w http.ResponseWriter, r *http.Request) {
	if !a.mutating(w, r) {
		return
	}
	var req struct{}
	if !decodeJSON(w, r, &req, false) {
		return
	}
	res, err := a.Machine.CompletePurchase()
	if err != nil {
		writeMachineError(w, err)
		return
	}
	purchasesTotal.Add(1)
	obs.Logger.Info("purchase_completed",
		zap.String("request_id", RequestIDFromContext(r.Context())),
		zap.String("product", res.ProductDispensed),
		zap.Int("change", res.Change),
	)
	writeJSON(w, http.StatusOK, purchaseResponse{PurchaseResult: res, ChangeDisplay: money.FormatAmount(res.Change)})
}

func (a *App) refundHandler(w http.ResponseWriter, r *http.Request) {
	if !a.mutating(w, r) {
		return
	}
	var req struct{}
	if !decodeJSON(w, r, &req, false) {
		return
	}
	res, err := a.Machine.RefundMoney()
	if err != nil {
		writeMachineError(w, err)
		return
	}
	refundsTotal.Add(1)
	writeJSON(w, http.StatusOK, refundResponse{RefundResult: res, RefundedDisplay: money.FormatAmount(res.RefundedAmount)})
}

func (a *App) restockHandler(w http.ResponseWriter, r *http.Request) {
	if !a.mutating(w, r) {
		return
	}
	var req restockRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.Code == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation_error", "code is required")
		return
	}
	stock, err := a.Machine.Restock(req.Code, req.Quantity)
	if err != nil {
		writeMachineError(w, err)
		return
	}
	added := req.Quantity
	if added < 0 {
		added = 0
	}
	writeJSON(w, http.StatusOK, restockResponse{Code: req.Code, QuantityAdded: added, Stock: stock})
}

func (a *App) coinsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, a.coinSnapshot())
	case http.MethodPost:
		if !a.mutating(w, r) {
			return
		}
		var req coinsRequest
		if !decodeJSON(w, r, &req, true) {
			return
		}
		if !money.IsLegal(req.Denomination) {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "denomination is not a legal coin")
			return
		}
		if req.Quantity <= 0 {
			WriteJSONError(w, http.StatusBadRequest, "validation_error", "quantity must be > 0")
			return
		}
		a.Machine.LoadCoins(req.Denomination, req.Quantity)
		writeJSON(w, http.StatusOK, a.coinSnapshot())
	default:
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
	}
}

func (a *App) coinSnapshot() coinsResponse {
	stock := a.Machine.CoinStock()
	all := stock.AllCoins()
	out := coinsResponse{Coins: []coinCount{}}
	for _, d := range money.Denominations() {
		c, _ := money.Lookup(d)
		out.Coins = append(out.Coins, coinCount{Denomination: d, Label: c.Label, Count: all[d]})
	}
	out.Total = stock.Total()
	out.TotalDisplay = money.FormatAmount(out.Total)
	return out
}

func (a *App) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	writeJSON(w, http.StatusOK, a.Machine.Products())
}

func (a *App) sessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "")
		return
	}
	credit := a.Machine.TotalInserted()
	resp := sessionResponse{
		SessionID:     a.Machine.SessionID(),
		Credit:        credit,
		CreditDisplay: money.FormatAmount(credit),
	}
	if p, ok := a.Machine.Selection(); ok {
		resp.Selection = &p
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	enq, proc, backlog, depth := a.Manager.QueueMetrics()
	m := map[string]any{
		"entries_enqueued":  enq,
		"entries_processed": proc,
		"backlog_size":      backlog,
		"queue_depth":       depth,
		"worker_count":      a.Manager.WorkerCount(),
		"journal_entries":   len(a.Journal.All()),
		"credit":            a.Machine.TotalInserted(),
		"coin_total":        a.Machine.CoinStock().Total(),
		"uptime_sec":        time.Since(a.started).Seconds(),
	}
	writeJSON(w, http.StatusOK, m)
}

func (a *App) openapiHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(httpopenapi.YAML)
}

func (a *App) docsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>Vending Machine API</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui'
      });
    </script>
  </body>
</html>`
	_, _ = w.Write([]byte(html))
}
