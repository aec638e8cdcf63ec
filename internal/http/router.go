package httpapi

import (
	"expvar"
	"net/http"
)

// NewRouter registers HTTP routes and returns the handler with middleware.
func NewRouter(app *App) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/money", app.insertMoneyHandler)
	mux.HandleFunc("/selection", app.selectProductHandler)
	mux.HandleFunc("/purchase", app.purchaseHandler)
	mux.HandleFunc("/refund", app.refundHandler)
	mux.HandleFunc("/products", app.listProductsHandler)
	mux.HandleFunc("/coins", app.coinsHandler)
	mux.HandleFunc("/restock", app.restockHandler)
	mux.HandleFunc("/session", app.sessionHandler)
	mux.HandleFunc("/logs", app.logsHandler)
	mux.HandleFunc("/stats", app.statsHandler)
	mux.HandleFunc("/healthz", app.healthHandler)
	mux.HandleFunc("/debug/metrics", app.metricsHandler)
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/openapi.yaml", app.openapiHandler)
	mux.HandleFunc("/docs", app.docsHandler)
	return WithRequestID(WithLogging(mux))
}
