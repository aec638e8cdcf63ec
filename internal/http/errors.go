// Package httpapi exposes the vending machine over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/vending-machine-simulator/internal/machine"
	"github.com/fairyhunter13/vending-machine-simulator/internal/model"
)

// jsonError represents a JSON error payload.
type jsonError struct {
	Error   string         `json:"error"`
	Details string         `json:"details,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

// WriteJSONError writes a JSON error payload with the given status code.
func WriteJSONError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, jsonError{Error: message, Details: details})
}

var kindStatus = map[model.ErrorKind]int{
	model.ProductNotFound:   http.StatusNotFound,
	model.InsufficientMoney: http.StatusPaymentRequired,
	model.OutOfStock:        http.StatusConflict,
	model.CannotMakeChange:  http.StatusConflict,
}

// writeMachineError renders a rejected machine operation. The error kind is
// the payload's error code and its context is passed through.
func writeMachineError(w http.ResponseWriter, err error) {
	var me *machine.Error
	if !errors.As(err, &me) {
		WriteJSONError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	machineErrors.Add(string(me.Kind), 1)
	status, ok := kindStatus[me.Kind]
	if !ok {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, jsonError{Error: string(me.Kind), Details: me.Message, Context: me.Context})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
