package integration

import (
	"bytes"
	"net/http"
	"testing"
)

func TestIntegration_ValidationErrors(t *testing.T) {
	waitReady(t)
	u := baseURL()

	cases := []struct {
		name, path, body, ctype string
		want                    int
	}{
		{"missing_amount", "/money", `{}`, "application/json", http.StatusBadRequest},
		{"malformed_json", "/money", `{"amount":`, "application/json", http.StatusBadRequest},
		{"negative_amount", "/money", `{"amount":-5}`, "application/json", http.StatusPaymentRequired},
		{"empty_code", "/selection", `{"code":""}`, "application/json", http.StatusBadRequest},
		{"unknown_code", "/selection", `{"code":"ZZ"}`, "application/json", http.StatusNotFound},
		{"illegal_coin", "/coins", `{"denomination":7,"quantity":1}`, "application/json", http.StatusBadRequest},
		{"restock_unknown", "/restock", `{"code":"ZZ","quantity":1}`, "application/json", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodPost, u+tc.path, bytes.NewBufferString(tc.body))
			r.Header.Set("Content-Type", tc.ctype)
			resp, err := http.DefaultClient.Do(r)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tc.want {
				t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
			}
		})
	}
}

func TestIntegration_LogsQueryValidation(t *testing.T) {
	waitReady(t)
	for _, q := range []string{"?type=NOPE", "?date=yesterday"} {
		if st := get(t, "/logs"+q, nil); st != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", q, st)
		}
	}
}
