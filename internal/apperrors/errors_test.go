package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusAndCode(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", NotFound("order", "o1"), http.StatusNotFound, CodeNotFound},
		{"wrapped conflict", fmt.Errorf("save: %w", Conflict("dup")), http.StatusConflict, CodeConflict},
		{"retryable upstream", Upstream(errors.New("boom"), true), http.StatusServiceUnavailable, CodeUpstreamUnavailable},
		{"operation", &OperationError{Op: OpGenerateInvoice, ShipmentID: "s1", PackageID: "PACKAGE_1", Err: errors.New("x")}, http.StatusBadGateway, "GENERATE_INVOICE_ERROR"},
		{"plain", errors.New("plain"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := HTTPStatus(tc.err); got != tc.status {
				t.Fatalf("status: expected %d, got %d", tc.status, got)
			}
			if got := Code(tc.err); got != tc.code {
				t.Fatalf("code: expected %s, got %s", tc.code, got)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("upstream 500")
	err := &OperationError{Op: OpCreatePackages, ShipmentID: "s1", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected operation error to unwrap to cause")
	}
	if _, ok := err.Details()["packageId"]; ok {
		t.Fatalf("package id must be omitted when empty")
	}
}
