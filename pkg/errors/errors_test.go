package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code   Code
		status int
	}{
		{CodeValidation, http.StatusBadRequest},
		{CodeNotFound, http.StatusNotFound},
		{CodeInsufficientStock, http.StatusConflict},
		{CodeInventoryMissing, http.StatusInternalServerError},
		{CodeStateConflict, http.StatusUnprocessableEntity},
		{CodeDependency, http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		if got := MetadataFor(tc.code).HTTPStatus; got != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestInsufficientStockMessageStaysPublic(t *testing.T) {
	meta := MetadataFor(CodeInsufficientStock)
	if meta.PublicMessage != "not enough stock available" {
		t.Fatalf("unexpected public message %q", meta.PublicMessage)
	}
	if !meta.DetailsAllowed {
		t.Fatal("insufficient stock should allow details (variant, requested qty)")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row lock timeout")
	err := Wrap(CodeDependency, cause, "reserve stock")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped error should match the cause via errors.Is")
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected typed dependency error, got %v", err)
	}
}

func TestAsReturnsNilForForeignErrors(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatal("expected nil for non-typed error")
	}
	if As(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "requested 5, available 2").
		WithDetails(map[string]any{"requested": 5, "available": 2})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["requested"] != 5 {
		t.Fatalf("details lost: %+v", details)
	}
}

func TestDumpCollectsChain(t *testing.T) {
	cause := stdErrors.New("deadlock detected")
	err := Wrap(CodeDependency, cause, "commit order")

	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected wrapped chain, got %v", dump.Chain)
	}
}
