package validation

import (
	"errors"
	"testing"
)

func TestCustomerNrChecksum(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr string
	}{
		{"DigitSumTen", "1111111111", ""},
		{"DigitSumFortyFive", "1234567890", "Checksumme stimmt nicht"},
		{"NonDigit", "12345A", "CustomerNr enthält nicht nur Ziffern"},
		{"Empty", "", ""},
		{"Zero", "0", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CustomerNrChecksum("CustomerNr", tt.value)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if err.Message != tt.wantErr {
				t.Errorf("expected message %q, got %q", tt.wantErr, err.Message)
			}
			if len(err.Fields) != 1 || err.Fields[0] != "CustomerNr" {
				t.Errorf("expected field CustomerNr, got %v", err.Fields)
			}
		})
	}
}

func TestNamesLength(t *testing.T) {
	if err := NamesLength("FirstName", "Al", "LastName", "Bo", 5); err == nil {
		t.Error("expected failure for combined length 4")
	} else if len(err.Fields) != 2 {
		t.Errorf("expected both name fields, got %v", err.Fields)
	}

	if err := NamesLength("FirstName", "Ann", "LastName", "Bo", 5); err != nil {
		t.Errorf("expected combined length 5 to pass, got %v", err)
	}

	// Counts characters, not bytes.
	if err := NamesLength("FirstName", "Jö", "LastName", "Öz", 5); err == nil {
		t.Error("expected failure for four characters")
	}
}

func TestRequiredAndMaxLength(t *testing.T) {
	if err := Required("OrderNr", "  "); err == nil {
		t.Error("expected whitespace to fail Required")
	}
	if err := Required("OrderNr", "A-1"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := MaxLength("Name", "123456789012345678901", 20); err == nil {
		t.Error("expected 21 characters to fail MaxLength(20)")
	}
	if err := MaxLength("Name", "12345678901234567890", 20); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestResult(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		if err := Result(nil); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("Single", func(t *testing.T) {
		failure := NewError("boom", "Field")
		err := Result([]*Error{failure})
		if err != failure {
			t.Errorf("expected the single failure itself, got %v", err)
		}
		if !errors.Is(err, ErrInvalid) {
			t.Error("expected errors.Is(err, ErrInvalid)")
		}
	})

	t.Run("Aggregate", func(t *testing.T) {
		err := Result([]*Error{NewError("a", "A"), NewError("b", "B")})
		var agg *AggregateError
		if !errors.As(err, &agg) {
			t.Fatalf("expected AggregateError, got %T", err)
		}
		if agg.Message != "Entity validation failed" {
			t.Errorf("unexpected message %q", agg.Message)
		}
		if len(agg.Errors) != 2 {
			t.Errorf("expected 2 wrapped failures, got %d", len(agg.Errors))
		}
		if !errors.Is(err, ErrInvalid) {
			t.Error("expected errors.Is(err, ErrInvalid)")
		}
		if got := Failures(err); len(got) != 2 {
			t.Errorf("expected Failures to flatten 2, got %d", len(got))
		}
	})
}

func TestCollector(t *testing.T) {
	var c Collector
	c.Check(nil)
	c.Check(Required("A", ""))
	c.Check(MaxLength("B", "xx", 1))
	if len(c.Failures()) != 2 {
		t.Errorf("expected 2 failures, got %d", len(c.Failures()))
	}
}
