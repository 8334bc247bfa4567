package workflow

import (
	"errors"
	"testing"
)

func TestConvertToBase(t *testing.T) {
	t.Parallel()
	rates := DefaultRates()

	base, rate, err := rates.Convert(12000, "INR")
	if err != nil || base != 12000 || rate != 1 {
		t.Errorf("INR convert = (%d, %v, %v)", base, rate, err)
	}

	base, rate, err = rates.Convert(1000, "usd")
	if err != nil {
		t.Fatalf("USD convert: %v", err)
	}
	if base != 83500 || rate != 83.50 {
		t.Errorf("USD convert = (%d, %v), want (83500, 83.5)", base, rate)
	}

	// Empty currency means the amount was entered in the base currency.
	base, rate, err = rates.Convert(500, "")
	if err != nil || base != 500 || rate != 1 {
		t.Errorf("empty currency convert = (%d, %v, %v)", base, rate, err)
	}

	if _, _, err := rates.Convert(100, "XYZ"); !errors.Is(err, ErrValidation) {
		t.Errorf("unknown currency err = %v, want ErrValidation", err)
	}
}

func TestParseRates(t *testing.T) {
	t.Parallel()
	got, err := ParseRates("USD=80, eur=92.5")
	if err != nil {
		t.Fatalf("ParseRates: %v", err)
	}
	if got["USD"] != 80 || got["EUR"] != 92.5 {
		t.Errorf("rates = %v", got)
	}
	if got[BaseCurrency] != 1 {
		t.Error("base currency missing from parsed table")
	}

	if _, err := ParseRates("USD:80"); err == nil {
		t.Error("malformed entry accepted")
	}
	if _, err := ParseRates("USD=-1"); err == nil {
		t.Error("negative rate accepted")
	}
}
