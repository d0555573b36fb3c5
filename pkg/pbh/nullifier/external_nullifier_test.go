package nullifier

import (
	"errors"
	"testing"
)

func TestParseWellFormed(t *testing.T) {
	en, err := Parse("0-012025-11")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := ExternalNullifier{Prefix: PrefixV1, Period: Period{Month: 1, Year: 2025}, Nonce: 11}
	if en != want {
		t.Fatalf("got %+v want %+v", en, want)
	}
	if got := en.String(); got != "0-012025-11" {
		t.Fatalf("reformat mismatch: got %q", got)
	}
}

func TestParseInvalidPeriod(t *testing.T) {
	_, err := Parse("0-132025-0")
	if !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestParseInvalidPrefix(t *testing.T) {
	_, err := Parse("x-012025-0")
	if !errors.Is(err, ErrInvalidPrefix) {
		t.Fatalf("expected ErrInvalidPrefix, got %v", err)
	}
}

func TestParseRejectsWrongFieldCount(t *testing.T) {
	cases := []string{
		"0-012025",
		"0-012025-1-extra",
		"",
	}
	for _, c := range cases {
		if _, err := Parse(c); !errors.Is(err, ErrInvalidFormat) && !errors.Is(err, ErrInvalidPrefix) {
			t.Errorf("Parse(%q): expected format/prefix error, got %v", c, err)
		}
	}
}

func TestParseRejectsNonNumericNonce(t *testing.T) {
	_, err := Parse("0-012025-abc")
	if !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestParseRejectsNonceOverflow(t *testing.T) {
	_, err := Parse("0-012025-99999999999")
	if !errors.Is(err, ErrInvalidNonce) {
		t.Fatalf("expected ErrInvalidNonce, got %v", err)
	}
}

func TestBijectiveRoundTrip(t *testing.T) {
	inputs := []string{"0-012025-0", "0-122099-65535", "0-062030-1"}
	for _, in := range inputs {
		en, err := Parse(in)
		if err != nil {
			t.Fatalf("parse(%q): %v", in, err)
		}
		if got := en.String(); got != in {
			t.Errorf("round trip mismatch: parse(%q).String() = %q", in, got)
		}
	}
}
