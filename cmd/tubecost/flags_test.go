package main

import (
	"reflect"
	"testing"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantFlags map[string]string
		wantRest  []string
		wantErr   bool
	}{
		{
			name:      "separate values",
			args:      []string{"ledger.xlsx", "--rate", "4.45", "--xlsx", "out.xlsx"},
			wantFlags: map[string]string{"rate": "4.45", "xlsx": "out.xlsx"},
			wantRest:  []string{"ledger.xlsx"},
		},
		{
			name:      "equals form",
			args:      []string{"--rate=4.5", "ledger.csv"},
			wantFlags: map[string]string{"rate": "4.5"},
			wantRest:  []string{"ledger.csv"},
		},
		{
			name:      "no flags",
			args:      []string{"a", "b"},
			wantFlags: map[string]string{},
			wantRest:  []string{"a", "b"},
		},
		{name: "unknown flag", args: []string{"--bogus", "1"}, wantErr: true},
		{name: "missing value", args: []string{"ledger.csv", "--rate"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flags, rest, err := parseFlags(tt.args, "rate", "xlsx", "html")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(flags, tt.wantFlags) {
				t.Errorf("flags = %v, want %v", flags, tt.wantFlags)
			}
			if !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

func TestNumericFlags(t *testing.T) {
	flags := map[string]string{"inner": "2.5", "bad": "x", "cost": "0.85"}

	if v, err := floatFlag(flags, "inner", 0); err != nil || v != 2.5 {
		t.Errorf("floatFlag(inner) = %v, %v", v, err)
	}
	if v, err := floatFlag(flags, "scrap", 3); err != nil || v != 3 {
		t.Errorf("floatFlag default = %v, %v", v, err)
	}
	if _, err := floatFlag(flags, "bad", 0); err == nil {
		t.Error("expected error for non-numeric flag")
	}

	if d, err := decimalFlag(flags, "cost"); err != nil || !d.Valid || d.Decimal.String() != "0.85" {
		t.Errorf("decimalFlag(cost) = %v, %v", d, err)
	}
	if d, err := decimalFlag(flags, "spec"); err != nil || d.Valid {
		t.Errorf("absent decimal flag = %v, %v", d, err)
	}

	if _, err := parseRate("abc"); err == nil {
		t.Error("expected error for invalid rate")
	}
}

func TestJoinInts(t *testing.T) {
	if got := joinInts([]int{4, 5, 9}, 20); got != "4, 5, 9" {
		t.Errorf("joinInts = %q", got)
	}
	if got := joinInts([]int{1, 2, 3, 4}, 2); got != "1, 2, ... (2 more)" {
		t.Errorf("joinInts truncated = %q", got)
	}
}
