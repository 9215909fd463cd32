package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"12.34", 1234, true},
		{"12,34", 1234, true},
		{"1000", 100000, true},
		{"12.345", 1234, true}, // rounds down
		{"12.346", 1235, true}, // rounds up
		{"0.01", 1, true},
		{"", 0, false},
		{"0", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"abc", 0, false},
		{"12.3.4", 0, false},
		{"12a", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			m, err := ParseAmount(tc.in)
			if tc.ok && err != nil {
				t.Fatalf("expected ok, got %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error, got %d cents", m.Cents)
			}
			if tc.ok && m.Cents != tc.cents {
				t.Fatalf("got %d cents, want %d", m.Cents, tc.cents)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	m := Money{Cents: 1234}
	b, err := m.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "12.34" {
		t.Fatalf("marshal = %s, want 12.34", b)
	}

	var back Money
	if err := back.UnmarshalJSON([]byte("12.34")); err != nil {
		t.Fatal(err)
	}
	if back.Cents != 1234 {
		t.Fatalf("unmarshal number = %d cents", back.Cents)
	}

	if err := back.UnmarshalJSON([]byte(`"56,78"`)); err != nil {
		t.Fatal(err)
	}
	if back.Cents != 5678 {
		t.Fatalf("unmarshal string = %d cents", back.Cents)
	}

	if err := back.UnmarshalJSON([]byte(`"garbage"`)); err != ErrInvalidAmount {
		t.Fatalf("garbage should be rejected, got %v", err)
	}
}
