package money

import "testing"

func TestToMinorUnits(t *testing.T) {
	cases := []struct {
		amount   string
		exponent int
		want     int64
	}{
		{"19.99", 2, 1999},
		{"0.0005", 8, 50000},
		{"1.5", 8, 150000000},
		{"5", 2, 500},
		{"0", 2, 0},
		{"-4.20", 2, -420},
	}

	for _, c := range cases {
		got, err := ToMinorUnits(c.amount, c.exponent)
		if err != nil {
			t.Fatalf("ToMinorUnits(%q, %d) returned error: %v", c.amount, c.exponent, err)
		}
		if got != c.want {
			t.Errorf("ToMinorUnits(%q, %d) = %d, want %d", c.amount, c.exponent, got, c.want)
		}
	}
}

func TestToMinorUnitsRejectsEmpty(t *testing.T) {
	if _, err := ToMinorUnits("", 2); err == nil {
		t.Fatal("expected error for empty amount")
	}
}

func TestFromMinorUnits(t *testing.T) {
	cases := []struct {
		amount   int64
		exponent int
		want     string
	}{
		{1999, 2, "19.99"},
		{50000, 8, "0.00050000"},
		{500, 2, "5.00"},
		{0, 2, "0.00"},
		{-420, 2, "-4.20"},
	}

	for _, c := range cases {
		got := FromMinorUnits(c.amount, c.exponent)
		if got != c.want {
			t.Errorf("FromMinorUnits(%d, %d) = %q, want %q", c.amount, c.exponent, got, c.want)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	minor, err := ToMinorUnits("1234.56", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got := FromMinorUnits(minor, 2); got != "1234.56" {
		t.Errorf("round trip = %q, want %q", got, "1234.56")
	}
}
