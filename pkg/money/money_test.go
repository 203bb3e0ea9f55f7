package money

import "testing"

func TestSplitSumsToValue(t *testing.T) {
	values := []Cents{10000, 9999, 1, 333, 12345, 0}
	percents := []int{0, 1, 33, 40, 50, 99, 100}
	for _, v := range values {
		for _, p := range percents {
			pro, clinic := v.Split(p)
			if pro+clinic != v {
				t.Errorf("Split(%d, %d%%): %d + %d != %d", v, p, pro, clinic, v)
			}
		}
	}
}

func TestSplitFortyPercent(t *testing.T) {
	pro, clinic := Cents(10000).Split(40)
	if pro != 4000 || clinic != 6000 {
		t.Errorf("expected 4000/6000, got %d/%d", pro, clinic)
	}
}

func TestSplitRoundsHalfToEven(t *testing.T) {
	// 25 * 50% = 12.5 centavos -> rounds to 12 (even).
	pro, clinic := Cents(25).Split(50)
	if pro != 12 || clinic != 13 {
		t.Errorf("expected 12/13, got %d/%d", pro, clinic)
	}
	// 27 * 50% = 13.5 -> rounds to 14 (even).
	pro, clinic = Cents(27).Split(50)
	if pro != 14 || clinic != 13 {
		t.Errorf("expected 14/13, got %d/%d", pro, clinic)
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
		ok   bool
	}{
		{"100", 10000, true},
		{"100.5", 10050, true},
		{"100.50", 10050, true},
		{"0.01", 1, true},
		{"-3.20", -320, true},
		{"1.234", 0, false},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Errorf("Parse(%q) = %d, %v; want %d", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Errorf("Parse(%q): expected error", tc.in)
		}
	}
}

func TestString(t *testing.T) {
	if s := Cents(10000).String(); s != "100.00" {
		t.Errorf("got %q", s)
	}
	if s := Cents(105).String(); s != "1.05" {
		t.Errorf("got %q", s)
	}
	if s := Cents(-320).String(); s != "-3.20" {
		t.Errorf("got %q", s)
	}
}

func TestMarshalJSON(t *testing.T) {
	b, err := Cents(6000).MarshalJSON()
	if err != nil || string(b) != "60.00" {
		t.Errorf("got %s, %v", b, err)
	}
	var c Cents
	if err := c.UnmarshalJSON([]byte("250.00")); err != nil || c != 25000 {
		t.Errorf("got %d, %v", c, err)
	}
	if err := c.UnmarshalJSON([]byte(`"50"`)); err != nil || c != 5000 {
		t.Errorf("got %d, %v", c, err)
	}
}
