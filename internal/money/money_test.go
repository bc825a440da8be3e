package money

import "testing"

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:          "Rp0",
		500:        "Rp500",
		20_000:     "Rp20.000",
		1_234_567:  "Rp1.234.567",
		-75_000:    "-Rp75.000",
		10_000_000: "Rp10.000.000",
	}
	for in, want := range cases {
		if got := FormatRupiah(in); got != want {
			t.Fatalf("FormatRupiah(%d) = %q, want %q", in, got, want)
		}
	}
}
