package money

import "strconv"

// Amount is a monetary value in rupiah. The currency has no minor fraction,
// so integer arithmetic is always exact.
type Amount = int64

// FormatRupiah renders an amount in the id-ID convention: "Rp1.234.567".
// Negative amounts keep the sign ahead of the currency marker.
func FormatRupiah(v Amount) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	digits := strconv.FormatInt(v, 10)
	var out []byte
	for i, d := range []byte(digits) {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out = append(out, '.')
		}
		out = append(out, d)
	}
	return sign + "Rp" + string(out)
}
