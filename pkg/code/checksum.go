package code

// Checksum computes the Luhn mod 32 check symbol for a code body. Symbols are
// walked from the rightmost position; every other symbol (starting with the
// rightmost) has its alphabet index doubled, and doubled values >= 32 are
// folded as quotient plus remainder. The check symbol is whatever brings the
// sum to a multiple of 32.
func Checksum(body string) (byte, error) {
	folded, err := fold(body)
	if err != nil {
		return 0, err
	}
	sum := 0
	double := true
	for i := len(folded) - 1; i >= 0; i-- {
		v := symbolIndex[folded[i]]
		if double {
			v *= 2
			if v >= Base {
				v = v/Base + v%Base
			}
		}
		sum += v
		double = !double
	}
	return Alphabet[(Base-sum%Base)%Base], nil
}

// Verify recomputes the checksum over body and compares it to check. It never
// fails on malformed input; anything that cannot be checksummed simply does
// not verify.
func Verify(body string, check byte) bool {
	want, err := Checksum(body)
	if err != nil {
		return false
	}
	idx := indexOf(check)
	if idx < 0 {
		return false
	}
	return Alphabet[idx] == want
}
