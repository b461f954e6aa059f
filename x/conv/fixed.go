package conv

// Fixed writes n scaled by 10^-decimals, e.g. Fixed(buf, -215, 1) = "-21.5".
// buf should be length >= 24.
func Fixed(buf []byte, n int64, decimals int) []byte {
	if decimals <= 0 {
		return Itoa(buf, n)
	}
	neg := n < 0
	u := uint64(n)
	if neg {
		u = uint64(-n)
	}
	i := len(buf)
	for d := 0; d < decimals && i > 0; d++ {
		i--
		buf[i] = byte('0' + u%10)
		u /= 10
	}
	if i > 0 {
		i--
		buf[i] = '.'
	}
	whole := Utoa(buf[:i], u)
	i -= len(whole)
	// Utoa right-aligns into buf[:i], so the digits are contiguous.
	if neg && i > 0 {
		i--
		buf[i] = '-'
	}
	return buf[i:]
}
