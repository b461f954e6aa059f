package conv

const hexd = "0123456789ABCDEF"

// HexBytes writes each byte of p as two uppercase hex digits separated by
// sep (0 for none). buf needs 3*len(p) bytes.
func HexBytes(buf []byte, p []byte, sep byte) []byte {
	n := 0
	for i, b := range p {
		if i > 0 && sep != 0 {
			if n >= len(buf) {
				break
			}
			buf[n] = sep
			n++
		}
		if n+2 > len(buf) {
			break
		}
		buf[n] = hexd[b>>4]
		buf[n+1] = hexd[b&0xF]
		n += 2
	}
	return buf[:n]
}
