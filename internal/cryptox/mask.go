package cryptox

// MaskKey returns a display form of a secret: up to 8 characters become
// "***" plus the last two, longer values keep the first and last four.
// The empty string stays empty.
func MaskKey(value string) string {
	if value == "" {
		return ""
	}
	r := []rune(value)
	if len(r) <= 8 {
		tail := r
		if len(r) > 2 {
			tail = r[len(r)-2:]
		}
		return "***" + string(tail)
	}
	return string(r[:4]) + "..." + string(r[len(r)-4:])
}
