package model

// ComboKey builds the canonical map key for an indicator pair, independent
// of argument order.
func ComboKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "+" + b
}
