package tutor

import "math"

// Cosine returns dot(a,b)/(|a||b|). Zero-norm, empty, or mismatched-length
// inputs yield 0.0 rather than an error; a vectorless lesson simply never
// wins the scan.
func Cosine(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := 0; i < len(a); i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
