package util

// FirstNonEmpty returns the first of its arguments that is not the empty
// string, or "" when all of them are.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
