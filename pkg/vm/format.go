package vm

import "strconv"

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

// formatFloat matches spec §4.6's "default decimal formatting": plain
// decimal notation, shortest representation that round-trips, never
// scientific notation.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
