// Package bytefmt renders byte counts the way every SlideWeight report prints them.
package bytefmt

import "fmt"

var units = []string{"B", "KB", "MB", "GB"}

// Format returns a human-readable size. Zero is printed as "0.0 MB", plain
// bytes carry no decimals and larger units use one decimal, capped at GB.
func Format(n int64) string {
	if n == 0 {
		return "0.0 MB"
	}

	value := float64(n)
	for i, unit := range units {
		if value < 1024 || i == len(units)-1 {
			if unit == "B" {
				return fmt.Sprintf("%d %s", n, unit)
			}
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f GB", value)
}
