package app

import "strconv"

// scientificFmt formats values in exponent form with the given decimals.
func scientificFmt(decimals int) func(float64) string {
	return func(v float64) string {
		return strconv.FormatFloat(v, 'e', decimals, 64)
	}
}

// integerFmt is used for gradient signs.
func integerFmt(v float64) string {
	return strconv.FormatFloat(v, 'f', 0, 64)
}
