package main

import (
	"strconv"
)

// miscellaneous utility functions

func integerWithMinimum(str string, min int) int {
	val, err := strconv.Atoi(str)

	// fallback for invalid or nonsensical values
	if err != nil || val < min {
		val = min
	}

	return val
}

// timeoutWithMinimum parses a timeout in seconds
func timeoutWithMinimum(str string, min int) int {
	return integerWithMinimum(str, min)
}
