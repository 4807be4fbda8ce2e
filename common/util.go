package common

// PanicIfErr panics if err is non-nil. Used at initialization paths where an
// error can only mean a programming mistake (e.g. a malformed static schema),
// never a runtime condition a caller should handle.
func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// Contains reports whether arr contains x.
func Contains(arr []int, x int) bool {
	for _, n := range arr {
		if x == n {
			return true
		}
	}
	return false
}

// Max returns the greater of a and b.
func Max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Min returns the lesser of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
