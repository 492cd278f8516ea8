package dice

// RollBetween returns a uniform value in [min, max] drawn from src.
//
// Precondition: src must be non-nil; min <= max.
// Postcondition: min <= result <= max. Returns min when min == max without
// consuming a value from src.
func RollBetween(src Source, min, max int) int {
	if min == max {
		return min
	}
	return min + src.Intn(max-min+1)
}
