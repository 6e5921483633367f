// Package kinematics converts commanded speeds into closure rates and
// arrival time projections along the approach corridor.
package kinematics

// MinutesPerHour converts knots (nm per hour) into nm per simulation tick.
const MinutesPerHour = 60.0

// ClosureRate returns the nm covered per minute at speedKt
func ClosureRate(speedKt float64) float64 {
	return speedKt / MinutesPerHour
}

// ETAMinutes returns the minutes needed to cover distanceNM at speedKt.
// The result is undefined for a zero speed; callers never pass one.
func ETAMinutes(distanceNM, speedKt float64) float64 {
	return distanceNM / ClosureRate(speedKt)
}

// Distance returns the nm covered in minutes at speedKt
func Distance(speedKt, minutes float64) float64 {
	return ClosureRate(speedKt) * minutes
}
