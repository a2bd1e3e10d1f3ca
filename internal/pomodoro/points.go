package pomodoro

// PointsEarned returns the award for a naturally completed session of the
// given configured length: one point per full minute, never less than one.
func PointsEarned(configuredSeconds int) int {
	points := configuredSeconds / 60
	if points < 1 {
		return 1
	}
	return points
}
