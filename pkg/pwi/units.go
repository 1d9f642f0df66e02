package pwi

// ConvertArcminutesToDegrees converts a value in arc-minutes to degrees.
func ConvertArcminutesToDegrees(arcminutes float64) float64 {
	return arcminutes / 60.0
}

// ConvertDegreesToArcminutes converts a value in degrees to arc-minutes.
func ConvertDegreesToArcminutes(degrees float64) float64 {
	return degrees * 60.0
}
