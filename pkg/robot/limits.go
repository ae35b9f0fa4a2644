package robot

// Servo limits in degrees. These are safety limits to prevent sending
// impossible angles to the servo controller.
const (
	MaxSteeringAngle = 40
	MaxCameraPan     = 90
	MinCameraTilt    = -35
	MaxCameraTilt    = 65
	MaxSpeed         = 100
)

// clamp restricts v to the range [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ClampSteering limits a steering angle to the servo range.
func ClampSteering(angle int) int {
	return clamp(angle, -MaxSteeringAngle, MaxSteeringAngle)
}

// ClampPan limits a camera pan angle to the mount range.
func ClampPan(pan int) int {
	return clamp(pan, -MaxCameraPan, MaxCameraPan)
}

// ClampTilt limits a camera tilt angle to the mount range.
func ClampTilt(tilt int) int {
	return clamp(tilt, MinCameraTilt, MaxCameraTilt)
}

// ClampSpeed limits a drive speed to 0..100.
func ClampSpeed(speed int) int {
	return clamp(speed, 0, MaxSpeed)
}
