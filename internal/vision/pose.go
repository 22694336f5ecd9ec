package vision

import "math"

// Pose holds rough head orientation angles in degrees, estimated from the
// five detection landmarks. Precise enough for the legacy annotation matcher,
// not for rendering.
type Pose struct {
	Yaw   float32 `json:"yaw"`   // left/right rotation
	Pitch float32 `json:"pitch"` // up/down rotation
	Roll  float32 `json:"roll"`  // in-plane tilt
}

// poseFromLandmarks estimates head pose from the landmark layout:
// [0] left eye, [1] right eye, [2] nose tip, [3] left mouth, [4] right mouth.
func poseFromLandmarks(lm [5][2]float32) Pose {
	leftEye := lm[0]
	rightEye := lm[1]
	nose := lm[2]
	mouthMidY := (lm[3][1] + lm[4][1]) / 2

	eyeMidX := (leftEye[0] + rightEye[0]) / 2
	eyeMidY := (leftEye[1] + rightEye[1]) / 2

	eyeDX := float64(rightEye[0] - leftEye[0])
	eyeDY := float64(rightEye[1] - leftEye[1])
	eyeDist := math.Hypot(eyeDX, eyeDY)
	if eyeDist == 0 {
		return Pose{}
	}

	// Roll: slope of the eye line.
	roll := math.Atan2(eyeDY, eyeDX) * 180 / math.Pi

	// Yaw: horizontal nose offset from the eye midpoint, relative to the
	// inter-eye distance. A frontal face puts the nose near the midpoint.
	yaw := math.Atan(float64(nose[0]-eyeMidX)/eyeDist*2) * 180 / math.Pi

	// Pitch: vertical nose position between the eye line and the mouth line.
	// Frontal faces put the nose roughly halfway; deviation maps to tilt.
	faceSpan := float64(mouthMidY - eyeMidY)
	var pitch float64
	if faceSpan > 0 {
		offset := float64(nose[1]-eyeMidY)/faceSpan - 0.5
		pitch = math.Atan(offset*2) * 180 / math.Pi
	}

	return Pose{
		Yaw:   float32(yaw),
		Pitch: float32(pitch),
		Roll:  float32(roll),
	}
}
