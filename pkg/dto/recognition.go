package dto

// RecognitionResponse reports the outcome of a selfie match against an
// event's photos. TotalPhotos lets the caller compute its own match ratio.
type RecognitionResponse struct {
	TotalPhotos    int             `json:"total_photos"`
	MatchingPhotos int             `json:"matching_photos"`
	FacesDetected  int             `json:"faces_detected"`
	Photos         []PhotoResponse `json:"photos"`
}
