package vision

import "fmt"

// ModelLoadError means every configured model source was tried and none
// produced a usable model. Callers cannot proceed with extraction.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("load model %s: all sources exhausted: %v", e.Model, e.Err)
}

func (e *ModelLoadError) Unwrap() error { return e.Err }

// DecodeError means the image bytes could not be decoded. Recoverable:
// the caller skips the image.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
