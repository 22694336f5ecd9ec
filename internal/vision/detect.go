package vision

import (
	"fmt"
	"math"
	"sort"

	ort "github.com/yalue/onnxruntime_go"
)

// Detection is one detected face in an image.
type Detection struct {
	BBox       [4]float32 // x1, y1, x2, y2 in original image pixels
	Confidence float32
	Landmarks  [5][2]float32 // eyes, nose tip, mouth corners
}

// Detector runs RetinaFace face detection via ONNX Runtime.
type Detector struct {
	session       *ort.AdvancedSession
	inputTensor   *ort.Tensor[float32]
	outputTensors []*ort.Tensor[float32]
	threshold     float32
	inputW        int
	inputH        int
}

// det_10g emits anchor-relative outputs at three strides.
var detStrides = []int{8, 16, 32}

const anchorsPerCell = 2

const nmsIoUThreshold = 0.4

// NewDetector loads the RetinaFace ONNX model from modelPath.
// opts may be nil for ONNX Runtime defaults.
func NewDetector(modelPath string, threshold float32, opts *ort.SessionOptions) (*Detector, error) {
	inputW, inputH := 640, 640

	inputShape := ort.NewShape(1, 3, int64(inputH), int64(inputW))
	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}

	// det_10g output shapes carry no batch dimension. Per stride s the row
	// count is (640/s)^2 * anchorsPerCell: 12800, 3200, 800.
	type outputSpec struct {
		name  string
		shape ort.Shape
	}
	outputs := []outputSpec{
		{"448", ort.NewShape(12800, 1)},  // scores stride 8
		{"471", ort.NewShape(3200, 1)},   // scores stride 16
		{"494", ort.NewShape(800, 1)},    // scores stride 32
		{"451", ort.NewShape(12800, 4)},  // bboxes stride 8
		{"474", ort.NewShape(3200, 4)},   // bboxes stride 16
		{"497", ort.NewShape(800, 4)},    // bboxes stride 32
		{"454", ort.NewShape(12800, 10)}, // landmarks stride 8
		{"477", ort.NewShape(3200, 10)},  // landmarks stride 16
		{"500", ort.NewShape(800, 10)},   // landmarks stride 32
	}

	outputNames := make([]string, len(outputs))
	outputTensors := make([]*ort.Tensor[float32], len(outputs))
	outputValues := make([]ort.Value, len(outputs))

	for i, spec := range outputs {
		outputNames[i] = spec.name
		t, err := ort.NewEmptyTensor[float32](spec.shape)
		if err != nil {
			for j := 0; j < i; j++ {
				outputTensors[j].Destroy()
			}
			inputTensor.Destroy()
			return nil, fmt.Errorf("create output tensor %s: %w", spec.name, err)
		}
		outputTensors[i] = t
		outputValues[i] = t
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"input.1"},
		outputNames,
		[]ort.Value{inputTensor},
		outputValues,
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		for _, t := range outputTensors {
			t.Destroy()
		}
		return nil, fmt.Errorf("create detector session: %w", err)
	}

	return &Detector{
		session:       session,
		inputTensor:   inputTensor,
		outputTensors: outputTensors,
		threshold:     threshold,
		inputW:        inputW,
		inputH:        inputH,
	}, nil
}

// Detect runs face detection on a preprocessed image.
// imgData is CHW [3, inputH, inputW], normalized. origW/origH are the
// original image dimensions for coordinate scaling.
func (d *Detector) Detect(imgData []float32, origW, origH int) ([]Detection, error) {
	copy(d.inputTensor.GetData(), imgData)

	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("run detection: %w", err)
	}

	var detections []Detection
	for si, stride := range detStrides {
		detections = append(detections, d.decodeStride(si, stride, origW, origH)...)
	}

	return nms(detections, nmsIoUThreshold), nil
}

// decodeStride decodes anchor-relative scores/boxes/landmarks for one stride.
func (d *Detector) decodeStride(si, stride, origW, origH int) []Detection {
	scores := d.outputTensors[si].GetData()      // [N, 1]
	bboxes := d.outputTensors[si+3].GetData()    // [N, 4]
	landmarks := d.outputTensors[si+6].GetData() // [N, 10]

	scaleW := float32(origW) / float32(d.inputW)
	scaleH := float32(origH) / float32(d.inputH)

	fmW := d.inputW / stride
	fmH := d.inputH / stride
	st := float32(stride)

	var out []Detection
	idx := 0
	for cy := 0; cy < fmH; cy++ {
		for cx := 0; cx < fmW; cx++ {
			for a := 0; a < anchorsPerCell; a++ {
				score := scores[idx]
				if score < d.threshold {
					idx++
					continue
				}

				anchorX := float32(cx) * st
				anchorY := float32(cy) * st

				// Boxes are distances from the anchor center to each edge,
				// in stride units.
				x1 := clampF((anchorX-bboxes[idx*4+0]*st)*scaleW, 0, float32(origW))
				y1 := clampF((anchorY-bboxes[idx*4+1]*st)*scaleH, 0, float32(origH))
				x2 := clampF((anchorX+bboxes[idx*4+2]*st)*scaleW, 0, float32(origW))
				y2 := clampF((anchorY+bboxes[idx*4+3]*st)*scaleH, 0, float32(origH))

				var lm [5][2]float32
				for li := 0; li < 5; li++ {
					lm[li][0] = (anchorX + landmarks[idx*10+li*2]*st) * scaleW
					lm[li][1] = (anchorY + landmarks[idx*10+li*2+1]*st) * scaleH
				}

				out = append(out, Detection{
					BBox:       [4]float32{x1, y1, x2, y2},
					Confidence: score,
					Landmarks:  lm,
				})
				idx++
			}
		}
	}
	return out
}

// InputSize returns the model's expected input dimensions.
func (d *Detector) InputSize() (int, int) {
	return d.inputW, d.inputH
}

func (d *Detector) Close() {
	if d.session != nil {
		d.session.Destroy()
	}
	if d.inputTensor != nil {
		d.inputTensor.Destroy()
	}
	for _, t := range d.outputTensors {
		if t != nil {
			t.Destroy()
		}
	}
}

// nms suppresses overlapping detections, keeping the highest-confidence box
// among any group with IoU above the threshold. The result is ordered by
// confidence, descending.
func nms(detections []Detection, iouThreshold float32) []Detection {
	if len(detections) == 0 {
		return detections
	}

	sort.Slice(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	keep := make([]bool, len(detections))
	for i := range keep {
		keep[i] = true
	}

	for i := 0; i < len(detections); i++ {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(detections); j++ {
			if keep[j] && iou(detections[i].BBox, detections[j].BBox) > iouThreshold {
				keep[j] = false
			}
		}
	}

	var result []Detection
	for i, det := range detections {
		if keep[i] {
			result = append(result, det)
		}
	}
	return result
}

func iou(a, b [4]float32) float32 {
	x1 := float32(math.Max(float64(a[0]), float64(b[0])))
	y1 := float32(math.Max(float64(a[1]), float64(b[1])))
	x2 := float32(math.Min(float64(a[2]), float64(b[2])))
	y2 := float32(math.Min(float64(a[3]), float64(b[3])))

	intersection := float32(math.Max(0, float64(x2-x1))) * float32(math.Max(0, float64(y2-y1)))

	areaA := (a[2] - a[0]) * (a[3] - a[1])
	areaB := (b[2] - b[0]) * (b[3] - b[1])
	union := areaA + areaB - intersection

	if union <= 0 {
		return 0
	}
	return intersection / union
}
