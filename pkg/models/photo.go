package models

// ImageData is an encoded image handed over by the capture layer.
type ImageData struct {
	Filename    string
	ContentType string
	Bytes       []byte
}

// Empty reports whether no image bytes are present.
func (d ImageData) Empty() bool {
	return len(d.Bytes) == 0
}

// Photo is one side of a key. Compressed is optional; the upload path derives
// it from Original when absent.
type Photo struct {
	Original   ImageData
	Compressed ImageData
}

// PhotoQuality summarizes how usable a key photo is before classification.
type PhotoQuality struct {
	Width       int      `json:"width"`
	Height      int      `json:"height"`
	Brightness  float64  `json:"brightness"`
	Sharpness   float64  `json:"sharpness"`
	ClippedRate float64  `json:"clipped_rate"`
	Blurry      bool     `json:"blurry"`
	TooDark     bool     `json:"too_dark"`
	Overexposed bool     `json:"overexposed"`
	Warnings    []string `json:"warnings"`
}

// Usable reports whether no quality warning was raised.
func (q PhotoQuality) Usable() bool {
	return len(q.Warnings) == 0
}
