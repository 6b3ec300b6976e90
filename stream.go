package imagestudio

import "strings"

// StreamAccumulator folds streamed chunks into a StreamResult.
//
// Text chunks are concatenated in arrival order. Image chunks replace any
// previously seen image, so the last image wins.
type StreamAccumulator struct {
	text   strings.Builder
	image  *ImagePart
	chunks int
}

// Add applies one chunk.
func (a *StreamAccumulator) Add(chunk StreamChunk) {
	a.chunks++
	if chunk.Image != nil && len(chunk.Image.Data) > 0 {
		img := *chunk.Image
		a.image = &img
		return
	}
	if chunk.Text != "" {
		a.text.WriteString(chunk.Text)
	}
}

// Chunks returns the number of chunks applied so far.
func (a *StreamAccumulator) Chunks() int {
	return a.chunks
}

// Result returns the accumulated text and the latest image.
func (a *StreamAccumulator) Result() *StreamResult {
	return &StreamResult{
		Text:  a.text.String(),
		Image: a.image,
	}
}
