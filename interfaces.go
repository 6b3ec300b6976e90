package imagestudio

import "context"

// ImageStreamer is the core interface for streaming image generation models.
// Implement this interface to add support for new models or providers.
type ImageStreamer interface {
	// Stream sends the ordered parts to the model and drains the streamed
	// response. It returns the accumulated text and the last image received.
	Stream(ctx context.Context, parts []ContentPart, genConfig *GenerateConfig) (*StreamResult, error)

	// Model returns the model name requests are sent to by default.
	Model() Model

	// Close releases any resources held by the streamer.
	Close() error
}
