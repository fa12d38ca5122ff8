package engine

// GenerateOptions carries the sampling parameters for a generation request.
type GenerateOptions struct {
	// MaxNewTokens bounds how many tokens the model may generate.
	MaxNewTokens int
	// Temperature controls sampling randomness.
	Temperature float64
	// TopP is the nucleus-sampling cutoff.
	TopP float64
}

// PullProgress reports download progress for a model pull operation.
type PullProgress struct {
	Status    string `json:"status"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}
