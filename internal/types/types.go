package types

import "github.com/andresmejia3/willis/internal/willis"

// FrameTask represents a single frame sent to a worker for processing
type FrameTask struct {
	Index int
	Data  []byte
}

// FrameResult is the analysis of one FrameTask. Err is set instead of
// Result when the frame could not be measured.
type FrameResult struct {
	Index  int
	Result willis.Result
	Cached bool
	Err    error
}
