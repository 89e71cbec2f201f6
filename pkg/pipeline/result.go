package pipeline

import "github.com/mdistill/mdistill/pkg/meta"

// Stats summarizes one conversion.
type Stats struct {
	InputLength         int   `json:"inputLength" yaml:"inputLength"`
	OutputLength        int   `json:"outputLength" yaml:"outputLength"`
	ProcessingTimeMs    int64 `json:"processingTimeMs" yaml:"processingTimeMs"`
	ExtractionSucceeded bool  `json:"extractionSucceeded" yaml:"extractionSucceeded"`
	ImageCount          int   `json:"imageCount" yaml:"imageCount"`
	LinkCount           int   `json:"linkCount" yaml:"linkCount"`
}

// Result is the final conversion artifact. It is created once at the end
// of the pipeline and immutable thereafter.
type Result struct {
	Markdown string        `json:"markdown" yaml:"markdown"`
	Metadata meta.Metadata `json:"metadata" yaml:"metadata"`
	Stats    Stats         `json:"stats" yaml:"stats"`
}
