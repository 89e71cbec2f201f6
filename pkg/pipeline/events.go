package pipeline

import "time"

// EventType tags a pipeline progress notification.
type EventType string

const (
	EventModelCheck         EventType = "model-check"
	EventModelLoading       EventType = "model-loading"
	EventModelLoaded        EventType = "model-loaded"
	EventConversionStart    EventType = "conversion-start"
	EventConversionProgress EventType = "conversion-progress"
	EventConversionComplete EventType = "conversion-complete"
	EventConversionError    EventType = "conversion-error"
	EventDownloadStart      EventType = "download-start"
	EventDownloadProgress   EventType = "download-progress"
	EventDownloadComplete   EventType = "download-complete"
	EventFallbackStart      EventType = "fallback-start"
)

// Event describes pipeline progress. Events are notifications only: they
// carry no pipeline state and observers cannot influence control flow.
type Event struct {
	Type    EventType
	Message string

	// Progress carries generated characters or downloaded bytes,
	// depending on the event type. Total is -1 when unknown.
	Progress int64
	Total    int64

	Elapsed time.Duration
	Err     error
}
