package pipeline

import (
	"context"
	"time"

	"github.com/mdistill/mdistill/pkg/model/registry"
)

// EnsureModel makes sure the model described by info is present in the
// registry cache, downloading it when missing. Download lifecycle is
// reported through onEvent as download-start, download-progress, and
// download-complete events; a cached model emits nothing.
func EnsureModel(ctx context.Context, reg *registry.Registry, info registry.ModelInfo, onEvent func(Event)) (string, error) {
	emit := func(ev Event) {
		if onEvent != nil {
			onEvent(ev)
		}
	}

	if path := reg.PathFor(info.Name); registry.Available(path) {
		return path, nil
	}

	emit(Event{Type: EventDownloadStart, Message: info.Name})
	start := time.Now()

	path, err := reg.EnsureCached(ctx, info, func(written, total int64) {
		emit(Event{Type: EventDownloadProgress, Progress: written, Total: total})
	})
	if err != nil {
		return "", err
	}

	emit(Event{Type: EventDownloadComplete, Message: info.Name, Elapsed: time.Since(start)})
	return path, nil
}
