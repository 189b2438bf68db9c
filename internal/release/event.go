// Package release implements the Release Watcher: it maps an S3 upload to a
// deployment environment, purges that environment's CloudFront distribution
// and reports progress through the announce function.
package release

import (
	"encoding/json"

	"github.com/aws/aws-lambda-go/events"

	"deploynotify/internal/types"
)

// EventKind tags the shape of an incoming upload event.
type EventKind string

const (
	// EventKindStorage is an S3 notification carrying Records.
	EventKindStorage EventKind = "storage"
	// EventKindTest is a hand-crafted event: {"test": true, "bucket": {...}}.
	EventKindTest EventKind = "test"
	// EventKindUnknown covers payloads with neither shape, including payloads
	// that are not valid JSON.
	EventKindUnknown EventKind = "unknown"
)

// UploadEvent is a decoded trigger payload. Raw keeps the bytes as received
// for reporting.
type UploadEvent struct {
	Kind    EventKind
	Records []events.S3EventRecord
	Test    bool
	Bucket  *types.Bucket
	Raw     json.RawMessage
}

// uploadEventWire is the union of both accepted shapes.
type uploadEventWire struct {
	Records []events.S3EventRecord `json:"Records"`
	Test    bool                   `json:"test"`
	Bucket  *types.Bucket          `json:"bucket"`
}

// ParseUploadEvent decodes raw. It never fails: anything that does not decode
// becomes an EventKindUnknown event.
func ParseUploadEvent(raw json.RawMessage) UploadEvent {
	evt := UploadEvent{Kind: EventKindUnknown, Raw: raw}

	var wire uploadEventWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return evt
	}

	evt.Records = wire.Records
	evt.Test = wire.Test
	evt.Bucket = wire.Bucket

	switch {
	case len(wire.Records) > 0:
		evt.Kind = EventKindStorage
	case wire.Test || wire.Bucket != nil:
		evt.Kind = EventKindTest
	}
	return evt
}

// ExtractBucket returns the bucket of the first record when present, else the
// synthetic bucket of a test event.
func ExtractBucket(evt UploadEvent) (types.Bucket, bool) {
	if len(evt.Records) > 0 {
		b := evt.Records[0].S3.Bucket
		if b.Name != "" || b.Arn != "" {
			return types.Bucket{Name: b.Name, ARN: b.Arn}, true
		}
	}
	if evt.Bucket != nil {
		return *evt.Bucket, true
	}
	return types.Bucket{}, false
}
