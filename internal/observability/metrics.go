package observability

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danmuck/blobmsg/internal/protocol/blob"
	"github.com/danmuck/blobmsg/internal/protocol/blobmsg"
	"github.com/danmuck/blobmsg/internal/protocol/frame"
)

const (
	DirectionEncode = "encode"
	DirectionDecode = "decode"
)

var (
	registerOnce sync.Once

	frames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blobmsg",
			Subsystem: "frame",
			Name:      "messages_total",
			Help:      "Framed messages encoded or decoded.",
		},
		[]string{"direction", "compression", "result"},
	)
	payloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blobmsg",
			Subsystem: "frame",
			Name:      "payload_bytes",
			Help:      "Uncompressed blob size of framed messages.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		},
		[]string{"direction"},
	)
	codecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blobmsg",
			Subsystem: "frame",
			Name:      "duration_seconds",
			Help:      "Time spent encoding or decoding a framed message.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
		[]string{"direction"},
	)
	codecErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blobmsg",
			Subsystem: "codec",
			Name:      "errors_total",
			Help:      "Codec failures by kind.",
		},
		[]string{"direction", "kind"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(frames, payloadBytes, codecDuration, codecErrors)
	})
}

// RecordFrame counts one framed message. size is the blob length before
// compression; err is the outcome of the whole encode or decode.
func RecordFrame(direction string, c frame.Compression, size int, duration time.Duration, err error) {
	RegisterMetrics()
	result := "ok"
	if err != nil {
		result = "error"
		codecErrors.WithLabelValues(direction, ErrorKind(err)).Inc()
	} else {
		payloadBytes.WithLabelValues(direction).Observe(float64(size))
	}
	frames.WithLabelValues(direction, c.String(), result).Inc()
	codecDuration.WithLabelValues(direction).Observe(duration.Seconds())
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{blob.ErrMalformedHeader, "malformed_header"},
	{blob.ErrTruncatedAttribute, "truncated_attribute"},
	{blobmsg.ErrNameTooLong, "name_too_long"},
	{blob.ErrUnbalancedNesting, "unbalanced_nesting"},
	{blob.ErrAllocationFailure, "allocation_failure"},
	{blobmsg.ErrNestingDepth, "nesting_depth"},
	{blobmsg.ErrInvalidType, "invalid_type"},
	{blobmsg.ErrInvalidLength, "invalid_length"},
	{frame.ErrShortHeader, "short_header"},
	{frame.ErrInvalidMagic, "invalid_magic"},
	{frame.ErrUnsupportedVersion, "unsupported_version"},
	{frame.ErrHeaderLenTooSmall, "header_len"},
	{frame.ErrHeaderLenMismatch, "header_len"},
	{frame.ErrPayloadTooLarge, "payload_too_large"},
	{frame.ErrDigestMismatch, "digest_mismatch"},
	{frame.ErrUnknownCompression, "unknown_compression"},
}

// ErrorKind maps err to a low-cardinality metric label. The innermost
// codec error decides; anything unrecognised is "other".
func ErrorKind(err error) string {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "other"
}

// WriteTextfile dumps the default registry in the node-exporter textfile
// format.
func WriteTextfile(path string) error {
	RegisterMetrics()
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
