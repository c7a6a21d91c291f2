package logger

import "strings"

var levelNames = map[string]string{
	"debug":   "DEBUG",
	"info":    "INFO",
	"warn":    "WARN",
	"warning": "WARN",
	"error":   "ERROR",
}

// Closed vocabularies. Unknown status values are kept verbatim, unknown outcomes are dropped.
var (
	knownStatus = map[string]struct{}{
		"ok": {}, "fail": {}, "skip": {}, "retry": {}, "rate_limited": {}, "cancelled": {},
	}
	knownOutcome = map[string]struct{}{
		"ok": {}, "fail": {}, "cancelled": {}, "no_image": {}, "unavailable": {}, "rate_limited": {},
	}
)

func normalizeLevel(level string) string {
	if level == "" {
		return "INFO"
	}
	if mapped, ok := levelNames[strings.ToLower(level)]; ok {
		return mapped
	}
	return strings.ToUpper(level)
}

func normalizeEnums(fields map[string]any) {
	if s, ok := fields["status"].(string); ok && s != "" {
		lower := strings.ToLower(strings.TrimSpace(s))
		if _, known := knownStatus[lower]; known {
			fields["status"] = lower
		}
	}
	if o, ok := fields["outcome"].(string); ok {
		lower := strings.ToLower(strings.TrimSpace(o))
		if _, known := knownOutcome[lower]; known {
			fields["outcome"] = lower
		} else {
			delete(fields, "outcome")
		}
	}
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"chat_type",
	"handler",
	"op",
	"command",
	"cb_key",
	"outcome",
	"duration_ms",
	"model",
	"aspect_ratio",
	"image_size",
	"mime_type",
	"bytes",
	"prompt_len",
	"placeholder_id",
	"mode",
	"listen",
	"public_url",
	"driver",
	"db",
	"host",
	"port",
	"job",
	"removed",
	"err",
	"retryable",
	"attempts",
	"backoff_ms",
}
