package logger

import "strings"

var allowedStatus = map[string]string{
	"ok":        "ok",
	"fail":      "fail",
	"skip":      "skip",
	"retry":     "retry",
	"error":     "error",
	"cancelled": "cancelled",
}

var allowedOutcome = map[string]string{
	"handled":   "handled",
	"unhandled": "unhandled",
	"error":     "error",
}

func normalizeLevel(level string) string {
	switch strings.ToLower(level) {
	case "debug":
		return "DEBUG"
	case "info", "":
		return "INFO"
	case "warn", "warning":
		return "WARN"
	case "error":
		return "ERROR"
	default:
		return strings.ToUpper(level)
	}
}

func normalizeStatus(status string) (string, bool) {
	status = strings.ToLower(strings.TrimSpace(status))
	if status == "" {
		return "", false
	}
	if mapped, ok := allowedStatus[status]; ok {
		return mapped, true
	}
	return status, false
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	if outcome == "" {
		return "", false
	}
	val, ok := allowedOutcome[outcome]
	return val, ok
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"ts_unix_nano",
	"chat_id",
	"key",
	"handler",
	"op",
	"method",
	"outcome",
	"duration_ms",
	"format",
	"backend",
	"driver",
	"kb",
	"count",
	"workers",
	"queue",
	"found",
	"mode",
	"listen",
	"public_url",
	"db",
	"pool_open",
	"from_ver",
	"to_ver",
	"err",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
}
