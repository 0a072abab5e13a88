package mqtt

import "strings"

// Retained payloads on the status topic
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// FrameTopic joins the configured frame topic prefix with an optional
// dataset revision so subscribers can follow one dataset only.
// Pattern: {base}[/{revision}]
func FrameTopic(base, revision string) string {
	base = strings.TrimRight(base, "/")
	if revision == "" {
		return base
	}
	return base + "/" + revision
}

// StatusTopic carries the publisher's retained availability.
// Pattern: {base}/status
func StatusTopic(base string) string {
	return strings.TrimRight(base, "/") + "/status"
}
