package ai

import (
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var queryKeyPattern = regexp.MustCompile(`([&?]key)=([^&]+)`)

// logDebugger writes raw provider traffic to a zap logger at debug level
// with credentials masked.
type logDebugger struct {
	log     *zap.Logger
	secrets []string
}

func newLogDebugger(log *zap.Logger, secrets ...string) *logDebugger {
	d := &logDebugger{log: log}
	for _, s := range secrets {
		if s = strings.TrimSpace(s); s != "" {
			d.secrets = append(d.secrets, s)
		}
	}
	return d
}

func (d *logDebugger) redact(text string) string {
	if text == "" {
		return text
	}
	text = queryKeyPattern.ReplaceAllString(text, "$1=…")
	for _, secret := range d.secrets {
		text = strings.ReplaceAll(text, secret, "…")
	}
	return text
}

func (d *logDebugger) RawRequest(endpoint string, data []byte) {
	d.log.Debug("llm request", zap.String("endpoint", d.redact(endpoint)), zap.String("data", d.redact(string(data))))
}

func (d *logDebugger) RawEvent(data []byte) {
	d.log.Debug("llm event", zap.String("data", d.redact(string(data))))
}
