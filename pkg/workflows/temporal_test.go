package workflows

import (
	"bytes"
	"encoding/json"
	"testing"

	temporallog "go.temporal.io/sdk/log"

	"github.com/ghuser/stockledger/pkg/logger"
)

func TestTemporalLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := newTemporalLogger(logger.NewWithWriter(&buf, "debug"))

	withLogger, ok := l.(temporallog.WithLogger)
	if !ok {
		t.Fatal("temporalLogger does not implement WithLogger")
	}
	withLogger.With("workflow_id", "low-stock-1").Info("workflow started")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("invalid log line %q: %v", buf.String(), err)
	}
	if line["msg"] != "workflow started" || line["workflow_id"] != "low-stock-1" || line["component"] != "temporal" {
		t.Fatalf("unexpected log line: %v", line)
	}
}
