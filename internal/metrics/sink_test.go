package metrics

import (
	"testing"
	"time"
)

func TestNoopSinkSatisfiesInterface(t *testing.T) {
	var s Sink = NoopSink{}
	s.ObserveDuration(ModelLoadDurationSeconds, 10*time.Millisecond, LoadLabels("local/onnx", "embed"))
	s.IncrCounter(ModelLoadTotal, LoadResultLabels("local/onnx", "embed", ResultSuccess))
}

func TestLoadResultLabels(t *testing.T) {
	labels := LoadResultLabels("remote/openai", "generate", ResultFailure)
	want := map[string]string{"provider": "remote/openai", "task": "generate", "result": "failure"}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("labels[%q] = %q, want %q", k, labels[k], v)
		}
	}
}

func TestInferenceLabels(t *testing.T) {
	labels := InferenceLabels("rerank/docs", "rerank", "local/onnx")
	if labels["alias"] != "rerank/docs" || labels["provider"] != "local/onnx" || labels["task"] != "rerank" {
		t.Errorf("InferenceLabels() = %v, want alias/task/provider triple", labels)
	}
}

func TestInferenceResultLabels(t *testing.T) {
	labels := InferenceResultLabels("rerank/docs", "rerank", "local/onnx", ResultFailure)
	want := map[string]string{"alias": "rerank/docs", "task": "rerank", "provider": "local/onnx", "status": "failure"}
	for k, v := range want {
		if labels[k] != v {
			t.Errorf("labels[%q] = %q, want %q", k, labels[k], v)
		}
	}
}
