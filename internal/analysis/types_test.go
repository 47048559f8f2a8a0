package analysis

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestReceivedAtJSON(t *testing.T) {
	received := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{name: "raw without date", value: RawEmail{ID: "1"}, want: false},
		{name: "raw with date", value: RawEmail{ID: "1", ReceivedAt: received}, want: true},
		{name: "processed without date", value: ProcessedEmail{ID: "1"}, want: false},
		{name: "processed with date", value: ProcessedEmail{ID: "1", ReceivedAt: received}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.value)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			out := string(data)
			if got := strings.Contains(out, `"received_at"`); got != tt.want {
				t.Errorf("got received_at present %v, want %v: %s", got, tt.want, out)
			}
			if strings.Contains(out, "0001-01-01") {
				t.Errorf("zero time leaked into %s", out)
			}
		})
	}
}
