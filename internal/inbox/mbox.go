package inbox

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/emersion/go-mbox"
)

// ReadMbox parses every message in an mbox stream. Messages that fail to
// parse and messages flagged deleted (Status: D) are skipped.
func ReadMbox(r io.Reader, logger *slog.Logger) ([]*Message, error) {
	var messages []*Message
	reader := mbox.NewReader(r)

	for i := 0; ; i++ {
		mr, err := reader.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return messages, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}

		raw, err := io.ReadAll(mr)
		if err != nil {
			return messages, fmt.Errorf("failed to read mbox message %d: %w", i, err)
		}
		if isDeleted(raw) {
			continue
		}

		msg, err := ParseMessage(bytes.NewReader(raw))
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unparseable mbox message", "index", i, "error", err)
			}
			continue
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// ReadMboxFile opens path and reads it with ReadMbox
func ReadMboxFile(path string, logger *slog.Logger) ([]*Message, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open mbox: %w", err)
	}
	defer f.Close()

	return ReadMbox(f, logger)
}

// isDeleted reports whether the header block carries a Status flag containing D
func isDeleted(raw []byte) bool {
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			return false // End of headers
		}
		name, value, ok := strings.Cut(line, ":")
		if ok && strings.EqualFold(strings.TrimSpace(name), "Status") {
			return strings.Contains(strings.TrimSpace(value), "D")
		}
	}
	return false
}
