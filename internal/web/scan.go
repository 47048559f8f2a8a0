package web

import (
	"fmt"

	"github.com/mailsense/mailsense/internal/analysis"
)

// scanChunkSize is how many messages are analyzed between progress updates
const scanChunkSize = 10

// runScan fetches messages, analyzes them in chunks and persists the results.
// It runs on its own goroutine and stops when the job is cancelled.
func (s *Server) runScan(job *Job) {
	ctx := job.Context()
	logger := s.logger.With("job_id", job.ID)
	logger.Info("scan started", "days", job.Days, "limit", job.Limit)

	messages, err := s.scanner.Scan(ctx, job.Days, job.Limit)
	if err != nil {
		if ctx.Err() != nil {
			logger.Info("scan cancelled during fetch")
			return
		}
		logger.Error("scan failed", "error", err)
		job.StopWithError(fmt.Errorf("failed to fetch messages: %w", err))
		return
	}
	job.SetFetched(len(messages))

	raws := make([]analysis.RawEmail, len(messages))
	for i, msg := range messages {
		raws[i] = msg.RawEmail(logger)
	}

	analyzed, failed := 0, 0
	for start := 0; start < len(raws); start += scanChunkSize {
		if ctx.Err() != nil {
			logger.Info("scan cancelled", "analyzed", analyzed, "failed", failed)
			return
		}

		end := min(start+scanChunkSize, len(raws))
		results := s.analyzer.ProcessBatch(ctx, raws[start:end])

		var processed []*analysis.ProcessedEmail
		for _, res := range results {
			if res.Err != nil {
				failed++
				logger.Warn("failed to analyze message", "error", res.Err)
				continue
			}
			processed = append(processed, res.Email)
		}

		if s.store != nil && len(processed) > 0 {
			if err := s.store.SaveAll(ctx, processed); err != nil {
				if ctx.Err() != nil {
					return
				}
				logger.Error("failed to save scan results", "error", err)
				job.StopWithError(err)
				return
			}
		}

		analyzed += len(processed)
		job.Update(analyzed, failed)
	}

	job.Complete()
	logger.Info("scan completed", "fetched", len(messages), "analyzed", analyzed, "failed", failed)
}
