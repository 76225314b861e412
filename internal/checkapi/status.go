package checkapi

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"check-review-gateway/internal/models"
)

// StreamStatus follows the processing status event stream of a batch and calls
// fn for every event until a terminal status arrives, fn returns false, or the
// stream ends.
func (c *Client) StreamStatus(ctx context.Context, batchID int, fn func(models.ProcessingStatus) bool) error {
	requestURL := fmt.Sprintf("%s/api/status/%d", c.baseURL, batchID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")

	// The stream outlives the request timeout of the shared client.
	streamClient := *c.httpClient
	streamClient.Timeout = 0

	resp, err := streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("stream status %d: %w", batchID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream status %d: %w", batchID, &StatusError{StatusCode: resp.StatusCode})
	}

	scanner := bufio.NewScanner(resp.Body)
	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		case line == "" && data.Len() > 0:
			var status models.ProcessingStatus
			if err := json.Unmarshal([]byte(data.String()), &status); err != nil {
				return fmt.Errorf("parse status event: %w", err)
			}
			data.Reset()
			if !fn(status) || status.Terminal() {
				return nil
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read status stream: %w", err)
	}
	return nil
}
