package toolexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/clinicore/clinicore/pkg/utils/json"
)

// callAPI invokes a remote tool endpoint. The method is chosen by the
// arguments: GET when empty, POST with a JSON body otherwise. The call is
// bounded by the API timeout; timeouts, transport failures, and HTTP >=400
// responses are classified into distinct error envelopes.
func (e *Executor) callAPI(ctx context.Context, endpoint string, args map[string]any) Envelope {
	reqCtx, cancel := context.WithTimeout(ctx, e.opts.APITimeout)
	defer cancel()

	var req *http.Request
	var err error
	if len(args) == 0 {
		req, err = http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	} else {
		var body []byte
		body, err = json.Marshal(args)
		if err != nil {
			return errorEnvelope(fmt.Sprintf("failed to encode arguments: %v", err))
		}
		req, err = http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
		if req != nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return errorEnvelope(fmt.Sprintf("request error: %v", err))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return errorEnvelope(fmt.Sprintf("timeout after %s calling %s", e.opts.APITimeout, endpoint))
		}
		return errorEnvelope(fmt.Sprintf("request error: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		if isTimeout(err) {
			return errorEnvelope(fmt.Sprintf("timeout after %s calling %s", e.opts.APITimeout, endpoint))
		}
		return errorEnvelope(fmt.Sprintf("request error: %v", err))
	}

	if resp.StatusCode >= 400 {
		return errorEnvelope(fmt.Sprintf("HTTP %d from %s: %s", resp.StatusCode, endpoint, excerpt(string(body), 500)))
	}
	return successEnvelope(string(body))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
