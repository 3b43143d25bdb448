package ready

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/matgreaves/sitectl/internal/spec"
)

// HTTP checks readiness by making an HTTP GET request.
// Any response with status < 500 is considered ready; the service is
// answering, even if the path itself is a 404. A ws:// endpoint is
// probed the same way: realtime gateways answer plain HTTP on their
// listen port before the upgrade.
type HTTP struct {
	Path string // default "/"
}

func (h *HTTP) Check(ctx context.Context, ep spec.Endpoint) error {
	path := h.Path
	if path == "" {
		path = "/"
	}

	scheme := "http"
	if ep.Scheme == spec.HTTPS {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s%s", scheme, ep.HostPort(), path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 500 * time.Millisecond}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}
