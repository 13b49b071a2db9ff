package probe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

const maxResponseBytes = 1 << 20

// Remote POSTs the initialize request to url. Any 2xx status is reachable;
// the server name is taken from a JSON body or from the first SSE data
// frame that carries it.
func (p *Prober) Remote(ctx context.Context, url string) (*Result, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.httpTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, strings.NewReader(InitializeRequest))
	if err != nil {
		return unreachable("invalid request: %v", err), nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return unreachable("%v", err), ctx.Err()
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return unreachable("server returned HTTP %d", resp.StatusCode), nil
	}

	return reachable(readServerName(resp), fmt.Sprintf("HTTP %d", resp.StatusCode)), nil
}

func readServerName(resp *http.Response) string {
	body := io.LimitReader(resp.Body, maxResponseBytes)

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "text/event-stream" {
		// The stream may stay open; stop at the first useful frame.
		return scanEvents(body)
	}

	data, _ := io.ReadAll(body)
	if name := serverNameFromJSON(bytes.TrimSpace(data)); name != "" {
		return name
	}
	return scanEvents(bytes.NewReader(data))
}

func scanEvents(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxResponseBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		if name := serverNameFromJSON([]byte(strings.TrimSpace(data))); name != "" {
			return name
		}
	}
	return ""
}

func serverNameFromJSON(data []byte) string {
	var msg struct {
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if len(data) == 0 || json.Unmarshal(data, &msg) != nil {
		return ""
	}
	return msg.Result.ServerInfo.Name
}
