package chartmeshctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spf13/cobra"
)

func newRemoteCommand(name, short, method, path string, remote *remoteFlags, client func() *http.Client, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			endpoint := strings.TrimRight(remote.baseURL, "/") + path
			code, responseBody, err := doRequest(cmd.Context(), client(), method, endpoint, remote.apiKey, remote.clientID)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			if code >= 400 {
				return fmt.Errorf("http %d: %s", code, strings.TrimSpace(string(responseBody)))
			}
			if pretty, ok := prettyJSON(responseBody); ok {
				_, _ = fmt.Fprintln(stdout, pretty)
				return nil
			}
			if len(responseBody) > 0 {
				_, _ = fmt.Fprintln(stdout, string(responseBody))
			}
			return nil
		},
	}
}

func doRequest(ctx context.Context, client *http.Client, method, url, apiKey, clientID string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}
	if strings.TrimSpace(clientID) != "" {
		req.Header.Set("X-Client-ID", strings.TrimSpace(clientID))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}
