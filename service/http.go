package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// HTTPGetWithAuth gets the body of the url. A status 429 or 5xx returns a temporary error
func HTTPGetWithAuth(ctx context.Context, client *http.Client, url, authName, authPswd, authToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet: %w", err)
	}
	resp, err := doWithAuth(client, req, authName, authPswd, authToken)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("HTTPGet.ReadAll: %w", err)
	}
	if err := statusError(resp, body); err != nil {
		return nil, fmt.Errorf("HTTPGet %s: %w", url, err)
	}
	return body, nil
}

// HTTPHead checks that the url is reachable
func HTTPHead(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return fmt.Errorf("HTTPHead: %w", err)
	}
	resp, err := doWithAuth(client, req, "", "", "")
	if err != nil {
		return fmt.Errorf("HTTPHead: %w", err)
	}
	resp.Body.Close()
	if err := statusError(resp, nil); err != nil {
		return fmt.Errorf("HTTPHead %s: %w", url, err)
	}
	return nil
}

func statusError(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	err := fmt.Errorf("%s: %s", resp.Status, body)
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return MakeTemporary(err)
	}
	return err
}

func doWithAuth(client *http.Client, req *http.Request, authName, authPswd, authToken string) (*http.Response, error) {
	if authName != "" {
		req.SetBasicAuth(authName, authPswd)
	}
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}
