package selfupdate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
)

// downloadTo streams url into the file at dest. Extra headers are applied
// verbatim. onProgress, when non-nil, is called synchronously after every
// chunk with the byte count so far and the total from Content-Length
// (-1 when unknown). A partial file is removed on every failure; retries
// always restart from zero.
func downloadTo(ctx context.Context, client *http.Client, url string, headers http.Header, dest string, onProgress ProgressFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPStatusError{StatusCode: resp.StatusCode, URL: url}
	}

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	fail := func(err error) error {
		_ = f.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("download %s: %w", url, err)
	}

	total := resp.ContentLength // -1 when not declared
	var received int64
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return fail(werr)
			}
			received += int64(n)
			if onProgress != nil {
				onProgress(received, total)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return fail(rerr)
		}
	}

	if err := f.Sync(); err != nil {
		return fail(err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dest)
		return fmt.Errorf("download %s: %w", url, err)
	}
	return nil
}
