// Package download fetches GGUF model files, typically from Hugging Face.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// Fetch downloads url into dir/targetFile unless it already exists, and
// returns the local path. A HUGGINGFACE_TOKEN in the environment is sent as a
// bearer token.
func Fetch(ctx context.Context, url, dir, targetFile string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	outPath := filepath.Join(dir, targetFile)
	if _, err := os.Stat(outPath); err == nil {
		// already exists
		return outPath, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	if tk := os.Getenv("HUGGINGFACE_TOKEN"); tk != "" {
		req.Header.Set("Authorization", "Bearer "+tk)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	// Write to a temp name first so a partial download never passes the
	// exists check on the next run.
	tmp, err := os.CreateTemp(dir, targetFile+".part-*")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), outPath); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return outPath, nil
}
