package detect

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"regexp"

	"mlregistry.io/assetx/pkg/errors"
)

var urlPattern = regexp.MustCompile(`((http|https)://)(www\.)?[a-zA-Z0-9@:%._\+~#?&//=]{2,256}\.[a-z]{2,6}\b([-a-zA-Z0-9@:%._\+~#?&//=]*)`)

func isValidURL(text string) bool {
	return urlPattern.MatchString(text)
}

// normalizeImage turns an input image value into raw bytes. Accepted forms
// are raw bytes, a base64 string, or a fetchable http(s) URL string.
func (w *Wrapper) normalizeImage(ctx context.Context, image any) ([]byte, error) {
	switch v := image.(type) {
	case []byte:
		return v, nil
	case string:
		if isValidURL(v) {
			return w.fetchImage(ctx, v)
		}
		data, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			return nil, errors.NewUserInputError(fmt.Sprintf("image is neither a valid URL nor base64 data: %v", err))
		}
		return data, nil
	default:
		return nil, errors.NewUserInputError(fmt.Sprintf("unsupported image value of type %T", image))
	}
}

func (w *Wrapper) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewUserInputError(fmt.Sprintf("invalid image URL %s: %v", url, err))
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewUserInputError(fmt.Sprintf("fetch image %s: %v", url, err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewUserInputError(fmt.Sprintf("fetch image %s: status %s", url, resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUserInputError(fmt.Sprintf("read image %s: %v", url, err))
	}
	return data, nil
}
