package security

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrImageTooLarge は画像が上限サイズを超えた場合のエラー。
	ErrImageTooLarge = errors.New("image exceeds size limit")
	// ErrNotAnImage は応答が画像でない場合のエラー。
	ErrNotAnImage = errors.New("response is not an image")
)

// ImageFetcher はユーザーが指定した画像URLから画像データを取得する。
type ImageFetcher interface {
	FetchImage(ctx context.Context, rawURL string) ([]byte, error)
}

// RemoteImageFetcher はSSRF防止付きクライアントで画像を取得するImageFetcher実装。
type RemoteImageFetcher struct {
	guard   SSRFGuardService
	client  *http.Client
	maxSize int64
}

// NewRemoteImageFetcher はRemoteImageFetcherを生成する。
// maxSizeを超える応答はErrImageTooLargeとして扱う。
func NewRemoteImageFetcher(guard SSRFGuardService, timeout time.Duration, maxSize int64) *RemoteImageFetcher {
	return &RemoteImageFetcher{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		maxSize: maxSize,
	}
}

// FetchImage は画像を取得する。
// Content-Typeがimage/*以外の場合はErrNotAnImageを返す。
func (f *RemoteImageFetcher) FetchImage(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.guard.ValidateURL(rawURL); err != nil {
		return nil, fmt.Errorf("image URL rejected: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image request returned status %d", resp.StatusCode)
	}

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		mediaType, _, err := mime.ParseMediaType(ct)
		if err != nil || !strings.HasPrefix(mediaType, "image/") {
			return nil, fmt.Errorf("%w: %s", ErrNotAnImage, ct)
		}
	}

	if resp.ContentLength > f.maxSize {
		return nil, ErrImageTooLarge
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, ErrImageTooLarge
	}

	return data, nil
}

// compile-time interface check
var _ ImageFetcher = (*RemoteImageFetcher)(nil)
