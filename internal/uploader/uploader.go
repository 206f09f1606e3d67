// Package uploader implements the stateless HTTPS client that writes clip
// rows and oversized HAR blobs to the configured Supabase-compatible remote
// store (spec sections 4.5 and 6).
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/browserclip/engine/internal/errs"
	"github.com/browserclip/engine/internal/model"
	"github.com/sirupsen/logrus"
)

// BucketName is the storage bucket clip blobs are uploaded into.
const BucketName = "clips"

const requestTimeout = 30 * time.Second

// Uploader is a stateless per-request HTTPS client for one configured
// endpoint/key pair. Endpoint and key are read fresh from config on every
// call rather than cached, since either may change between requests.
type Uploader struct {
	client *http.Client
	log    *logrus.Entry

	endpointURL func() string
	endpointKey func() string
}

// New builds an Uploader that reads the endpoint URL and key via the given
// accessors at call time (normally config.Config.Snapshot fields).
func New(endpointURL, endpointKey func() string, log *logrus.Logger) *Uploader {
	if log == nil {
		log = logrus.New()
	}
	return &Uploader{
		client:      &http.Client{Transport: newSSRFSafeTransport(), Timeout: requestTimeout},
		log:         log.WithField("component", "uploader"),
		endpointURL: endpointURL,
		endpointKey: endpointKey,
	}
}

func (u *Uploader) endpoint() (url, key string, err error) {
	url, key = u.endpointURL(), u.endpointKey()
	if url == "" || key == "" {
		return "", "", errs.New(errs.KindConfigMissing, "endpoint_url/endpoint_key not configured")
	}
	return url, key, nil
}

func (u *Uploader) do(req *http.Request, key string) ([]byte, int, error) {
	req.Header.Set("apikey", key)
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("uploader: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("uploader: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return body, resp.StatusCode, errs.RemoteStore(resp.StatusCode, string(body))
	}
	return body, resp.StatusCode, nil
}

// UploadBlob POSTs the serialized HAR bytes to the configured storage
// bucket under filename and returns the storage path recorded on the clip
// row (spec section 6).
func (u *Uploader) UploadBlob(ctx context.Context, filename string, data []byte) (string, error) {
	endpoint, key, err := u.endpoint()
	if err != nil {
		return "", err
	}

	storagePath := BucketName + "/" + filename
	reqURL := endpoint + "/storage/v1/object/" + storagePath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("uploader: building blob request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("x-upsert", "true")

	if _, _, err := u.do(req, key); err != nil {
		return "", err
	}
	return storagePath, nil
}

// UploadRow POSTs a clip row to the clips table and returns the row's
// generated identifier (spec section 6).
func (u *Uploader) UploadRow(ctx context.Context, row model.ClipRecord) (string, error) {
	endpoint, key, err := u.endpoint()
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(row)
	if err != nil {
		return "", fmt.Errorf("uploader: marshaling row: %w", err)
	}

	reqURL := endpoint + "/rest/v1/clips"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("uploader: building row request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=representation")

	respBody, _, err := u.do(req, key)
	if err != nil {
		return "", err
	}

	var rows []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &rows); err != nil || len(rows) == 0 {
		u.log.WithError(err).Warn("clip row accepted but response id could not be parsed")
		return "", nil
	}
	return rows[0].ID, nil
}

// TestConnection validates the configured endpoint host (SSRF check) and
// parses the endpoint key as a Supabase JWT to report its role and expiry,
// without making any request that touches clip data.
func (u *Uploader) TestConnection(ctx context.Context) (ConnectionStatus, error) {
	endpoint, key, err := u.endpoint()
	if err != nil {
		return ConnectionStatus{}, err
	}
	if err := validateEndpointURL(ctx, endpoint); err != nil {
		return ConnectionStatus{}, fmt.Errorf("uploader: endpoint validation: %w", err)
	}
	return inspectKey(key)
}
