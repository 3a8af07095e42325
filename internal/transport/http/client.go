package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/light-bringer/procat-editor/internal/app/editor/autosave"
	"github.com/light-bringer/procat-editor/internal/app/editor/errclass"
	"github.com/light-bringer/procat-editor/internal/app/scenario/contracts"
)

const maxErrorBody = 64 << 10

// ErrPackageNotLoaded is returned when saving a package whose version was
// never read with Load.
var ErrPackageNotLoaded = errors.New("scenario package was not loaded")

// SectionClient talks to the scenario package API and produces autosave
// save functions. It tracks the last known version of each package and
// sends one save per package at a time so versions advance in order.
type SectionClient struct {
	baseURL string
	http    *http.Client

	mu       sync.Mutex
	versions map[string]int64
	locks    map[string]*sync.Mutex
}

// NewSectionClient creates a client for the API at baseURL.
func NewSectionClient(baseURL string, client *http.Client) *SectionClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &SectionClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     client,
		versions: make(map[string]int64),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Version returns the last version seen for packageID.
func (c *SectionClient) Version(packageID string) int64 {
	v, _ := c.version(packageID)
	return v
}

func (c *SectionClient) version(packageID string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.versions[packageID]
	return v, ok
}

// Load fetches a package and remembers its version.
func (c *SectionClient) Load(ctx context.Context, packageID string) (*contracts.PackageDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.packageURL(packageID), nil)
	if err != nil {
		return nil, err
	}
	var dto contracts.PackageDTO
	if err := c.do(req, &dto); err != nil {
		return nil, err
	}
	c.setVersion(packageID, dto.Version)
	return &dto, nil
}

// SaveFunc returns a save function for one section of packageID.
func (c *SectionClient) SaveFunc(packageID, section string) autosave.SaveFunc {
	return func(ctx context.Context, data any) error {
		return c.SaveSection(ctx, packageID, section, data)
	}
}

// SaveSection PUTs data as the section payload with the version read by
// Load. Non-2xx responses are returned as *errclass.ResponseError.
func (c *SectionClient) SaveSection(ctx context.Context, packageID, section string, data any) error {
	lock := c.packageLock(packageID)
	lock.Lock()
	defer lock.Unlock()

	version, ok := c.version(packageID)
	if !ok {
		return fmt.Errorf("save %s of %s: %w", section, packageID, ErrPackageNotLoaded)
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode section %s: %w", section, err)
	}
	body, err := json.Marshal(SaveSectionBody{Version: version, Data: payload})
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	u := c.packageURL(packageID) + "/sections/" + url.PathEscape(section)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var result SaveSectionResult
	if err := c.do(req, &result); err != nil {
		return err
	}
	c.setVersion(packageID, result.Version)
	return nil
}

func (c *SectionClient) do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &errclass.ResponseError{StatusCode: resp.StatusCode, Body: body, Header: resp.Header.Clone()}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *SectionClient) packageURL(packageID string) string {
	return c.baseURL + "/api/v1/scenario-packages/" + url.PathEscape(packageID)
}

func (c *SectionClient) setVersion(packageID string, v int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[packageID] = v
}

func (c *SectionClient) packageLock(packageID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[packageID]
	if !ok {
		l = &sync.Mutex{}
		c.locks[packageID] = l
	}
	return l
}
