package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/descriptor"
)

const maxAssetSize = 50 << 20 // 50 MB

// Preferred extensions for common research payloads; anything else goes
// through mime.ExtensionsByType.
var knownExt = map[string]string{
	"application/json": ".json",
	"application/pdf":  ".pdf",
	"image/jpeg":       ".jpg",
	"image/png":        ".png",
	"text/csv":         ".csv",
	"text/plain":       ".txt",
	"text/markdown":    ".md",
}

// payload is a downloaded or decoded asset. name is a server-suggested file
// name, empty when none was offered.
type payload struct {
	data []byte
	mime string
	name string
}

type uploadResult struct {
	ProjectID string `json:"projectId"`
	URI       string `json:"uri"`
	Size      int    `json:"size"`
}

func (s *Server) uploadAsset(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var p *payload
	if strings.HasPrefix(source, "data:") {
		p, err = decodeDataURI(source)
	} else {
		p, err = download(ctx, source)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	name := assetName(optionalString(req, "filename"), source, p)
	overwrite, _ := req.RequireBool("overwrite")
	uri, err := s.svc.PutAsset(ctx, id, path.Join(optionalString(req, "dir"), name), p.data, overwrite)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("store asset: %v", err)), nil
	}

	out, _ := json.Marshal(uploadResult{ProjectID: id, URI: uri, Size: len(p.data)})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses data:<mime>[;params];base64,<data>.
func decodeDataURI(uri string) (*payload, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data URI has no comma separator")
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, errors.New("only base64 data URIs are accepted")
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, fmt.Errorf("data URI payload: %w", err)
		}
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("asset is %d bytes, limit is %d", len(data), maxAssetSize)
	}
	mt, _, _ := strings.Cut(strings.TrimSuffix(meta, ";base64"), ";")
	return &payload{data: data, mime: mt}, nil
}

func download(ctx context.Context, raw string) (*payload, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err := allowHost(u.Hostname()); err != nil {
		return nil, err
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(r *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return errors.New("stopped after 5 redirects")
			}
			return allowHost(r.URL.Hostname())
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize+1))
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	if len(data) > maxAssetSize {
		return nil, fmt.Errorf("asset exceeds %d bytes", maxAssetSize)
	}

	p := &payload{data: data}
	if mt, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type")); err == nil {
		p.mime = mt
	}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		p.name = params["filename"]
	}
	return p, nil
}

// allowHost refuses hosts that resolve to loopback, private, link-local or
// unspecified addresses.
func allowHost(host string) error {
	if host == "" {
		return errors.New("URL has no host")
	}
	if host == "metadata.google.internal" {
		return fmt.Errorf("blocked host %s", host)
	}
	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		resolved, err := net.LookupIP(host)
		if err != nil || len(resolved) == 0 {
			return nil //nolint:nilerr // the HTTP client reports DNS failures
		}
		ips = resolved
	}
	for _, ip := range ips {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
			return fmt.Errorf("blocked host %s (%s)", host, ip)
		}
	}
	return nil
}

// extFor maps a media type to a file extension, ".bin" when unknown.
func extFor(mt string) string {
	if ext, ok := knownExt[mt]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// assetName picks the stored file name: the caller's choice, then the
// server's Content-Disposition, then the URL path, then a random name with
// an extension derived from the media type.
func assetName(requested, source string, p *payload) string {
	for _, candidate := range []string{requested, p.name, urlBase(source)} {
		if name := cleanName(candidate); name != "" {
			return name
		}
	}
	return uuid.NewString() + extFor(p.mime)
}

func urlBase(source string) string {
	if strings.HasPrefix(source, "data:") {
		return ""
	}
	u, err := url.Parse(source)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if !strings.Contains(base, ".") {
		return ""
	}
	return base
}

// cleanName reduces a suggested name to a single path element that is legal
// on every platform, or "" when nothing usable remains.
func cleanName(name string) string {
	if name == "" {
		return ""
	}
	name = descriptor.SanitizeFolderName(filepath.Base(filepath.FromSlash(name)))
	if name == "" || name == "." || name == ".." {
		return ""
	}
	return name
}
