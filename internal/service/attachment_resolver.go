package service

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-client/internal/api/http"
	"github.com/spec-kit/helpdesk-client/internal/domain"
	"github.com/spec-kit/helpdesk-client/pkg/util/errorutil"
)

// Downloader fetches absolute URLs, optionally with the session token.
type Downloader interface {
	Download(ctx context.Context, rawURL string, authenticated bool) (httptransport.Blob, error)
}

// Opener hands files and links to whatever displays them.
type Opener interface {
	// View shows a local file.
	View(ctx context.Context, path, contentType string) error
	// Browse opens a remote URL directly.
	Browse(ctx context.Context, rawURL string) error
}

// OpenMode says how an attachment ended up being opened.
type OpenMode string

const (
	OpenViewed     OpenMode = "viewed"
	OpenDownloaded OpenMode = "downloaded"
	OpenDirect     OpenMode = "direct"
)

// OpenResult describes an opened attachment.
type OpenResult struct {
	Mode        OpenMode
	URL         string
	Path        string
	ContentType string
}

// ResolveURL turns an attachment path into an absolute URL. Absolute http(s)
// URLs pass through. Relative paths are placed under the storage root, which
// is the API base without a trailing /api.
func ResolveURL(pathOrURL, apiBase string) string {
	p := strings.TrimSpace(pathOrURL)
	if p == "" {
		return ""
	}
	lower := strings.ToLower(p)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return p
	}
	p = strings.TrimLeft(p, "/")
	root := strings.TrimRight(strings.TrimSpace(apiBase), "/")
	root = strings.TrimSuffix(root, "/api")
	if !strings.HasPrefix(p, "storage/") {
		p = "storage/" + p
	}
	return root + "/" + p
}

// AttachmentResolver opens ticket and chat attachments.
type AttachmentResolver struct {
	downloader  Downloader
	opener      Opener
	apiBase     string
	downloadDir string
	logger      *zap.Logger
}

// NewAttachmentResolver builds a resolver. Non-viewable files are saved
// into downloadDir.
func NewAttachmentResolver(downloader Downloader, opener Opener, apiBase, downloadDir string, logger *zap.Logger) *AttachmentResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentResolver{
		downloader:  downloader,
		opener:      opener,
		apiBase:     apiBase,
		downloadDir: downloadDir,
		logger:      logger,
	}
}

// URL resolves the location of att.
func (r *AttachmentResolver) URL(att domain.Attachment) string {
	return ResolveURL(att.Location(), r.apiBase)
}

// Open fetches att with the session token. Images and PDFs are viewed from
// a temporary file, anything else is saved to the download directory. When
// the fetch fails the resolved URL is opened directly without credentials.
func (r *AttachmentResolver) Open(ctx context.Context, att domain.Attachment) (OpenResult, error) {
	target := r.URL(att)
	if target == "" {
		return OpenResult{}, errorutil.NewNotFound("attachment", map[string]any{"id": att.ID})
	}

	blob, err := r.downloader.Download(ctx, target, true)
	if err != nil {
		r.logger.Info("authenticated fetch failed, opening link directly",
			zap.String("url", target), zap.Error(err))
		return r.direct(ctx, target)
	}

	contentType := mediaType(blob.ContentType)
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := guessType(att); guessed != "" {
			contentType = guessed
		}
	}

	if viewable(contentType) {
		path, err := writeTemp(att.Name(), blob.Data)
		if err != nil {
			r.logger.Warn("temporary file failed", zap.Error(err))
			return r.direct(ctx, target)
		}
		if err := r.opener.View(ctx, path, contentType); err != nil {
			return OpenResult{}, err
		}
		return OpenResult{Mode: OpenViewed, URL: target, Path: path, ContentType: contentType}, nil
	}

	path, err := r.save(att.Name(), blob.Data)
	if err != nil {
		r.logger.Warn("saving download failed", zap.String("dir", r.downloadDir), zap.Error(err))
		return r.direct(ctx, target)
	}
	r.logger.Info("attachment saved", zap.String("path", path), zap.Int("bytes", len(blob.Data)))
	return OpenResult{Mode: OpenDownloaded, URL: target, Path: path, ContentType: contentType}, nil
}

func (r *AttachmentResolver) direct(ctx context.Context, target string) (OpenResult, error) {
	if err := r.opener.Browse(ctx, target); err != nil {
		return OpenResult{}, err
	}
	return OpenResult{Mode: OpenDirect, URL: target}, nil
}

// save writes data under the download directory without overwriting an
// existing file.
func (r *AttachmentResolver) save(name string, data []byte) (string, error) {
	dir := r.downloadDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name = filepath.Base(filepath.Clean("/" + name))
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	path := filepath.Join(dir, name)
	for i := 1; ; i++ {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if os.IsExist(err) {
			path = filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
			continue
		}
		if err != nil {
			return "", err
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			return "", err
		}
		return path, f.Close()
	}
}

func writeTemp(name string, data []byte) (string, error) {
	f, err := os.CreateTemp("", "helpdesk-*"+filepath.Ext(name))
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	return f.Name(), f.Close()
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}

func guessType(att domain.Attachment) string {
	if att.MimeType != "" {
		return mediaType(att.MimeType)
	}
	return mediaType(mime.TypeByExtension(strings.ToLower(filepath.Ext(att.Name()))))
}

func viewable(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}
