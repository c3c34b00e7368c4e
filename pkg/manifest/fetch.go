package manifest

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cfoust/assetpacks/pkg/assets"
)

type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Source names the manifest for log and warning messages.
	Source() string
}

// FileFetcher reads the first manifest that exists among Paths.
type FileFetcher struct {
	Paths []string
}

func (f *FileFetcher) Source() string {
	if len(f.Paths) == 0 {
		return FILENAME
	}
	return f.Paths[0]
}

func (f *FileFetcher) Fetch(ctx context.Context) ([]byte, error) {
	problems := make([]string, 0, len(f.Paths))
	for _, path := range f.Paths {
		if !assets.FileExists(path) {
			problems = append(problems, path)
			continue
		}

		// Unreadable paths (directories, permissions) fall through to the next.
		data, err := os.ReadFile(path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s (%v)", path, err))
			continue
		}
		return data, nil
	}

	return nil, fmt.Errorf(
		"%w: tried %s",
		assets.Missing,
		strings.Join(problems, ", "),
	)
}

// URLFetcher requests the manifest through the HTTP client, which is how
// deployed builds read files packaged with the application.
type URLFetcher struct {
	URL    string
	Client *http.Client
}

// NewClient returns a client that also serves file:// URLs from the local
// filesystem.
func NewClient() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.RegisterProtocol("file", http.NewFileTransport(http.Dir("/")))
	return &http.Client{Transport: transport}
}

func (u *URLFetcher) Source() string {
	return u.URL
}

func (u *URLFetcher) Fetch(ctx context.Context) ([]byte, error) {
	client := u.Client
	if client == nil {
		client = NewClient()
	}

	return assets.DownloadBytes(ctx, client, u.URL)
}

var _ Fetcher = (*FileFetcher)(nil)
var _ Fetcher = (*URLFetcher)(nil)
