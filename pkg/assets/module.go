package assets

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type ArchiveFile struct {
	Path string
	Data []byte
}

// PackArchive zips files into a single pack archive.
func PackArchive(files []ArchiveFile) ([]byte, error) {
	var buffer bytes.Buffer
	writer := zip.NewWriter(&buffer)

	for _, asset := range files {
		file, err := writer.Create(asset.Path)
		if err != nil {
			return nil, err
		}

		_, err = file.Write(asset.Data)
		if err != nil {
			return nil, err
		}
	}

	err := writer.Close()
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// ExtractArchive unpacks a pack archive into dir and returns the number of
// bytes written.
func ExtractArchive(data []byte, dir string) (int64, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return 0, err
	}

	var written int64
	for _, file := range reader.File {
		target := filepath.Join(root, filepath.FromSlash(file.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return written, fmt.Errorf("archive entry %s escapes %s", file.Name, dir)
		}

		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return written, err
		}

		n, err := extractFile(file, target)
		written += n
		if err != nil {
			return written, err
		}
	}

	return written, nil
}

func extractFile(file *zip.File, target string) (int64, error) {
	in, err := file.Open()
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	return io.Copy(out, in)
}
