package service

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"devgate/internal/config"
	"devgate/internal/mimetype"
	"devgate/internal/model"
)

// ErrNotFound is returned for any path that cannot be served: missing files,
// directories without an index, permission failures and escape attempts all
// collapse into it so responses never leak filesystem structure.
var ErrNotFound = errors.New("file not found")

// StaticService opens files under a fixed root directory for streaming.
type StaticService struct {
	root       string
	serveIndex bool
	table      mimetype.Table
	logger     *slog.Logger
}

// NewStaticService creates a StaticService rooted at cfg.Static.Root. The
// root is resolved to an absolute path once so the per-request confinement
// check is a plain prefix comparison.
func NewStaticService(cfg *config.Config, logger *slog.Logger) (*StaticService, error) {
	root, err := filepath.Abs(cfg.Static.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve static root %q: %w", cfg.Static.Root, err)
	}

	return &StaticService{
		root:       root,
		serveIndex: cfg.Static.ServeIndexEnabled(),
		table:      mimetype.New(cfg.Static.MimeTypes),
		logger:     logger.With("component", "static_service"),
	}, nil
}

// Open resolves urlPath under the root and opens the file for streaming.
// Directories resolve to their index.html when index serving is enabled.
// The caller owns the returned body and must close it.
func (s *StaticService) Open(urlPath string) (*model.StaticFile, error) {
	fsPath, err := s.resolve(urlPath)
	if err != nil {
		return nil, err
	}

	f, info, err := s.openFile(fsPath)
	if err != nil {
		return nil, err
	}

	if info.IsDir() {
		_ = f.Close()
		if !s.serveIndex {
			return nil, ErrNotFound
		}
		fsPath = filepath.Join(fsPath, "index.html")
		if f, info, err = s.openFile(fsPath); err != nil {
			return nil, err
		}
		if info.IsDir() {
			_ = f.Close()
			return nil, ErrNotFound
		}
	}

	return &model.StaticFile{
		ContentType: s.table.Lookup(info.Name()),
		Size:        info.Size(),
		Body:        f,
	}, nil
}

// resolve maps a URL path to a filesystem path confined to the root.
// Cleaning the rooted URL path first means ".." segments can never climb
// above "/", and the prefix check catches anything else.
func (s *StaticService) resolve(urlPath string) (string, error) {
	clean := path.Clean("/" + urlPath)
	fsPath := filepath.Join(s.root, filepath.FromSlash(clean))

	if fsPath != s.root && !strings.HasPrefix(fsPath, s.root+string(filepath.Separator)) {
		s.logger.Warn("static path escapes root", "path", urlPath)
		return "", ErrNotFound
	}
	return fsPath, nil
}

func (s *StaticService) openFile(fsPath string) (*os.File, fs.FileInfo, error) {
	f, err := os.Open(fsPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("open static file", "path", fsPath, "error", err)
		}
		return nil, nil, ErrNotFound
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		s.logger.Warn("stat static file", "path", fsPath, "error", err)
		return nil, nil, ErrNotFound
	}

	return f, info, nil
}
