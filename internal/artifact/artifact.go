// Package artifact retrieves the files produced inside a sandbox to local storage.
package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
)

const stampLayout = "2006-01-02T15:04:05.000Z"

// Stamp returns the filesystem safe UTC timestamp used in artifact names.
func Stamp(t time.Time) string {
	s := t.UTC().Format(stampLayout)
	return strings.NewReplacer(":", "-", ".", "-").Replace(s)
}

// FileName returns the local artifact filename.
func FileName(prefix string, kind model.ArtifactKind, t time.Time) string {
	return fmt.Sprintf("%s-%s.%s", prefix, Stamp(t), kind.Ext())
}

var expectedMIME = map[model.ArtifactKind]string{
	model.ArtifactKindVideo:      "video/webm",
	model.ArtifactKindScreenshot: "image/png",
}

// Request describes the artifact to retrieve.
type Request struct {
	Kind       model.ArtifactKind
	RemotePath string
	// Prefix is the local filename prefix.
	Prefix string
}

func (r Request) validate() error {
	if r.RemotePath == "" {
		return fmt.Errorf("remote path is required: %w", model.ErrNotValid)
	}
	if r.Prefix == "" {
		return fmt.Errorf("prefix is required: %w", model.ErrNotValid)
	}
	return nil
}

// RetrieverConfig is the configuration of a Retriever.
type RetrieverConfig struct {
	// Dir is the local artifact directory, created when missing.
	Dir    string
	Now    func() time.Time
	Logger log.Logger
}

func (c *RetrieverConfig) defaults() error {
	if c.Dir == "" {
		return fmt.Errorf("dir is required")
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "artifact.Retriever"})
	return nil
}

// Retriever copies sandbox artifacts to a local directory.
type Retriever struct {
	dir    string
	now    func() time.Time
	logger log.Logger
}

// NewRetriever returns a new artifact retriever.
func NewRetriever(cfg RetrieverConfig) (*Retriever, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Retriever{
		dir:    cfg.Dir,
		now:    cfg.Now,
		logger: cfg.Logger,
	}, nil
}

// Retrieve reads the remote artifact and stores it in the local directory.
func (r *Retriever) Retrieve(ctx context.Context, sb sandbox.Sandbox, req Request) (*model.Artifact, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	data, err := r.read(ctx, sb, req.RemotePath)
	if err != nil {
		return nil, err
	}

	return r.Save(req, data)
}

// Save stores artifact data produced outside the sandbox filesystem (e.g. a browser screenshot).
// The request remote path names the artifact source.
func (r *Retriever) Save(req Request, data []byte) (*model.Artifact, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("artifact %s is empty: %w", req.RemotePath, model.ErrNotValid)
	}

	mime := mimetype.Detect(data)
	if exp, ok := expectedMIME[req.Kind]; ok && !mime.Is(exp) {
		r.logger.Warningf("Artifact %s looks like %s, expected %s", req.RemotePath, mime.String(), exp)
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create artifact dir: %w", err)
	}
	localPath := filepath.Join(r.dir, FileName(req.Prefix, req.Kind, r.now()))
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("could not write artifact: %w", err)
	}
	r.logger.Debugf("Artifact %s stored at %s", req.RemotePath, localPath)

	return &model.Artifact{
		Kind:       req.Kind,
		RemotePath: req.RemotePath,
		LocalPath:  localPath,
		Bytes:      len(data),
		MIME:       mime.String(),
	}, nil
}

func (r *Retriever) read(ctx context.Context, sb sandbox.Sandbox, path string) ([]byte, error) {
	h, err := sb.Open(ctx, path, sandbox.FileModeRead)
	if err != nil {
		return nil, fmt.Errorf("could not open remote artifact %s: %w", path, err)
	}

	data, err := h.Read(ctx)
	if err != nil {
		_ = h.Close(ctx)
		return nil, fmt.Errorf("could not read remote artifact %s: %w", path, err)
	}

	if err := h.Close(ctx); err != nil {
		return nil, fmt.Errorf("could not close remote artifact %s: %w", path, err)
	}

	return data, nil
}
