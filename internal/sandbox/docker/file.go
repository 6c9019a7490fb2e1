package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"

	"github.com/slok/sbxsmoke/internal/model"
)

var errWrongMode = errors.New("operation not allowed on this file mode")

// readHandle reads a whole file from the container.
type readHandle struct {
	client      DockerClient
	containerID string
	path        string
	closed      bool
}

func (h *readHandle) Read(ctx context.Context) ([]byte, error) {
	if h.closed {
		return nil, fmt.Errorf("file %s is closed", h.path)
	}

	rc, stat, err := h.client.CopyFromContainer(ctx, h.containerID, h.path)
	if err != nil {
		if strings.Contains(err.Error(), "No such container:path") || strings.Contains(err.Error(), "Could not find the file") {
			return nil, fmt.Errorf("file %s: %w", h.path, model.ErrNotFound)
		}
		return nil, fmt.Errorf("could not copy %s from container: %w", h.path, err)
	}
	defer rc.Close()

	if stat.Mode.IsDir() {
		return nil, fmt.Errorf("%s is a directory: %w", h.path, model.ErrNotValid)
	}

	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil, fmt.Errorf("file %s missing in container archive: %w", h.path, model.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("could not read container archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		data, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("could not read %s: %w", h.path, err)
		}
		return data, nil
	}
}

func (h *readHandle) Write(context.Context, []byte) error { return errWrongMode }
func (h *readHandle) Flush(context.Context) error         { return errWrongMode }

func (h *readHandle) Close(context.Context) error {
	h.closed = true
	return nil
}

// writeHandle buffers the content and uploads it to the container on flush, every flush
// replaces the whole file.
type writeHandle struct {
	client      DockerClient
	containerID string
	path        string
	buf         bytes.Buffer
	dirty       bool
	closed      bool
}

func (h *writeHandle) Read(context.Context) ([]byte, error) { return nil, errWrongMode }

func (h *writeHandle) Write(_ context.Context, data []byte) error {
	if h.closed {
		return fmt.Errorf("file %s is closed", h.path)
	}
	h.buf.Write(data)
	h.dirty = true
	return nil
}

func (h *writeHandle) Flush(ctx context.Context) error {
	if h.closed {
		return fmt.Errorf("file %s is closed", h.path)
	}

	archive, err := tarFile(path.Base(h.path), h.buf.Bytes())
	if err != nil {
		return err
	}

	err = h.client.CopyToContainer(ctx, h.containerID, path.Dir(h.path), archive, container.CopyToContainerOptions{})
	if err != nil {
		return fmt.Errorf("could not copy %s to container: %w", h.path, err)
	}
	h.dirty = false

	return nil
}

func (h *writeHandle) Close(ctx context.Context) error {
	if h.closed {
		return nil
	}
	if h.dirty {
		if err := h.Flush(ctx); err != nil {
			return err
		}
	}
	h.closed = true
	return nil
}

func tarFile(name string, data []byte) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("could not write archive header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return nil, fmt.Errorf("could not write archive content: %w", err)
	}
	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("could not close archive: %w", err)
	}

	return &buf, nil
}
