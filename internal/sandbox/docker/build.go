package docker

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/slok/sbxsmoke/internal/model"
)

// Dockerfile renders the Dockerfile of an image spec.
func Dockerfile(spec model.ImageSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s\n", spec.Base)
	for _, c := range spec.Commands {
		fmt.Fprintf(&b, "RUN %s\n", c)
	}
	return b.String()
}

// BuildImage builds the image with the docker CLI, the Dockerfile is passed through stdin
// so no build context is sent. Layers are cached by the daemon so builds are reused.
func (p *Platform) BuildImage(ctx context.Context, spec model.ImageSpec) (*model.Image, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	ref := fmt.Sprintf("%s:%s", p.imageRepository, spec.Fingerprint())
	p.logger.Infof("Building image %s from %s", ref, spec.Base)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, p.dockerBinary, "build", "--tag", ref, "-")
	cmd.Stdin = strings.NewReader(Dockerfile(spec))
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		// The build output is part of the error so callers can classify the failure.
		return nil, fmt.Errorf("image build failed: %w: %s", err, lastLines(out.String(), 20))
	}

	return &model.Image{Ref: ref}, nil
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
