package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// ImageSpec describes a sandbox image: a base image plus the shell commands that install the browser tooling.
type ImageSpec struct {
	// Base is the base image reference (e.g. "node:20-bookworm").
	Base string
	// Commands are executed in order while building the image.
	Commands []string
}

// Image is a built sandbox image.
type Image struct {
	// Ref is the reference used to create sandboxes from this image.
	Ref string
}

// Fingerprint returns a stable short hash of the spec, used to tag built images.
func (s ImageSpec) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(s.Base))
	for _, c := range s.Commands {
		h.Write([]byte{0})
		h.Write([]byte(c))
	}
	return hex.EncodeToString(h.Sum(nil))[:12]
}

// Validate checks the image spec is usable.
func (s ImageSpec) Validate() error {
	if strings.TrimSpace(s.Base) == "" {
		return errorf("image base is required")
	}
	return nil
}
