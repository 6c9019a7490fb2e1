package image

import (
	"context"
	"fmt"

	"github.com/slok/sbxsmoke/internal/model"
)

// Builder builds sandbox images.
type Builder interface {
	BuildImage(ctx context.Context, spec model.ImageSpec) (*model.Image, error)
}

const aptInstall = "export DEBIAN_FRONTEND=noninteractive && apt-get update -qq && apt-get install -yqq --no-install-recommends %s && rm -rf /var/lib/apt/lists/*"

const agentBrowserInstall = "npm install -g agent-browser && agent-browser install"

// AppSpec returns the image used to boot the application under test and drive the browser.
func AppSpec(base string) model.ImageSpec {
	return model.ImageSpec{
		Base: base,
		Commands: []string{
			fmt.Sprintf(aptInstall, "ca-certificates curl git python3 python3-pip chromium ffmpeg procps"),
			agentBrowserInstall,
		},
	}
}

// BrowserSpec returns the image used to drive a bare browser without any application.
func BrowserSpec(base string) model.ImageSpec {
	return model.ImageSpec{
		Base: base,
		Commands: []string{
			fmt.Sprintf(aptInstall, "chromium ffmpeg curl ca-certificates"),
			agentBrowserInstall,
		},
	}
}
