package choreography

import (
	"github.com/slok/sbxsmoke/internal/conventions"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/readiness"
)

const (
	videoFrontendOrigin      = "http://127.0.0.1:3000"
	screenshotFrontendOrigin = "http://localhost:3000"
)

// VideoScript boots the app and records a video of the configured page.
func VideoScript(cfg model.RunConfig) *Script {
	s := NewStrictScript(AppBoot(DefaultAppEnv(), cfg, videoFrontendOrigin)...)
	s.Add(LaunchBrowser(readiness.DebugEndpointPolicy)...)
	rec := Recording{
		Session:      Session{Name: conventions.SessionVideo, CDPPort: conventions.CDPPort},
		OpenURL:      cfg.OpenURL,
		RecordWaitMs: cfg.RecordWaitMs,
		ScrollPx:     cfg.ScrollPx,
		ArtifactPath: conventions.VideoArtifactPath,
	}
	return s.Add(rec.Statements()...)
}

// ScreenshotScript boots the app, signs in and takes a full page screenshot of the home page.
func ScreenshotScript(cfg model.RunConfig, signInJS string, policy SignInPolicy) *Script {
	env := DefaultAppEnv()
	env.Exports = []string{"PIP_BREAK_SYSTEM_PACKAGES=1"}

	s := NewStrictScript(AppBoot(env, cfg, screenshotFrontendOrigin)...)
	s.Add(LaunchBrowser(readiness.DebugEndpointPolicy)...)
	shot := HomeScreenshot{
		Session:      Session{Name: conventions.SessionScreenshot, CDPPort: conventions.CDPPort},
		SignInURL:    screenshotFrontendOrigin + conventions.SignInPath,
		HomeURL:      screenshotFrontendOrigin + conventions.HomePath,
		SignInJS:     signInJS,
		Policy:       policy,
		ArtifactPath: conventions.ScreenshotArtifactPath,
	}
	return s.Add(shot.Statements()...)
}

// SmokeScript records a video of a public page with a bare browser.
func SmokeScript(url string) *Script {
	session := Session{Name: conventions.SessionSmoke, CDPPort: conventions.CDPPort}
	s := NewStrictScript(LaunchBrowser(readiness.SmokeDebugEndpointPolicy)...)
	s.Add(session.Version())
	rec := Recording{
		Session:      session,
		OpenURL:      url,
		SettleMs:     1200,
		RecordWaitMs: 1500,
		ScrollPx:     600,
		ArtifactPath: conventions.SmokeArtifactPath,
	}
	return s.Add(rec.Statements()...)
}

// UpSetupScript runs the app setup inside the app env.
func UpSetupScript(cfg model.RunConfig) *Script {
	return NewScript(DefaultAppEnv().Wrap(cfg.Setup).Subshell())
}

// UpRunScript starts the app detached from the shell so it survives the command.
func UpRunScript(cfg model.RunConfig) *Script {
	run := "nohup bash -lc " + Cmd(cfg.Run).Render() + " >" + conventions.AppLogFile + " 2>&1 & echo $! >" + conventions.AppPIDFile
	return NewScript(DefaultAppEnv().Wrap(run).Subshell())
}
