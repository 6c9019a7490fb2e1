package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/artifact"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/sandbox/sandboxmock"
)

var pngData = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestStamp(t *testing.T) {
	tests := map[string]struct {
		t      time.Time
		expOut string
	}{
		"A UTC time should keep milliseconds with safe separators.": {
			t:      time.Date(2026, 10, 15, 9, 8, 7, 123456789, time.UTC),
			expOut: "2026-10-15T09-08-07-123Z",
		},
		"A non UTC time should be converted to UTC.": {
			t:      time.Date(2026, 10, 15, 11, 8, 7, 0, time.FixedZone("CEST", 2*60*60)),
			expOut: "2026-10-15T09-08-07-000Z",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			assert.Equal(test.expOut, artifact.Stamp(test.t))
		})
	}
}

func TestRetrieve(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 8, 7, 5000000, time.UTC)
	errTest := errors.New("whatever")

	tests := map[string]struct {
		req         artifact.Request
		mock        func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle)
		expArtifact func(dir string) *model.Artifact
		expErr      error
	}{
		"Retrieving an artifact should store it in the local dir.": {
			req: artifact.Request{Kind: model.ArtifactKindScreenshot, RemotePath: "/tmp/rlx-home.png", Prefix: "rlx-home"},
			mock: func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {
				sb.On("Open", mock.Anything, "/tmp/rlx-home.png", sandbox.FileModeRead).Once().Return(h, nil)
				h.On("Read", mock.Anything).Once().Return(pngData, nil)
				h.On("Close", mock.Anything).Once().Return(nil)
			},
			expArtifact: func(dir string) *model.Artifact {
				return &model.Artifact{
					Kind:       model.ArtifactKindScreenshot,
					RemotePath: "/tmp/rlx-home.png",
					LocalPath:  filepath.Join(dir, "rlx-home-2026-10-15T09-08-07-005Z.png"),
					Bytes:      len(pngData),
					MIME:       "image/png",
				}
			},
		},
		"Failing opening the remote file should fail.": {
			req: artifact.Request{Kind: model.ArtifactKindVideo, RemotePath: "/tmp/v.webm", Prefix: "v"},
			mock: func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {
				sb.On("Open", mock.Anything, "/tmp/v.webm", sandbox.FileModeRead).Once().Return(nil, errTest)
			},
			expErr: errTest,
		},
		"Failing reading the remote file should close it and fail.": {
			req: artifact.Request{Kind: model.ArtifactKindVideo, RemotePath: "/tmp/v.webm", Prefix: "v"},
			mock: func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {
				sb.On("Open", mock.Anything, "/tmp/v.webm", sandbox.FileModeRead).Once().Return(h, nil)
				h.On("Read", mock.Anything).Once().Return(nil, errTest)
				h.On("Close", mock.Anything).Once().Return(nil)
			},
			expErr: errTest,
		},
		"Failing closing the remote file should fail.": {
			req: artifact.Request{Kind: model.ArtifactKindVideo, RemotePath: "/tmp/v.webm", Prefix: "v"},
			mock: func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {
				sb.On("Open", mock.Anything, "/tmp/v.webm", sandbox.FileModeRead).Once().Return(h, nil)
				h.On("Read", mock.Anything).Once().Return([]byte("data"), nil)
				h.On("Close", mock.Anything).Once().Return(errTest)
			},
			expErr: errTest,
		},
		"An empty artifact should fail.": {
			req: artifact.Request{Kind: model.ArtifactKindVideo, RemotePath: "/tmp/v.webm", Prefix: "v"},
			mock: func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {
				sb.On("Open", mock.Anything, "/tmp/v.webm", sandbox.FileModeRead).Once().Return(h, nil)
				h.On("Read", mock.Anything).Once().Return([]byte{}, nil)
				h.On("Close", mock.Anything).Once().Return(nil)
			},
			expErr: model.ErrNotValid,
		},
		"A request without remote path should fail.": {
			req:    artifact.Request{Kind: model.ArtifactKindVideo, Prefix: "v"},
			mock:   func(sb *sandboxmock.MockSandbox, h *sandboxmock.MockHandle) {},
			expErr: model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			// Not created on purpose, the retriever creates it.
			dir := filepath.Join(t.TempDir(), "artifacts", "nested")

			sb := &sandboxmock.MockSandbox{}
			h := &sandboxmock.MockHandle{}
			test.mock(sb, h)

			r, err := artifact.NewRetriever(artifact.RetrieverConfig{
				Dir: dir,
				Now: func() time.Time { return now },
			})
			require.NoError(err)

			gotArtifact, err := r.Retrieve(context.Background(), sb, test.req)

			sb.AssertExpectations(t)
			h.AssertExpectations(t)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				entries, _ := os.ReadDir(dir)
				assert.Empty(entries)
				return
			}
			require.NoError(err)
			exp := test.expArtifact(dir)
			assert.Equal(exp, gotArtifact)

			data, err := os.ReadFile(exp.LocalPath)
			require.NoError(err)
			assert.Equal(pngData, data)
		})
	}
}

func TestSave(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 8, 7, 5_000_000, time.UTC)

	tests := map[string]struct {
		req       artifact.Request
		data      []byte
		expName   string
		expErrIs  error
		expNoFile bool
	}{
		"A browser screenshot should be stored with the settings prefix.": {
			req:     artifact.Request{Kind: model.ArtifactKindScreenshot, RemotePath: "http://127.0.0.1:3000/settings", Prefix: "settings"},
			data:    pngData,
			expName: "settings-2026-10-15T09-08-07-005Z.png",
		},
		"Empty data should fail.": {
			req:       artifact.Request{Kind: model.ArtifactKindScreenshot, RemotePath: "http://127.0.0.1:3000/settings", Prefix: "settings"},
			expErrIs:  model.ErrNotValid,
			expNoFile: true,
		},
		"A missing prefix should fail.": {
			req:       artifact.Request{Kind: model.ArtifactKindScreenshot, RemotePath: "http://127.0.0.1:3000/settings"},
			data:      pngData,
			expErrIs:  model.ErrNotValid,
			expNoFile: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			dir := filepath.Join(t.TempDir(), "artifacts")
			r, err := artifact.NewRetriever(artifact.RetrieverConfig{Dir: dir, Now: func() time.Time { return now }})
			require.NoError(err)

			got, err := r.Save(test.req, test.data)

			if test.expErrIs != nil {
				assert.ErrorIs(err, test.expErrIs)
				if test.expNoFile {
					_, statErr := os.Stat(dir)
					assert.True(os.IsNotExist(statErr))
				}
				return
			}
			require.NoError(err)
			assert.Equal(filepath.Join(dir, test.expName), got.LocalPath)
			assert.Equal(len(test.data), got.Bytes)
			assert.Equal("image/png", got.MIME)
			assert.Equal(test.req.RemotePath, got.RemotePath)

			stored, err := os.ReadFile(got.LocalPath)
			require.NoError(err)
			assert.Equal(test.data, stored)
		})
	}
}
