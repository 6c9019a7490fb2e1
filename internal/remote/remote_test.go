package remote_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/remote"
	"github.com/slok/sbxsmoke/internal/sandbox"
	"github.com/slok/sbxsmoke/internal/sandbox/sandboxmock"
)

func TestExecutorRun(t *testing.T) {
	tests := map[string]struct {
		timeout    time.Duration
		mock       func(m *sandboxmock.MockSandbox)
		expStdout  string
		expOut     string
		expErr     bool
		expErrCode int
	}{
		"A successful command should return its stdout and echo it.": {
			timeout: time.Minute,
			mock: func(m *sandboxmock.MockSandbox) {
				m.On("Exec", mock.Anything, []string{"bash", "-lc", "echo hi"}, time.Minute).Once().Return(&model.CommandResult{Stdout: "hi\n"}, nil)
			},
			expStdout: "hi\n",
			expOut:    "\n--- sandbox stdout ---\nhi\n",
		},
		"A command without timeout should use the default one.": {
			mock: func(m *sandboxmock.MockSandbox) {
				m.On("Exec", mock.Anything, []string{"bash", "-lc", "echo hi"}, 30*time.Minute).Once().Return(&model.CommandResult{}, nil)
			},
		},
		"A failed command should fail with its exit code after echoing both outputs.": {
			timeout: time.Minute,
			mock: func(m *sandboxmock.MockSandbox) {
				m.On("Exec", mock.Anything, []string{"bash", "-lc", "echo hi"}, time.Minute).Once().Return(&model.CommandResult{Stdout: " partial ", Stderr: "boom\n", ExitCode: 17}, nil)
			},
			expStdout:  " partial ",
			expOut:     "\n--- sandbox stdout ---\npartial\n\n--- sandbox stderr ---\nboom\n",
			expErr:     true,
			expErrCode: 17,
		},
		"A command that can't be executed should fail.": {
			timeout: time.Minute,
			mock: func(m *sandboxmock.MockSandbox) {
				m.On("Exec", mock.Anything, mock.Anything, mock.Anything).Once().Return(nil, errors.New("whatever"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			msb := &sandboxmock.MockSandbox{}
			msb.On("ID").Return("sb-1")
			test.mock(msb)

			var out bytes.Buffer
			e, err := remote.NewExecutor(remote.ExecutorConfig{Sandbox: msb, Out: &out})
			require.NoError(err)

			res, err := e.Run(context.TODO(), "echo hi", test.timeout)

			if test.expErr {
				require.Error(err)
				if test.expErrCode != 0 {
					assert.Contains(err.Error(), "17")
					code, ok := model.ExitCodeFromError(err)
					assert.True(ok)
					assert.Equal(test.expErrCode, code)
				}
			} else {
				require.NoError(err)
				assert.Equal(test.expStdout, res.Stdout)
			}
			assert.Equal(test.expOut, out.String())
			msb.AssertExpectations(t)
		})
	}
}

func TestExecutorWriteText(t *testing.T) {
	mkdir := []string{"bash", "-lc", "mkdir -p /workspace/rlx/apps/api"}
	path := "/workspace/rlx/apps/api/.env.sandbox"

	tests := map[string]struct {
		mock   func(msb *sandboxmock.MockSandbox, mh *sandboxmock.MockHandle)
		expErr bool
	}{
		"Writing a file should create the dir and write, flush and close the file.": {
			mock: func(msb *sandboxmock.MockSandbox, mh *sandboxmock.MockHandle) {
				msb.On("Exec", mock.Anything, mkdir, mock.Anything).Once().Return(&model.CommandResult{}, nil)
				msb.On("Open", mock.Anything, path, sandbox.FileModeWrite).Once().Return(mh, nil)
				mh.On("Write", mock.Anything, []byte("A=1\n")).Once().Return(nil)
				mh.On("Flush", mock.Anything).Once().Return(nil)
				mh.On("Close", mock.Anything).Once().Return(nil)
			},
		},
		"A failed dir creation should not open the file.": {
			mock: func(msb *sandboxmock.MockSandbox, mh *sandboxmock.MockHandle) {
				msb.On("Exec", mock.Anything, mkdir, mock.Anything).Once().Return(&model.CommandResult{ExitCode: 1}, nil)
			},
			expErr: true,
		},
		"A failed flush should fail the write.": {
			mock: func(msb *sandboxmock.MockSandbox, mh *sandboxmock.MockHandle) {
				msb.On("Exec", mock.Anything, mkdir, mock.Anything).Once().Return(&model.CommandResult{}, nil)
				msb.On("Open", mock.Anything, path, sandbox.FileModeWrite).Once().Return(mh, nil)
				mh.On("Write", mock.Anything, []byte("A=1\n")).Once().Return(nil)
				mh.On("Flush", mock.Anything).Once().Return(errors.New("whatever"))
			},
			expErr: true,
		},
		"A failed close should fail the write.": {
			mock: func(msb *sandboxmock.MockSandbox, mh *sandboxmock.MockHandle) {
				msb.On("Exec", mock.Anything, mkdir, mock.Anything).Once().Return(&model.CommandResult{}, nil)
				msb.On("Open", mock.Anything, path, sandbox.FileModeWrite).Once().Return(mh, nil)
				mh.On("Write", mock.Anything, []byte("A=1\n")).Once().Return(nil)
				mh.On("Flush", mock.Anything).Once().Return(nil)
				mh.On("Close", mock.Anything).Once().Return(errors.New("whatever"))
			},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			msb := &sandboxmock.MockSandbox{}
			msb.On("ID").Return("sb-1")
			mh := &sandboxmock.MockHandle{}
			test.mock(msb, mh)

			e, err := remote.NewExecutor(remote.ExecutorConfig{Sandbox: msb, Out: &bytes.Buffer{}})
			require.NoError(t, err)

			err = e.WriteText(context.TODO(), path, "A=1\n")
			if test.expErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			msb.AssertExpectations(t)
			mh.AssertExpectations(t)
		})
	}
}

func TestNonFatal(t *testing.T) {
	called := false
	remote.NonFatal(log.Noop, "diagnostics", func() error {
		called = true
		return errors.New("whatever")
	})
	assert.True(t, called)
}
