package list_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/slok/sbxsmoke/internal/app/list"
	"github.com/slok/sbxsmoke/internal/log"
	"github.com/slok/sbxsmoke/internal/model"
	"github.com/slok/sbxsmoke/internal/storage"
	"github.com/slok/sbxsmoke/internal/storage/storagemock"
)

func TestNewService(t *testing.T) {
	tests := map[string]struct {
		config list.ServiceConfig
		expErr bool
	}{
		"valid config should create service": {
			config: list.ServiceConfig{
				Repository: &storagemock.MockRunRepository{},
				Logger:     log.Noop,
			},
			expErr: false,
		},
		"missing repository should fail": {
			config: list.ServiceConfig{
				Logger: log.Noop,
			},
			expErr: true,
		},
		"nil logger should default to noop": {
			config: list.ServiceConfig{
				Repository: &storagemock.MockRunRepository{},
			},
			expErr: false,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			svc, err := list.NewService(test.config)

			if test.expErr {
				require.Error(err)
				require.Nil(svc)
			} else {
				require.NoError(err)
				require.NotNil(svc)
			}
		})
	}
}

func TestService_Run(t *testing.T) {
	createdAt := time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{ID: "01H2QWERTYASDFGZXCVBNMLKJ2", Flow: model.FlowSmoke, Status: model.RunStatusSucceeded, CreatedAt: createdAt.Add(time.Hour)},
		{ID: "01H2QWERTYASDFGZXCVBNMLKJ1", Flow: model.FlowUp, Status: model.RunStatusRunning, CreatedAt: createdAt},
	}
	flowUp := model.FlowUp
	unknownFlow := model.Flow("unknown")
	running := model.RunStatusRunning

	tests := map[string]struct {
		mock    func(m *storagemock.MockRunRepository)
		req     list.Request
		expRuns []model.Run
		expErr  bool
	}{
		"list all runs": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, storage.ListRunsOpts{}).Once().Return(runs, nil)
			},
			req:     list.Request{},
			expRuns: runs,
		},
		"list runs with filters and limit": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, storage.ListRunsOpts{Flow: model.FlowUp, Status: model.RunStatusRunning, Limit: 5}).Once().Return(runs[1:], nil)
			},
			req:     list.Request{FlowFilter: &flowUp, StatusFilter: &running, Limit: 5},
			expRuns: runs[1:],
		},
		"empty history should return no runs": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, storage.ListRunsOpts{}).Once().Return([]model.Run{}, nil)
			},
			req:     list.Request{},
			expRuns: []model.Run{},
		},
		"unknown flow filter should fail": {
			mock:   func(m *storagemock.MockRunRepository) {},
			req:    list.Request{FlowFilter: &unknownFlow},
			expErr: true,
		},
		"negative limit should fail": {
			mock:   func(m *storagemock.MockRunRepository) {},
			req:    list.Request{Limit: -1},
			expErr: true,
		},
		"repository error should propagate": {
			mock: func(m *storagemock.MockRunRepository) {
				m.On("ListRuns", mock.Anything, mock.Anything).Once().Return(nil, fmt.Errorf("database error"))
			},
			req:    list.Request{},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			mRepo := &storagemock.MockRunRepository{}
			test.mock(mRepo)

			svc, err := list.NewService(list.ServiceConfig{Repository: mRepo, Logger: log.Noop})
			require.NoError(err)

			got, err := svc.Run(context.Background(), test.req)

			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expRuns, got)
			}

			mRepo.AssertExpectations(t)
		})
	}
}
