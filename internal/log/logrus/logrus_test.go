package logrus_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/slok/sbxsmoke/internal/log"
	loglogrus "github.com/slok/sbxsmoke/internal/log/logrus"
)

func TestLogrusLoggerValues(t *testing.T) {
	tests := map[string]struct {
		log    func(l log.Logger)
		expOut []string
	}{
		"Static values should be present on the log line.": {
			log: func(l log.Logger) {
				l.WithValues(log.Kv{"svc": "test"}).Infof("hello %s", "world")
			},
			expOut: []string{`msg="hello world"`, "svc=test"},
		},

		"Context values should be present on the log line.": {
			log: func(l log.Logger) {
				ctx := l.SetValuesOnCtx(context.TODO(), log.Kv{"run": "r1"})
				ctx = log.CtxWithValues(ctx, log.Kv{"phase": "bootstrap"})
				l.WithCtxValues(ctx).Warningf("careful")
			},
			expOut: []string{"msg=careful", "run=r1", "phase=bootstrap", "level=warning"},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			var buf bytes.Buffer
			l := logrus.New()
			l.Out = &buf
			l.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})

			test.log(loglogrus.NewLogrus(logrus.NewEntry(l)))

			for _, exp := range test.expOut {
				assert.Contains(buf.String(), exp)
			}
		})
	}
}
