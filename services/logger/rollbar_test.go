package logsvc

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/edukanda/edukanda/core"
)

type person struct{}

func (person) LogPerson() (id, username, email string) { return "1", "Renato", "renato@edukanda.ao" }

func TestRollbarLoggerPrints(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "TEST : ", 0), &core.Config{Env: "TEST", TestMode: true})

	tests := []struct {
		name string
		log  func(msg string, args ...interface{})
		msg  string
		args []interface{}
		want []string
	}{
		{"debug", l.Debug, "debugging", nil, []string{"TEST : debugging"}},
		{"info with person", l.Info, "logged in", []interface{}{person{}}, []string{"TEST : logged in"}},
		{"error with cause", l.Error, "boom", []interface{}{"db down", person{}}, []string{"TEST : boom", "TEST : db down"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.log(tc.msg, tc.args...)
			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			assert.Equal(t, tc.want, lines)
		})
	}
}

func TestPrepareExtractsOnePerson(t *testing.T) {
	l := RollbarLogger{std: log.New(&bytes.Buffer{}, "", 0)}
	err := errors.New("boom")
	args := l.prepare("msg", []interface{}{person{}, err, person{}})
	assert.Equal(t, []interface{}{"msg", err}, args)
}
