package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	testCases := []struct {
		name   string
		env    map[string]string
		input  string
		expect string
	}{
		{name: "plain", input: "survey: Inspection", expect: "survey: Inspection"},
		{name: "single", env: map[string]string{"FIXFLOW_TITLE": "Bike check"}, input: "surveyTitle: ${env.FIXFLOW_TITLE}", expect: "surveyTitle: Bike check"},
		{name: "repeated", env: map[string]string{"A": "1", "B": "2"}, input: "${env.A}-${env.B}-${env.A}", expect: "1-2-1"},
		{name: "unset", input: "x${env.FIXFLOW_UNSET_VAR}y", expect: "xy"},
		{name: "invalid key", input: "${env.A-B}", expect: "${env.A-B}"},
		{name: "unterminated", input: "${env.A", expect: "${env.A"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			assert.Equal(t, tc.expect, expandEnv(tc.input))
		})
	}
}
