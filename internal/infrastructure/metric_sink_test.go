package infrastructure

import (
	"reflect"
	"testing"
)

func TestParseTensorboardKwargs(t *testing.T) {
	cases := []struct {
		raw  string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"logdir=/tb", map[string]string{"logdir": "/tb"}},
		{"logdir=/tb,run=exp1", map[string]string{"logdir": "/tb", "run": "exp1"}},
		{" logdir = /tb , run = exp1 ", map[string]string{"logdir": "/tb", "run": "exp1"}},
		{"novalue,run=exp1", map[string]string{"run": "exp1"}},
		{"step=0=1", map[string]string{"step": "0=1"}},
	}
	for _, tc := range cases {
		if got := ParseTensorboardKwargs(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("ParseTensorboardKwargs(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}
