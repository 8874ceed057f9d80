package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{0, "0m00s"},
		{59, "0m59s"},
		{61, "1m01s"},
		{3599, "59m59s"},
		{3600, "1h00m"},
		{5400, "1h30m"},
		{7260, "2h01m"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatElapsed(tc.seconds), "seconds=%d", tc.seconds)
	}
}
