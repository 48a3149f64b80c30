package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airgapintel/pkg/config"
)

func TestRunDaysBackFlagIsLenient(t *testing.T) {
	tests := []struct {
		arg  string
		want int
	}{
		{"3", 3},
		{"abc", config.DefaultDaysBack},
		{"-2", config.DefaultDaysBack},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			t.Cleanup(func() { daysBack = "" })

			require.NoError(t, runCmd.ParseFlags([]string{"--days-back=" + tt.arg}))

			cfg := config.DefaultConfig()
			cfg.MergeCommandLineFlags(runFlags(runCmd))
			assert.Equal(t, tt.want, cfg.Run.DaysBack)
		})
	}
}
