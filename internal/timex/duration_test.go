package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_JSON(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: `"30m"`, want: 30 * time.Minute},
		{in: `"1h5s"`, want: time.Hour + 5*time.Second},
		{in: `1000000000`, want: time.Second},
		{in: `"soon"`, wantErr: true},
		{in: `true`, wantErr: true},
		{in: `{`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}

	b, err := json.Marshal(Duration{Duration: 90 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}

func TestDuration_TOML(t *testing.T) {
	var v struct {
		Timeout Duration `toml:"timeout"`
	}
	require.NoError(t, toml.Unmarshal([]byte(`timeout = "45s"`), &v))
	assert.Equal(t, 45*time.Second, v.Timeout.Duration)

	require.Error(t, toml.Unmarshal([]byte(`timeout = "later"`), &v))

	b, err := toml.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), "45s")
}
