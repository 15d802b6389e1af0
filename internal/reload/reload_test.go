package reload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestParseFDs(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{"", nil, false},
		{"3", []int{3}, false},
		{"3,4,9", []int{3, 4, 9}, false},
		{" 3 , ,5,", []int{3, 5}, false},
		{"3,x", nil, true},
		{"-1", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFDs(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		fds := rapid.SliceOfN(rapid.IntRange(0, 1<<20), 1, 16).Draw(t, "fds")
		got, err := ParseFDs(FormatFDs(fds))
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(fds) {
			t.Fatalf("got %v, want %v", got, fds)
		}
		for i := range fds {
			if got[i] != fds[i] {
				t.Fatalf("got %v, want %v", got, fds)
			}
		}
	})
}

func TestWithInheritEnv(t *testing.T) {
	env := []string{"PATH=/bin", EnvInheritFDs + "=7", "HOME=/root"}
	got := withInheritEnv(env, []int{3, 4})
	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", EnvInheritFDs + "=3,4"}, got)
	assert.Equal(t, EnvInheritFDs+"=7", env[1], "input must not be modified")
}

func TestEnvFDs(t *testing.T) {
	t.Setenv(EnvInheritFDs, "5,6")
	fds, err := envFDs()
	require.NoError(t, err)
	assert.Equal(t, []int{5, 6}, fds)

	again, err := envFDs()
	require.NoError(t, err)
	assert.Nil(t, again, "variable is consumed")
}
