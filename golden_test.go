package usemerge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGolden walks testdata/merge/{case}/. Each case holds input.rs and one
// want.{policy}.rs per policy it covers.
func TestGolden(t *testing.T) {
	cases, err := os.ReadDir(filepath.Join("testdata", "merge"))
	require.NoError(t, err)

	for _, c := range cases {
		if !c.IsDir() {
			continue
		}
		dir := filepath.Join("testdata", "merge", c.Name())
		input, err := os.ReadFile(filepath.Join(dir, "input.rs"))
		require.NoError(t, err)

		for _, p := range []Policy{One, Crate, Module} {
			want, err := os.ReadFile(filepath.Join(dir, "want."+p.String()+".rs"))
			if os.IsNotExist(err) {
				continue
			}
			require.NoError(t, err)

			t.Run(c.Name()+"/"+p.String(), func(t *testing.T) {
				e := newTestEngine(t, WithPolicy(p))
				ctx := context.Background()

				res, err := e.MergeSource(ctx, input)
				require.NoError(t, err)
				assert.Equal(t, string(want), string(res.Source))
				assert.Equal(t, string(want) != string(input), res.Changed)

				again, err := e.MergeSource(ctx, res.Source)
				require.NoError(t, err)
				assert.False(t, again.Changed, "merging merged output changes it again")
			})
		}
	}
}
