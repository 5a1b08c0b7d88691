package settings

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestDefault_Valid(t *testing.T) {
	def := Default()
	require.NoError(t, def.Validate())
	assert.Equal(t, 0.02, def.DefaultSLPct)
	assert.Equal(t, 0.04, def.DefaultTPPct)
	assert.Equal(t, 0.005, def.ScalpSLPct)
	assert.Equal(t, 0.01, def.ScalpTPPct)
	assert.Equal(t, 10, def.MaxLeverage)
}

func TestValidate_Bounds(t *testing.T) {
	s := Default()
	s.DefaultSLPct = 0
	assert.Error(t, s.Validate())

	s = Default()
	s.ScalpTPPct = 1.5
	assert.Error(t, s.Validate())

	s = Default()
	s.MaxLeverage = 0
	assert.Error(t, s.Validate())
}

func TestPatchApply_PartialUpdate(t *testing.T) {
	base := Default()
	lev := 5
	out := Patch{DefaultSLPct: fptr(0.03), MaxLeverage: &lev}.Apply(base)

	assert.Equal(t, 0.03, out.DefaultSLPct)
	assert.Equal(t, 5, out.MaxLeverage)
	assert.Equal(t, base.DefaultTPPct, out.DefaultTPPct, "untouched fields carry over")
	assert.Equal(t, base.ScalpSLPct, out.ScalpSLPct)
}

func TestMemoryStore_UpdateValidatesBeforeCommit(t *testing.T) {
	store := NewMemoryStore(Default())
	ctx := context.Background()

	_, err := store.Update(ctx, Patch{DefaultSLPct: fptr(-1)})
	require.Error(t, err)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default(), got, "failed update must not leave partial state")
}

func TestMemoryStore_UpdateAtomicReplacement(t *testing.T) {
	store := NewMemoryStore(Default())
	ctx := context.Background()

	updated, err := store.Update(ctx, Patch{DefaultTPPct: fptr(0.05)})
	require.NoError(t, err)
	assert.Equal(t, 0.05, updated.DefaultTPPct)

	got, err := store.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestMemoryStore_ConcurrentReaders(t *testing.T) {
	store := NewMemoryStore(Default())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s, err := store.Get(ctx)
				assert.NoError(t, err)
				// Every observed snapshot must be internally consistent.
				assert.NoError(t, s.Validate())
			}
		}()
	}
	for i := 0; i < 100; i++ {
		v := 0.01 + float64(i%5)*0.001
		_, err := store.Update(ctx, Patch{DefaultSLPct: &v})
		require.NoError(t, err)
	}
	wg.Wait()
}
