package output_test

import (
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rget/rget/pkg/output"
)

type countingProgress struct {
	total atomic.Int64
}

func (c *countingProgress) Add64(n int64) error {
	c.total.Add(n)
	return nil
}

func TestOpenTruncates(t *testing.T) {
	r := require.New(t)
	dest := filepath.Join(t.TempDir(), "out.bin")
	r.NoError(os.WriteFile(dest, []byte("previous content that is long"), 0644))

	f, err := output.Open(dest)
	r.NoError(err)
	n, err := f.WriteAt(0, []byte("new"))
	r.NoError(err)
	r.Equal(3, n)
	r.NoError(f.Close())

	content, err := os.ReadFile(dest)
	r.NoError(err)
	r.Equal([]byte("new"), content)
}

func TestOpenFailure(t *testing.T) {
	_, err := output.Open(filepath.Join(t.TempDir(), "missing-dir", "out.bin"))
	assert.Error(t, err)
}

func TestWriteAtLeavesGaps(t *testing.T) {
	r := require.New(t)
	dest := filepath.Join(t.TempDir(), "gaps.bin")
	f, err := output.Open(dest)
	r.NoError(err)

	_, err = f.WriteAt(6, []byte("tail"))
	r.NoError(err)
	_, err = f.WriteAt(0, []byte("he"))
	r.NoError(err)
	r.NoError(f.Close())

	content, err := os.ReadFile(dest)
	r.NoError(err)
	r.Equal([]byte{'h', 'e', 0, 0, 0, 0, 't', 'a', 'i', 'l'}, content)
}

func TestWriteAfterClose(t *testing.T) {
	r := require.New(t)
	f, err := output.Open(filepath.Join(t.TempDir(), "closed.bin"))
	r.NoError(err)
	r.NoError(f.Close())

	_, err = f.WriteAt(0, []byte("x"))
	r.ErrorIs(err, os.ErrClosed)
	r.ErrorIs(f.Close(), os.ErrClosed)
}

// TestConcurrentDisjointWrites hammers WriteAt from many goroutines with small writes at shuffled,
// disjoint offsets. Any interleaving of one call's seek with another call's write would land
// bytes in the wrong region.
func TestConcurrentDisjointWrites(t *testing.T) {
	r := require.New(t)
	const (
		workers   = 16
		pieceSize = 7
		pieces    = 256
	)
	total := workers * pieces * pieceSize

	expected := make([]byte, total)
	rnd := rand.New(rand.NewSource(42))
	_, _ = rnd.Read(expected)

	dest := filepath.Join(t.TempDir(), "stress.bin")
	f, err := output.Open(dest)
	r.NoError(err)
	progress := &countingProgress{}
	f.SetProgress(progress)

	// every piece index is owned by exactly one worker, visited in random order
	order := rnd.Perm(workers * pieces)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		mine := order[w*pieces : (w+1)*pieces]
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, piece := range mine {
				offset := int64(piece * pieceSize)
				n, err := f.WriteAt(offset, expected[offset:offset+pieceSize])
				assert.NoError(t, err)
				assert.Equal(t, pieceSize, n)
			}
		}()
	}
	wg.Wait()
	r.NoError(f.Close())

	actual, err := os.ReadFile(dest)
	r.NoError(err)
	r.Equal(expected, actual)
	r.Equal(int64(total), progress.total.Load())
}
