package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastPolicy = Policy{Attempts: 3, Delay: time.Millisecond}

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("write: %w", syscall.EBUSY)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryGivesUpAfterPolicy(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		return ErrBusy
	})
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1+fastPolicy.Attempts, calls)
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := Retry(context.Background(), fastPolicy, func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, Policy{Attempts: 10, Delay: time.Hour}, func() error { return ErrBusy })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.json")
	require.NoError(t, WriteFileAtomic(path, []byte("one"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("two"), 0o644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLockedSerializesWriters(t *testing.T) {
	s := New(fastPolicy)
	path := filepath.Join(t.TempDir(), "counter")
	require.NoError(t, os.WriteFile(path, []byte("0"), 0o644))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Locked(context.Background(), path, func() error {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				n, err := strconv.Atoi(string(data))
				if err != nil {
					return err
				}
				return s.WriteFile(context.Background(), path, []byte(strconv.Itoa(n+1)), 0o644)
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "20", string(data))
}

func TestLockedReportsForeignLock(t *testing.T) {
	s := New(fastPolicy)
	path := filepath.Join(t.TempDir(), "readers.csv")

	other := flock.New(path + ".lock")
	ok, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, ok)
	defer other.Unlock()

	err = s.Locked(context.Background(), path, func() error { return nil })
	assert.ErrorIs(t, err, ErrBusy)
}
