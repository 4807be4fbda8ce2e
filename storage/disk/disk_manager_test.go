package disk

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corundb/storage/page"
)

func newTestManager(t *testing.T) (*Manager, func()) {
	t.Helper()
	id, err := uuid.NewUUID()
	require.NoError(t, err)
	path := id.String()

	dm, err := Open(path)
	require.NoError(t, err)
	return dm, func() {
		dm.Close()
		os.Remove(path)
	}
}

func TestManager_AllocatePageIsMonotonic(t *testing.T) {
	dm, cleanup := newTestManager(t)
	defer cleanup()

	a := dm.AllocatePage()
	b := dm.AllocatePage()
	c := dm.AllocatePage()
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestManager_WriteThenReadRoundTrip(t *testing.T) {
	dm, cleanup := newTestManager(t)
	defer cleanup()

	id := dm.AllocatePage()
	src := make([]byte, page.Size)
	copy(src, []byte("page contents"))
	require.NoError(t, dm.WritePage(id, src))

	dst := make([]byte, page.Size)
	require.NoError(t, dm.ReadPage(id, dst))
	assert.Equal(t, src, dst)
}

func TestManager_ReadUnwrittenPageReadsAsZeros(t *testing.T) {
	dm, cleanup := newTestManager(t)
	defer cleanup()

	id := dm.AllocatePage()
	dst := make([]byte, page.Size)
	for i := range dst {
		dst[i] = 0xFF
	}
	require.NoError(t, dm.ReadPage(id, dst))
	for i, b := range dst {
		require.Zero(t, b, "byte %d of a never-written page must read back zero", i)
	}
}

func TestManager_RejectsWrongSizedBuffers(t *testing.T) {
	dm, cleanup := newTestManager(t)
	defer cleanup()

	id := dm.AllocatePage()
	assert.Error(t, dm.WritePage(id, make([]byte, 10)))
	assert.Error(t, dm.ReadPage(id, make([]byte, 10)))
}

func TestScheduler_ReadWriteSyncPreservesOrder(t *testing.T) {
	dm, cleanup := newTestManager(t)
	defer cleanup()
	sched := NewScheduler(dm)
	defer sched.Shutdown()

	id := dm.AllocatePage()
	buf1 := make([]byte, page.Size)
	copy(buf1, []byte("first"))
	require.True(t, sched.WriteSync(id, buf1))

	buf2 := make([]byte, page.Size)
	copy(buf2, []byte("second"))
	require.True(t, sched.WriteSync(id, buf2))

	dst := make([]byte, page.Size)
	require.True(t, sched.ReadSync(id, dst))
	assert.Equal(t, []byte("second"), dst[:6], "the later write must win")
}
