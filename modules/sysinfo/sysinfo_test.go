package sysinfo

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoCodeAlone/devicecore"
	"github.com/GoCodeAlone/devicecore/modules/storage"
)

func TestSnapshotPopulatesRuntimeFields(t *testing.T) {
	c := New(Config{}, nil)
	require.Equal(t, devicecore.Success, c.Begin())

	m := c.Snapshot()
	assert.NotEmpty(t, m.GoVersion)
	assert.Greater(t, m.HeapSys, uint64(0))
	assert.Greater(t, m.NumGoroutine, 0)
	assert.False(t, m.CollectedAt.IsZero())
}

func TestBeginPublishesStickySnapshot(t *testing.T) {
	bus := devicecore.NewEventBus(nil)
	c := New(Config{}, nil)
	c.AttachBus(bus)
	require.Equal(t, devicecore.Success, c.Begin())
	bus.Poll()

	var got *Metrics
	bus.SubscribeSticky(TopicMetrics, t, func(ev devicecore.Event) {
		m := ev.Payload.(Metrics)
		got = &m
	})
	require.NotNil(t, got, "late subscriber receives the startup snapshot")
	assert.NotEmpty(t, got.GoVersion)
}

func TestLoopPublishesOnInterval(t *testing.T) {
	bus := devicecore.NewEventBus(nil)
	c := New(Config{Interval: time.Millisecond}, nil)
	c.AttachBus(bus)
	require.Equal(t, devicecore.Success, c.Begin())
	bus.Poll()

	published := 0
	bus.Subscribe(TopicMetrics, t, func(devicecore.Event) { published++ })

	require.Eventually(t, func() bool {
		c.Loop()
		bus.Poll()
		return published > 0
	}, time.Second, 2*time.Millisecond)
}

func TestBootCounterIncrementsViaStorage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.toml")

	bus := devicecore.NewEventBus(nil)
	reg := devicecore.NewRegistry(bus, nil)
	require.True(t, reg.Add(storage.New(storage.Config{Path: path}, nil)))
	require.True(t, reg.Add(New(Config{}, nil)))
	require.True(t, reg.BeginAll())

	store, ok := devicecore.GetAs[*storage.Component](reg, storage.ComponentName)
	require.True(t, ok)
	assert.Equal(t, 1, store.GetInt("sysinfo.boot_count", 0))

	si, ok := devicecore.GetAs[*Component](reg, ComponentName)
	require.True(t, ok)
	assert.Equal(t, 1, si.Snapshot().BootCount)
}

func TestReadyHookWithoutStorageIsHarmless(t *testing.T) {
	bus := devicecore.NewEventBus(nil)
	reg := devicecore.NewRegistry(bus, nil)
	require.True(t, reg.Add(New(Config{}, nil)))
	require.True(t, reg.BeginAll())

	si, ok := devicecore.GetAs[*Component](reg, ComponentName)
	require.True(t, ok)
	assert.Equal(t, 0, si.Snapshot().BootCount)
}
