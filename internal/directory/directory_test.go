package directory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/melcloud-bridge/internal/device"
	"github.com/nerrad567/melcloud-bridge/internal/melcloud"
)

func entry(id int, name string, typ int) json.RawMessage {
	raw, _ := json.Marshal(map[string]any{ //nolint:errcheck // static test data
		"DeviceID":   id,
		"DeviceName": name,
		"BuildingID": 1,
		"Type":       typ,
	})
	return raw
}

type fakeClient struct {
	mu        sync.Mutex
	buildings []melcloud.Building
	err       error
	calls     int
}

func (f *fakeClient) ListDevices(_ context.Context, key string) ([]melcloud.Building, json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if key == "" {
		return nil, nil, errors.New("no key")
	}
	if f.err != nil {
		return nil, nil, f.err
	}
	raw, _ := json.Marshal(f.buildings) //nolint:errcheck // static test data
	return f.buildings, raw, nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type staticTokens struct{ key string }

func (s staticTokens) ContextKey() (string, error) {
	if s.key == "" {
		return "", errors.New("not connected")
	}
	return s.key, nil
}

type memPersister struct {
	mu    sync.Mutex
	blobs map[string][]byte
	err   error
}

func (p *memPersister) Put(_ context.Context, key string, blob []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	if p.blobs == nil {
		p.blobs = make(map[string][]byte)
	}
	p.blobs[key] = blob
	return nil
}

type recorder struct {
	mu         sync.Mutex
	discovered []device.Descriptor
	refreshed  []device.Descriptor
}

func (r *recorder) onDiscovered(_ context.Context, d device.Descriptor, _ json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discovered = append(r.discovered, d)
}

func (r *recorder) onRefreshed(_ context.Context, d device.Descriptor, _ json.RawMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, d)
}

func ids(found []Found) []int {
	out := make([]int, len(found))
	for i, f := range found {
		out[i] = f.Descriptor.DeviceID
	}
	return out
}

func TestFlatten_Order(t *testing.T) {
	buildings := []melcloud.Building{{
		ID: 1,
		Structure: melcloud.Structure{
			Floors: []melcloud.Floor{
				{
					Areas:   []melcloud.Area{{Devices: []json.RawMessage{entry(1, "a", 1), entry(2, "b", 0)}}},
					Devices: []json.RawMessage{entry(3, "c", 0)},
				},
				{
					Devices: []json.RawMessage{entry(4, "d", 3)},
				},
			},
			Areas:   []melcloud.Area{{Devices: []json.RawMessage{entry(5, "e", 0)}}},
			Devices: []json.RawMessage{entry(6, "f", 1), entry(1, "dup", 1)},
		},
	}, {
		ID: 2,
		Structure: melcloud.Structure{
			Devices: []json.RawMessage{entry(7, "g", 0)},
		},
	}}

	found, skipped := Flatten("home", buildings)
	assert.Empty(t, skipped)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, ids(found))
	assert.Equal(t, "a", found[0].Descriptor.Name)
	assert.Equal(t, melcloud.TypeERV, found[3].Descriptor.Type)
	assert.Equal(t, "home", found[6].Descriptor.AccountName)
}

func TestFlatten_OneDevice(t *testing.T) {
	buildings := []melcloud.Building{{
		ID: 9,
		Structure: melcloud.Structure{
			Devices: []json.RawMessage{json.RawMessage(`{"DeviceID":42,"DeviceName":"Ecodan","Type":1}`)},
		},
	}}

	found, skipped := Flatten("home", buildings)
	require.Empty(t, skipped)
	require.Len(t, found, 1)
	assert.Equal(t, device.Descriptor{
		AccountName: "home",
		BuildingID:  9,
		DeviceID:    42,
		Type:        melcloud.TypeAirToWater,
		Name:        "Ecodan",
	}, found[0].Descriptor)
}

func TestFlatten_SkipsEntriesWithoutID(t *testing.T) {
	buildings := []melcloud.Building{{
		ID:        1,
		Structure: melcloud.Structure{Devices: []json.RawMessage{json.RawMessage(`{"DeviceName":"x"}`), entry(2, "ok", 0)}},
	}}

	found, skipped := Flatten("home", buildings)
	assert.Equal(t, []int{2}, ids(found))
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], melcloud.ErrData)
}

func newDirectory(client *fakeClient, persist *memPersister, rec *recorder) *Directory {
	return New(Config{
		Account:      "home",
		Client:       client,
		Tokens:       staticTokens{key: "k"},
		Persister:    persist,
		OnDiscovered: rec.onDiscovered,
		OnRefreshed:  rec.onRefreshed,
	})
}

func TestDirectory_ScanAnnouncesOnce(t *testing.T) {
	client := &fakeClient{buildings: []melcloud.Building{{
		ID:        1,
		Structure: melcloud.Structure{Devices: []json.RawMessage{entry(10, "hp", 1)}},
	}}}
	persist := &memPersister{}
	rec := &recorder{}
	d := newDirectory(client, persist, rec)

	found, err := d.Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{10}, ids(found))
	assert.True(t, d.Seen(10))

	_, err = d.Scan(context.Background())
	require.NoError(t, err)

	assert.Len(t, rec.discovered, 1)
	assert.Len(t, rec.refreshed, 1)

	assert.Contains(t, persist.blobs, "home_Buildings")
	assert.Contains(t, persist.blobs, "home_Device_10")
	assert.Contains(t, string(persist.blobs["home_Device_10"]), "\n  \"DeviceID\": 10")
}

func TestDirectory_PersistFailureDoesNotAbort(t *testing.T) {
	client := &fakeClient{buildings: []melcloud.Building{{
		ID:        1,
		Structure: melcloud.Structure{Devices: []json.RawMessage{entry(10, "hp", 1)}},
	}}}
	rec := &recorder{}
	d := newDirectory(client, &memPersister{err: errors.New("disk full")}, rec)

	_, err := d.Scan(context.Background())
	require.NoError(t, err)
	assert.Len(t, rec.discovered, 1)
}

func TestDirectory_ScanErrors(t *testing.T) {
	t.Run("no session", func(t *testing.T) {
		d := New(Config{Account: "home", Client: &fakeClient{}, Tokens: staticTokens{}})
		_, err := d.Scan(context.Background())
		assert.ErrorIs(t, err, errNotConnected)
	})

	t.Run("empty list", func(t *testing.T) {
		client := &fakeClient{err: melcloud.ErrData}
		var scans []error
		d := New(Config{
			Account: "home",
			Client:  client,
			Tokens:  staticTokens{key: "k"},
			OnScan:  func(_ string, _ int, err error) { scans = append(scans, err) },
		})
		_, err := d.Scan(context.Background())
		assert.ErrorIs(t, err, melcloud.ErrData)
		require.Len(t, scans, 1)
		assert.ErrorIs(t, scans[0], melcloud.ErrData)
	})

	t.Run("auth invalidates", func(t *testing.T) {
		var reasons []string
		d := New(Config{
			Account:    "home",
			Client:     &fakeClient{err: melcloud.ErrAuth},
			Tokens:     staticTokens{key: "k"},
			Invalidate: func(r string) { reasons = append(reasons, r) },
		})
		_, err := d.Scan(context.Background())
		assert.ErrorIs(t, err, melcloud.ErrAuth)
		assert.Len(t, reasons, 1)
	})
}

func TestDirectory_RunRescans(t *testing.T) {
	client := &fakeClient{buildings: []melcloud.Building{{
		ID:        1,
		Structure: melcloud.Structure{Devices: []json.RawMessage{entry(10, "hp", 1)}},
	}}}
	d := New(Config{
		Account:        "home",
		Client:         client,
		Tokens:         staticTokens{key: "k"},
		RescanInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	d.Trigger()
	require.Eventually(t, func() bool { return client.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
