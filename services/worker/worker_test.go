package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/goldpriceworker/internal/gold"
	"sjsage522/goldpriceworker/services/cache"
	"sjsage522/goldpriceworker/services/publisher"
	"sjsage522/goldpriceworker/services/store"
)

// MockSource replays snapshots per weight; a nil entry panics
type MockSource struct {
	mu        sync.Mutex
	snapshots map[gold.WeightClass][]*gold.Snapshot
	calls     map[gold.WeightClass]int
}

func NewMockSource() *MockSource {
	return &MockSource{
		snapshots: make(map[gold.WeightClass][]*gold.Snapshot),
		calls:     make(map[gold.WeightClass]int),
	}
}

func (m *MockSource) add(weight gold.WeightClass, snaps ...*gold.Snapshot) {
	m.snapshots[weight] = append(m.snapshots[weight], snaps...)
}

func (m *MockSource) FetchBestSnapshot(_ context.Context, weight gold.WeightClass) *gold.Snapshot {
	m.mu.Lock()
	i := m.calls[weight]
	m.calls[weight]++
	snap := m.snapshots[weight][i]
	m.mu.Unlock()

	if snap == nil {
		panic("scraper exploded")
	}
	return snap
}

// MockStore keeps tables in memory
type MockStore struct {
	mu       sync.Mutex
	tables   map[gold.WeightClass]gold.Series
	writes   int
	writeErr error
	readErr  error
}

var _ store.Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{tables: make(map[gold.WeightClass]gold.Series)}
}

func (m *MockStore) ReadAll(weight gold.WeightClass) (gold.Series, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	s, ok := m.tables[weight]
	if !ok {
		return nil, store.ErrTableNotFound
	}
	return s, nil
}

func (m *MockStore) WriteAll(weight gold.WeightClass, series gold.Series) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.tables[weight] = series
	return nil
}

func (m *MockStore) EnsureStructure() error { return nil }

// MockPublisher records published messages per weight
type MockPublisher struct {
	mu       sync.Mutex
	messages map[string][][]byte
	trims    int
}

var _ publisher.Publisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{messages: make(map[string][][]byte)}
}

func (m *MockPublisher) Publish(weight string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[weight] = append(m.messages[weight], append([]byte(nil), message...))
	return nil
}

func (m *MockPublisher) TrimStreams() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trims++
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func snapshot(weight gold.WeightClass, clock string, vendors int, sell int64) *gold.Snapshot {
	s := gold.NewSnapshot(weight)
	for i := 0; i < vendors; i++ {
		s.Quotes[i].Sell = gold.Price(sell + int64(i)*1000)
		s.Quotes[i].Buyback = gold.Price(sell - 100_000)
	}
	s.Date = "2024-01-01"
	s.Time = clock
	return s
}

func newTestWorker(src *MockSource, st *MockStore, pub *MockPublisher) *Worker {
	return NewWorker(context.Background(), src, st, cache.NewSeriesCache(), pub, nil, 0)
}

func TestRefreshAppendsCompleteSnapshot(t *testing.T) {
	src, st, pub := NewMockSource(), NewMockStore(), NewMockPublisher()
	src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 3, 1_561_000))
	w := newTestWorker(src, st, pub)

	series, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Equal(t, "10:00:00", series[0].Time)
	assert.Equal(t, 1, st.writes)

	cached, ok := w.cache.Get(gold.OneGram)
	require.True(t, ok)
	assert.Len(t, cached, 1)

	require.Len(t, pub.messages["1"], 1)
	var event publisher.RowEvent
	require.NoError(t, json.Unmarshal(pub.messages["1"][0], &event))
	assert.Equal(t, "1", event.Weight)
	assert.False(t, event.Forced)
	assert.Equal(t, int64(1_561_000), *event.G24Sell)
}

func TestRefreshSkipsIncompleteSnapshot(t *testing.T) {
	src, st, pub := NewMockSource(), NewMockStore(), NewMockPublisher()
	existing := gold.Series{gold.RowFromSnapshot(snapshot(gold.OneGram, "09:00:00", 3, 1_500_000))}
	st.tables[gold.OneGram] = existing
	src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 2, 1_561_000))
	w := newTestWorker(src, st, pub)

	series, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)
	assert.Equal(t, existing, series)
	assert.Zero(t, st.writes)
	assert.Empty(t, pub.messages)
}

func TestForcedRefreshAppendsIncompleteSnapshot(t *testing.T) {
	src, st, pub := NewMockSource(), NewMockStore(), NewMockPublisher()
	src.add(gold.TwoGram, snapshot(gold.TwoGram, "10:00:00", 1, 3_070_000))
	w := newTestWorker(src, st, pub)

	series, err := w.Refresh(context.Background(), gold.TwoGram, true)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.Nil(t, series[0].Sell[gold.UBS])
	assert.Equal(t, 1, st.writes)

	var event publisher.RowEvent
	require.NoError(t, json.Unmarshal(pub.messages["2"][0], &event))
	assert.True(t, event.Forced)
}

func TestRefreshPanicFallsBackToLastKnownGood(t *testing.T) {
	src, st := NewMockSource(), NewMockStore()
	src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 3, 1_561_000), nil)
	w := newTestWorker(src, st, nil)

	first, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)

	second, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestForcedRefreshReturnsErrors(t *testing.T) {
	src, st := NewMockSource(), NewMockStore()
	src.add(gold.OneGram, nil, snapshot(gold.OneGram, "10:00:00", 3, 1_561_000))
	w := newTestWorker(src, st, nil)

	_, err := w.Refresh(context.Background(), gold.OneGram, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scraper exploded")

	st.writeErr = errors.New("disk full")
	_, err = w.Refresh(context.Background(), gold.OneGram, true)
	assert.EqualError(t, err, "disk full")
}

func TestRefreshWriteFailureStillServesMergedSeries(t *testing.T) {
	src, st := NewMockSource(), NewMockStore()
	st.writeErr = errors.New("disk full")
	src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 3, 1_561_000))
	w := newTestWorker(src, st, nil)

	series, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)
	assert.Len(t, series, 1)

	cached, _ := w.cache.Get(gold.OneGram)
	assert.Len(t, cached, 1)
}

func TestRefreshReadFailureFallsBack(t *testing.T) {
	src, st := NewMockSource(), NewMockStore()
	st.readErr = errors.New("permission denied")
	w := newTestWorker(src, st, nil)
	w.cache.Set(gold.OneGram, gold.Series{gold.RowFromSnapshot(snapshot(gold.OneGram, "09:00:00", 3, 1_500_000))})

	series, err := w.Refresh(context.Background(), gold.OneGram, false)
	require.NoError(t, err)
	assert.Len(t, series, 1)
	assert.Zero(t, src.calls[gold.OneGram], "no scrape without a readable table")
}

func TestConcurrentRefreshesKeepEveryRow(t *testing.T) {
	const refreshes = 8
	src := NewMockSource()
	for i := 0; i < refreshes; i++ {
		src.add(gold.OneGram, snapshot(gold.OneGram, fmt.Sprintf("10:%02d:00", i), 3, 1_561_000+int64(i)*1000))
	}
	tables := store.NewExcelStore(t.TempDir())
	require.NoError(t, tables.EnsureStructure())
	w := NewWorker(context.Background(), src, tables, cache.NewSeriesCache(), nil, nil, 0)

	var wg sync.WaitGroup
	for i := 0; i < refreshes; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = w.Refresh(context.Background(), gold.OneGram, false)
		}()
	}
	wg.Wait()

	rows, err := tables.ReadAll(gold.OneGram)
	require.NoError(t, err)
	assert.Len(t, rows, refreshes)
}

func TestRefreshAllRefreshesEveryWeight(t *testing.T) {
	src, st, pub := NewMockSource(), NewMockStore(), NewMockPublisher()
	src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 3, 1_561_000))
	src.add(gold.TwoGram, snapshot(gold.TwoGram, "10:00:00", 3, 3_070_000))
	w := newTestWorker(src, st, pub)

	require.NoError(t, w.RefreshAll(context.Background()))

	assert.Len(t, st.tables[gold.OneGram], 1)
	assert.Len(t, st.tables[gold.TwoGram], 1)
	assert.Equal(t, 1, pub.trims)
}

func TestChartData(t *testing.T) {
	t.Run("no table yet", func(t *testing.T) {
		w := newTestWorker(NewMockSource(), NewMockStore(), nil)
		chart := w.ChartData(gold.OneGram)
		assert.True(t, chart.IsEmpty)
		assert.Equal(t, "Data for 1 gram is not available yet.", chart.Error)
	})

	t.Run("read error", func(t *testing.T) {
		st := NewMockStore()
		st.readErr = errors.New("broken")
		w := newTestWorker(NewMockSource(), st, nil)
		chart := w.ChartData(gold.OneGram)
		assert.True(t, chart.IsEmpty)
		assert.Equal(t, "Error reading data: broken", chart.Error)
	})

	t.Run("empty table", func(t *testing.T) {
		st := NewMockStore()
		st.tables[gold.TwoGram] = gold.Series{}
		w := newTestWorker(NewMockSource(), st, nil)
		chart := w.ChartData(gold.TwoGram)
		assert.True(t, chart.IsEmpty)
		assert.Equal(t, "Data for 2 gram is still empty.", chart.Error)
	})

	t.Run("refreshed series", func(t *testing.T) {
		src := NewMockSource()
		src.add(gold.OneGram,
			snapshot(gold.OneGram, "10:00:00", 3, 1_561_000),
			snapshot(gold.OneGram, "11:00:00", 3, 1_562_000),
		)
		w := newTestWorker(src, NewMockStore(), nil)
		_, err := w.Refresh(context.Background(), gold.OneGram, false)
		require.NoError(t, err)
		_, err = w.Refresh(context.Background(), gold.OneGram, false)
		require.NoError(t, err)

		chart := w.ChartData(gold.OneGram)
		assert.False(t, chart.IsEmpty)
		assert.Equal(t, []string{"01 Jan 10:00", "01 Jan 11:00"}, chart.Dates)
		assert.Equal(t, []int64{1_561_000, 1_562_000}, chart.G24Sell)
		require.NotNil(t, chart.Latest)
		assert.Equal(t, "11:00:00", chart.Latest.Time)
	})
}

func TestStartDisabled(t *testing.T) {
	w := newTestWorker(NewMockSource(), NewMockStore(), nil)
	assert.NoError(t, w.Start())
}

func TestStartStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := NewMockSource()
	for i := 0; i < 1000; i++ {
		src.add(gold.OneGram, snapshot(gold.OneGram, "10:00:00", 2, 1_561_000))
		src.add(gold.TwoGram, snapshot(gold.TwoGram, "10:00:00", 2, 3_070_000))
	}
	w := NewWorker(ctx, src, NewMockStore(), nil, nil, nil, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() { done <- w.Start() }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}

	src.mu.Lock()
	defer src.mu.Unlock()
	assert.Positive(t, src.calls[gold.OneGram])
}
