package sink

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/LdDl/fovlog-go/fovlog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecord(observer string, id fovlog.ObjectID, at time.Time) fovlog.LogRecord {
	return fovlog.LogRecord{
		Time:              at,
		Observer:          observer,
		ObjectID:          id,
		ObjectName:        "Rock",
		Immediate:         true,
		Predicted:         false,
		ImmediateDistance: 5,
		PredictedDistance: fovlog.NoDistance,
		Size:              120,
	}
}

func TestFileAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "visibility.log")
	file, err := OpenFile(path)
	require.NoError(t, err)

	batch := []fovlog.LogRecord{testRecord("Agent1", 1, baseTime), testRecord("Agent1", 2, baseTime)}
	require.NoError(t, file.Append(context.Background(), batch))
	require.NoError(t, file.Append(context.Background(), nil))
	require.NoError(t, file.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(fovlog.FormatBatch(batch)), string(b))

	// Existing content is kept on reopen
	file, err = OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, file.Append(context.Background(), batch[:1]))
	require.NoError(t, file.Close())
	b, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(string(b)), "\n"), 3)

	err = file.Append(context.Background(), batch)
	assert.True(t, errors.Is(err, fovlog.ErrLogWrite))
}

func TestFileBatchesDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.log")
	file, err := OpenFile(path)
	require.NoError(t, err)

	observers := []string{"A", "B", "C", "D", "E", "F"}
	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(observer string) {
			defer wg.Done()
			batch := make([]fovlog.LogRecord, 0, 50)
			for i := 0; i < 50; i++ {
				batch = append(batch, testRecord(observer, fovlog.ObjectID(i+1), baseTime))
			}
			assert.NoError(t, file.Append(context.Background(), batch))
		}(observer)
	}
	wg.Wait()
	require.NoError(t, file.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 300)
	for start := 0; start < len(lines); start += 50 {
		first, err := fovlog.ParseLine(lines[start])
		require.NoError(t, err)
		for _, line := range lines[start : start+50] {
			record, err := fovlog.ParseLine(line)
			require.NoError(t, err)
			assert.Equal(t, first.Observer, record.Observer)
		}
	}
}

func TestMulti(t *testing.T) {
	first, second := &Memory{}, &Memory{}
	multi := Multi{first, second}
	batch := []fovlog.LogRecord{testRecord("Agent1", 1, baseTime)}
	require.NoError(t, multi.Append(context.Background(), batch))
	require.NoError(t, multi.Close())
	assert.Equal(t, batch, first.Records())
	assert.Equal(t, batch, second.Records())
}

func TestAsyncQueueDropStats(t *testing.T) {
	async := &Async{ch: make(chan []fovlog.LogRecord, 1)}
	batch := []fovlog.LogRecord{testRecord("Agent1", 1, baseTime)}
	require.NoError(t, async.Append(context.Background(), batch))
	require.NoError(t, async.Append(context.Background(), batch))

	stats := async.Stats()
	assert.Equal(t, uint64(1), stats.Dropped)
	assert.Equal(t, 1, stats.QueueDepth)
	assert.Equal(t, 1, stats.QueueCapacity)
}

func TestAsyncWritesInOrder(t *testing.T) {
	memory := &Memory{}
	async := NewAsync(memory, 64, nil)
	for i := 1; i <= 10; i++ {
		require.NoError(t, async.Append(context.Background(), []fovlog.LogRecord{testRecord("Agent1", fovlog.ObjectID(i), baseTime)}))
	}
	require.NoError(t, async.Close())
	// Appends after close are ignored
	require.NoError(t, async.Append(context.Background(), []fovlog.LogRecord{testRecord("Agent1", 99, baseTime)}))

	require.Len(t, memory.Batches, 10)
	for i, batch := range memory.Batches {
		assert.Equal(t, fovlog.ObjectID(i+1), batch[0].ObjectID)
	}
	assert.Equal(t, uint64(10), async.Stats().Written)
}

func TestAsyncCloseDuringAppend(t *testing.T) {
	memory := &Memory{}
	async := NewAsync(memory, 8, nil)
	batch := []fovlog.LogRecord{testRecord("Agent1", 1, baseTime)}

	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				assert.NoError(t, async.Append(context.Background(), batch))
			}
		}()
	}
	close(start)
	require.NoError(t, async.Close())
	wg.Wait()

	stats := async.Stats()
	assert.Equal(t, uint64(len(memory.Batches)), stats.Written)
	assert.LessOrEqual(t, stats.Written+stats.Dropped, uint64(8*200))
}

func TestZstdArchiveRotation(t *testing.T) {
	dir := t.TempDir()
	archive := NewZstdArchive(dir, "visibility")
	later := baseTime.Add(90 * time.Minute)
	require.NoError(t, archive.Append(context.Background(), []fovlog.LogRecord{
		testRecord("Agent1", 1, baseTime),
		testRecord("Agent1", 2, baseTime.Add(time.Minute)),
		testRecord("Agent1", 3, later),
	}))
	require.NoError(t, archive.Close())

	firstPath := archive.PathForHour(baseTime)
	assert.Equal(t, filepath.Join(dir, "visibility-2024-03-01-12.jsonl.zst"), firstPath)
	records, err := ReadArchive(firstPath)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Time.Equal(baseTime))
	assert.Equal(t, fovlog.NoDistance, records[0].PredictedDistance)

	// Reopening appends a new frame to the same file
	require.NoError(t, archive.Append(context.Background(), []fovlog.LogRecord{testRecord("Agent2", 4, later)}))
	require.NoError(t, archive.Close())
	records, err = ReadArchive(archive.PathForHour(later))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, fovlog.ObjectID(3), records[0].ObjectID)
	assert.Equal(t, "Agent2", records[1].Observer)
}

func TestSQLiteIndex(t *testing.T) {
	index, err := OpenSQLite(filepath.Join(t.TempDir(), "index.db"))
	require.NoError(t, err)
	defer index.Close()

	exit := fovlog.LogRecord{
		Time:              baseTime.Add(3 * time.Second),
		Observer:          "Agent1",
		ObjectID:          1,
		ObjectName:        "Rock",
		ImmediateDistance: fovlog.NoDistance,
		PredictedDistance: fovlog.NoDistance,
		Size:              fovlog.NoSize,
		Exit:              true,
	}
	ctx := context.Background()
	require.NoError(t, index.Append(ctx, []fovlog.LogRecord{
		testRecord("Agent1", 1, baseTime),
		testRecord("Agent1", 2, baseTime),
		testRecord("Agent2", 1, baseTime.Add(time.Second)),
	}))
	require.NoError(t, index.Append(ctx, []fovlog.LogRecord{exit}))

	records, err := index.Records(ctx, RecordFilter{Observer: "Agent1", ObjectID: 1})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[0].Time.Equal(baseTime))
	assert.Equal(t, fovlog.Distance(5), records[0].ImmediateDistance)
	assert.Equal(t, fovlog.NoDistance, records[0].PredictedDistance)
	assert.Equal(t, fovlog.Bytes(120), records[0].Size)
	assert.True(t, records[1].Exit)
	assert.Equal(t, fovlog.NoSize, records[1].Size)

	records, err = index.Records(ctx, RecordFilter{Since: baseTime.Add(time.Second), Limit: 1})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Agent2", records[0].Observer)

	observers, err := index.Observers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ObserverSummary{
		{Observer: "Agent1", Records: 3, Objects: 2},
		{Observer: "Agent2", Records: 1, Objects: 1},
	}, observers)
}

func TestStream(t *testing.T) {
	stream := NewStream(nil)
	server := httptest.NewServer(stream)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + StreamPath
	all, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer all.Close()
	filtered, _, err := websocket.DefaultDialer.Dial(url+"?observer=Agent2", nil)
	require.NoError(t, err)
	defer filtered.Close()
	require.Eventually(t, func() bool { return stream.Clients() == 2 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, stream.Append(context.Background(), []fovlog.LogRecord{
		testRecord("Agent1", 1, baseTime),
		testRecord("Agent2", 7, baseTime),
	}))

	readRecord := func(conn *websocket.Conn) fovlog.LogRecord {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)
		var record fovlog.LogRecord
		require.NoError(t, json.Unmarshal(msg, &record))
		return record
	}
	assert.Equal(t, fovlog.ObjectID(1), readRecord(all).ObjectID)
	assert.Equal(t, fovlog.ObjectID(7), readRecord(all).ObjectID)
	assert.Equal(t, fovlog.ObjectID(7), readRecord(filtered).ObjectID)

	require.NoError(t, stream.Close())
	assert.Equal(t, 0, stream.Clients())
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	fail     error
}

func (publisher *fakePublisher) Publish(subject string, data []byte) error {
	if publisher.fail != nil {
		return publisher.fail
	}
	publisher.subjects = append(publisher.subjects, subject)
	publisher.payloads = append(publisher.payloads, data)
	return nil
}

func TestNATSPublishesPerObserver(t *testing.T) {
	publisher := &fakePublisher{}
	sink := NewNATS(publisher, "")
	require.NoError(t, sink.Append(context.Background(), []fovlog.LogRecord{
		testRecord("Agent 1", 1, baseTime),
		testRecord("Leader.2", 2, baseTime),
		testRecord("Agent 1", 3, baseTime),
	}))
	assert.Equal(t, []string{"fovlog.records.Agent_1", "fovlog.records.Leader_2"}, publisher.subjects)

	var batch []fovlog.LogRecord
	require.NoError(t, json.Unmarshal(publisher.payloads[0], &batch))
	require.Len(t, batch, 2)
	assert.Equal(t, fovlog.ObjectID(1), batch[0].ObjectID)
	assert.Equal(t, fovlog.ObjectID(3), batch[1].ObjectID)
	require.NoError(t, sink.Close())

	failing := NewNATS(&fakePublisher{fail: errors.New("nats: connection closed")}, "fov")
	err := failing.Append(context.Background(), []fovlog.LogRecord{testRecord("A", 1, baseTime)})
	assert.True(t, errors.Is(err, fovlog.ErrLogWrite))
}
