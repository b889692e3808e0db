package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comment-scout/internal/config"
	"comment-scout/internal/logging"
	"comment-scout/pkg/models"
	"comment-scout/pkg/utils"
)

type failingSink struct {
	calls  int
	closed bool
}

func (f *failingSink) Name() string { return "failing" }

func (f *failingSink) Publish(context.Context, []models.CommentRecord) error {
	f.calls++
	return errors.New("mirror down")
}

func (f *failingSink) Close() error {
	f.closed = true
	return errors.New("close failed")
}

func TestStoreConcurrentFlushes(t *testing.T) {
	csvPath, jsonPath := outputPaths(t)
	logger, _ := logging.NewMemoryLogger()
	store := New(csvPath, jsonPath, WithLogger(logger))

	const workers, perBatch = 8, 5
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]models.CommentRecord, perBatch)
			for i := range batch {
				batch[i] = record(fmt.Sprint(w), fmt.Sprintf("w%d-%d 多少钱", w, i), "多少钱")
			}
			assert.NoError(t, store.Flush(context.Background(), batch))
		}(w)
	}
	wg.Wait()

	assert.Len(t, readCSV(t, csvPath), 1+workers*perBatch)
	assert.Len(t, readJSON(t, jsonPath), workers*perBatch)
}

func TestStoreMirrorFailureIsNotFatal(t *testing.T) {
	csvPath, jsonPath := outputPaths(t)
	logger, mem := logging.NewMemoryLogger()
	sink := &failingSink{}
	store := New(csvPath, jsonPath, WithLogger(logger), WithSinks(sink))

	require.NoError(t, store.Flush(context.Background(), []models.CommentRecord{record("1", "多少钱", "多少钱")}))
	require.NoError(t, store.Flush(context.Background(), nil))

	assert.Equal(t, 1, sink.calls, "empty batches are not mirrored")
	assert.Equal(t, 1, mem.Count(logging.WarnLevel))
	assert.Len(t, readJSON(t, jsonPath), 1)

	assert.Error(t, store.Close())
	assert.True(t, sink.closed)
	assert.NoError(t, store.Close(), "second close has nothing to release")
}

func TestStoreSkipsMirrorsWhenFlushFails(t *testing.T) {
	csvPath, jsonPath := outputPaths(t)
	sink := &failingSink{}
	store := New(csvPath, filepath.Dir(jsonPath), WithSinks(sink))

	err := store.Flush(context.Background(), []models.CommentRecord{record("1", "多少钱", "多少钱")})
	require.Error(t, err)
	assert.Equal(t, utils.KindPersistence, utils.KindOf(err))
	assert.Zero(t, sink.calls)
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)

	sink, err := NewRedisSink(context.Background(), RedisOptions{URL: "redis://" + mr.Addr(), Key: "scout:test"})
	require.NoError(t, err)
	defer sink.Close()

	records := []models.CommentRecord{record("1", "多少钱", "多少钱"), record("1", "求链接", "链接")}
	require.NoError(t, sink.Publish(context.Background(), records))

	items, err := mr.List("scout:test")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var got models.CommentRecord
	require.NoError(t, json.Unmarshal([]byte(items[1]), &got))
	assert.Equal(t, "求链接", got.Content)
	assert.Equal(t, "链接", got.MatchedKeyword)
}

func TestRedisSinkUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisSink(context.Background(), RedisOptions{URL: "redis://" + addr, Timeout: 200 * time.Millisecond})
	assert.Error(t, err)

	_, err = NewRedisSink(context.Background(), RedisOptions{URL: "://bad"})
	assert.Error(t, err)
}

func startNATS(t *testing.T) *natsserver.Server {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	require.NoError(t, err)
	srv.Start()
	require.True(t, srv.ReadyForConnections(3*time.Second), "nats not ready")
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestNATSSink(t *testing.T) {
	srv := startNATS(t)

	nc, err := nats.Connect(srv.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe("comments.test", ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	sink, err := NewNATSSink(srv.ClientURL(), "comments.test")
	require.NoError(t, err)
	defer sink.Close()

	records := []models.CommentRecord{record("1", "多少钱", "多少钱"), record("2", "价格", "价格")}
	require.NoError(t, sink.Publish(context.Background(), records))

	for _, want := range records {
		select {
		case msg := <-ch:
			var got models.CommentRecord
			require.NoError(t, json.Unmarshal(msg.Data, &got))
			assert.Equal(t, want.Content, got.Content)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

func TestNATSSinkUnreachable(t *testing.T) {
	srv := startNATS(t)
	url := srv.ClientURL()
	srv.Shutdown()

	_, err := NewNATSSink(url, "")
	assert.Error(t, err)
}

func TestSQLiteSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "comments.db")
	sink, err := NewSQLiteSink(context.Background(), path)
	require.NoError(t, err)

	published := observed.Add(-time.Hour)
	withMeta := record("1", "多少钱", "多少钱")
	withMeta.Author = utils.StringPtr("小王")
	withMeta.PublishedAt = &published
	require.NoError(t, sink.Publish(context.Background(), []models.CommentRecord{withMeta, record("2", "链接", "链接")}))
	require.NoError(t, sink.Close())

	// reopening keeps existing rows
	sink, err = NewSQLiteSink(context.Background(), path)
	require.NoError(t, err)
	defer sink.Close()

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&count))
	assert.Equal(t, 2, count)

	var author, publishedAt sql.NullString
	require.NoError(t, db.QueryRow(`SELECT author, published_at FROM comments WHERE content = ?`, "多少钱").Scan(&author, &publishedAt))
	assert.Equal(t, "小王", author.String)
	assert.Equal(t, "2024-06-15T11:00:00Z", publishedAt.String)

	require.NoError(t, db.QueryRow(`SELECT author, published_at FROM comments WHERE content = ?`, "链接").Scan(&author, &publishedAt))
	assert.False(t, author.Valid)
	assert.False(t, publishedAt.Valid)
}

func TestNewFromConfig(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Output.CSVPath = filepath.Join(dir, "c.csv")
	cfg.Output.JSONPath = filepath.Join(dir, "c.json")
	cfg.Sinks.Redis.Enabled = true
	cfg.Sinks.Redis.URL = "redis://" + mr.Addr()
	cfg.Sinks.SQLite.Enabled = true
	cfg.Sinks.SQLite.Path = filepath.Join(dir, "c.db")
	cfg.Sinks.NATS.Enabled = true
	cfg.Sinks.NATS.URL = "nats://127.0.0.1:1"

	logger, mem := logging.NewMemoryLogger()
	store := NewFromConfig(context.Background(), cfg, logger)
	defer store.Close()

	assert.Equal(t, cfg.Output.CSVPath, store.CSVPath())
	assert.Equal(t, cfg.Output.JSONPath, store.JSONPath())
	assert.Equal(t, 1, mem.Count(logging.WarnLevel), "unreachable nats is skipped")

	require.NoError(t, store.Flush(context.Background(), []models.CommentRecord{record("1", "多少钱", "多少钱")}))

	items, err := mr.List(cfg.Sinks.Redis.Key)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}
