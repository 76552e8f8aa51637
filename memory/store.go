package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Store は Recorder のディスク実装です。
// 発言本体は BadgerDB に時系列キーで保存し、全文検索用に
// Bluge のインデックスへも書き込みます。
type Store struct {
	db     *badger.DB
	writer *bluge.Writer
	log    *slog.Logger
}

// NewStore は、dataDir 配下にアーカイブとインデックスを開きます。
func NewStore(dataDir string, log *slog.Logger) (*Store, error) {
	db, err := badger.Open(
		badger.DefaultOptions(filepath.Join(dataDir, "archive")).
			WithLoggingLevel(badger.ERROR),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger archive: %w", err)
	}

	writer, err := bluge.OpenWriter(bluge.DefaultConfig(filepath.Join(dataDir, "index")))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open bluge index: %w", err)
	}

	return &Store{db: db, writer: writer, log: log}, nil
}

// Record persists one utterance in BadgerDB and indexes it in Bluge.
// The badger key is "utt:{session}:{timestamp_padded}:{uuid}" so that a
// prefix scan returns utterances in chronological order; the uuid avoids
// collisions when two utterances share the same nanosecond.
func (s *Store) Record(ctx context.Context, u Utterance) error {
	id := uuid.NewString()
	key := fmt.Sprintf("utt:%s:%019d:%s", u.SessionID, u.At.UnixNano(), id)

	value, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal utterance: %w", err)
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	}); err != nil {
		return fmt.Errorf("failed to store utterance: %w", err)
	}

	doc := bluge.NewDocument(id).
		AddField(bluge.NewKeywordField("session", u.SessionID).StoreValue()).
		AddField(bluge.NewKeywordField("sender", u.Sender).StoreValue()).
		AddField(bluge.NewTextField("content", u.Content).StoreValue())

	if err := s.writer.Update(doc.ID(), doc); err != nil {
		return fmt.Errorf("failed to index utterance: %w", err)
	}
	return nil
}

// Search は、セッション内の発言を全文検索し、スコア順に最大 topK 件を返します。
func (s *Store) Search(ctx context.Context, sessionID, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 10
	}

	reader, err := s.writer.Reader()
	if err != nil {
		return nil, fmt.Errorf("failed to open index reader: %w", err)
	}
	defer reader.Close()

	q := bluge.NewBooleanQuery().
		AddMust(bluge.NewTermQuery(sessionID).SetField("session")).
		AddMust(bluge.NewMatchQuery(query).SetField("content"))

	it, err := reader.Search(ctx, bluge.NewTopNSearch(topK, q))
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	var results []Result
	for {
		match, err := it.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate search results: %w", err)
		}
		if match == nil {
			break
		}

		r := Result{Score: match.Score}
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "sender":
				r.Sender = string(value)
			case "content":
				r.Content = string(value)
			}
			return true
		})
		if err != nil {
			return nil, fmt.Errorf("failed to load stored fields: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// Close は、アーカイブとインデックスを閉じます。
func (s *Store) Close() error {
	if err := s.writer.Close(); err != nil {
		s.log.Error("failed to close bluge writer", "error", err)
	}
	return s.db.Close()
}

var _ Recorder = (*Store)(nil)
