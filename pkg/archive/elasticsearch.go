package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/regalspin/gamepanel/internal/logging"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
)

// Config holds the Elasticsearch connection settings for the archiver
type Config struct {
	URL         string
	Username    string
	Password    string
	IndexPrefix string
	BatchSize   int
}

const historyMapping = `{
	"mappings": {
		"properties": {
			"id":         { "type": "keyword" },
			"user_id":    { "type": "keyword" },
			"request_id": { "type": "keyword" },
			"action":     { "type": "keyword" },
			"is_error":   { "type": "boolean" },
			"timestamp":  { "type": "date" },
			"details": {
				"properties": {
					"game":         { "type": "keyword" },
					"amount":       { "type": "long" },
					"reason":       { "type": "text" },
					"counterparty": { "type": "keyword" }
				}
			}
		}
	}
}`

// Archiver copies history entries from the ledger store into monthly
// Elasticsearch indices. Documents are keyed by entry id, so replaying an
// overlap after a crash only overwrites identical documents.
type Archiver struct {
	client *elasticsearch.Client
	ledger ledgerRepo.Repository
	config *Config
	logger *logging.Logger

	mu        sync.Mutex
	watermark time.Time
}

// NewArchiver creates a new history archiver
func NewArchiver(ledger ledgerRepo.Repository, config *Config, logger *logging.Logger) (*Archiver, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{config.URL},
	}
	if config.Username != "" && config.Password != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("error creating Elasticsearch client: %w", err)
	}

	if config.IndexPrefix == "" {
		config.IndexPrefix = "gamepanel"
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if logger == nil {
		logger = logging.Default
	}

	return &Archiver{
		client: client,
		ledger: ledger,
		config: config,
		logger: logger,
	}, nil
}

// Run archives everything written since the previous run. Intended as a
// scheduler task; the first run picks up the whole history.
func (a *Archiver) Run(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// The id cursor disambiguates runs of equal second-resolution
	// timestamps; without it a full batch ending on a tie would refetch
	// the same rows forever. It resets between runs so entries written
	// into the boundary second after this run are picked up by the next
	// one (re-indexing by document id is a no-op).
	since := a.watermark
	afterID := ""
	total := 0

	for {
		entries, err := a.ledger.GetHistorySince(ctx, since, afterID, a.config.BatchSize)
		if err != nil {
			return fmt.Errorf("error loading history entries: %w", err)
		}
		if len(entries) == 0 {
			break
		}

		for _, entry := range entries {
			if err := a.indexEntry(ctx, entry); err != nil {
				return err
			}
		}

		total += len(entries)
		last := entries[len(entries)-1]
		since = last.Timestamp
		afterID = last.ID
		a.watermark = since

		if len(entries) < a.config.BatchSize {
			break
		}
	}

	if total > 0 {
		a.logger.Info("[ARCHIVE] Indexed %d history entries", total)
	}
	return nil
}

// indexEntry writes one history entry into its monthly index
func (a *Archiver) indexEntry(ctx context.Context, entry *entities.HistoryEntry) error {
	index := a.indexFor(entry.Timestamp)
	if err := a.ensureIndex(ctx, index); err != nil {
		return err
	}

	doc := map[string]interface{}{
		"id":         entry.ID,
		"user_id":    entry.UserID,
		"request_id": entry.RequestID,
		"action":     entry.Action,
		"details":    entry.Details,
		"is_error":   entry.IsError,
		"timestamp":  entry.Timestamp,
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling history entry: %w", err)
	}

	res, err := a.client.Index(
		index,
		bytes.NewReader(jsonData),
		a.client.Index.WithContext(ctx),
		a.client.Index.WithDocumentID(entry.ID),
	)
	if err != nil {
		return fmt.Errorf("error indexing history entry: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error indexing history entry: %s", res.String())
	}
	return nil
}

// ensureIndex creates the monthly index with the history mapping if it
// doesn't exist yet
func (a *Archiver) ensureIndex(ctx context.Context, index string) error {
	res, err := a.client.Indices.Exists([]string{index},
		a.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error checking index existence: %w", err)
	}
	res.Body.Close()

	if res.StatusCode != 404 {
		return nil
	}

	req := esapi.IndicesCreateRequest{
		Index: index,
		Body:  bytes.NewReader([]byte(historyMapping)),
	}
	createRes, err := req.Do(ctx, a.client)
	if err != nil {
		return fmt.Errorf("error creating history index: %w", err)
	}
	defer createRes.Body.Close()

	// A concurrent creator winning the race is fine
	if createRes.IsError() && createRes.StatusCode != 400 {
		return fmt.Errorf("error creating history index: %s", createRes.String())
	}
	return nil
}

func (a *Archiver) indexFor(t time.Time) string {
	return fmt.Sprintf("%s_history_%s", a.config.IndexPrefix, t.UTC().Format("2006_01"))
}
