package archive

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regalspin/gamepanel/internal/logging"
	"github.com/regalspin/gamepanel/pkg/entities"
	ledgerRepo "github.com/regalspin/gamepanel/pkg/repositories/ledger"
)

// fakeElastic accepts every request and records the document ids written
// through the index API
type fakeElastic struct {
	mu     sync.Mutex
	docIDs []string
}

func (f *fakeElastic) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) == 3 && parts[1] == "_doc" {
			f.mu.Lock()
			f.docIDs = append(f.docIDs, parts[2])
			f.mu.Unlock()
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	})
}

func (f *fakeElastic) docs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.docIDs...)
}

func TestRunAdvancesPastEqualTimestamps(t *testing.T) {
	es := &fakeElastic{}
	server := httptest.NewServer(es.handler())
	defer server.Close()

	ledger := ledgerRepo.NewMemoryRepository()
	ctx := context.Background()

	// Three entries in one second with a batch size of two forces a batch
	// boundary inside the timestamp tie
	shared := time.Now().Truncate(time.Second)
	for _, id := range []string{"h1", "h2", "h3"} {
		entry := &entities.HistoryEntry{ID: id, UserID: "u1", Action: "Deposit Approved", Timestamp: shared}
		require.NoError(t, ledger.AddHistory(ctx, entry))
	}

	archiver, err := NewArchiver(ledger, &Config{URL: server.URL, BatchSize: 2}, logging.Default)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- archiver.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not terminate on a batch ending in equal timestamps")
	}

	assert.ElementsMatch(t, []string{"h1", "h2", "h3"}, es.docs())

	// An entry written into the boundary second after the first run still
	// gets archived by the next one
	later := &entities.HistoryEntry{ID: "h4", UserID: "u1", Action: "Redeem Approved", Timestamp: shared}
	require.NoError(t, ledger.AddHistory(ctx, later))
	require.NoError(t, archiver.Run(ctx))
	assert.Contains(t, es.docs(), "h4")
}
