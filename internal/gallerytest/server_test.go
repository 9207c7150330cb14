package gallerytest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardlift/cardlift/internal/gallery"
	"github.com/cardlift/cardlift/internal/upload"
)

func startFake(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	fake := New(opts)
	srv := httptest.NewServer(fake.Router())
	t.Cleanup(srv.Close)
	return fake, srv
}

func newClient(t *testing.T, endpoint, token string) *gallery.Client {
	t.Helper()
	client, err := gallery.New(gallery.Config{
		Endpoint: endpoint,
		Tokens:   gallery.StaticToken(token),
	})
	require.NoError(t, err)
	return client
}

func galleryItems(n int) []upload.Item {
	items := make([]upload.Item, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, upload.Item{
			ID: fmt.Sprintf("item-%02d", i),
			Blob: upload.Blob{
				Filename: fmt.Sprintf("card-%02d.png", i),
				MIMEType: "image/png",
				Data:     []byte{0x89, 'P', 'N', 'G', byte(i)},
			},
			Name:   fmt.Sprintf("Card %02d", i),
			Series: "Test Series",
			Rarity: upload.RarityRare,
		})
	}
	return items
}

func TestEndToEnd_AllAccepted(t *testing.T) {
	fake, srv := startFake(t, Options{Token: "secret"})
	client := newClient(t, srv.URL, "secret")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(25))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, upload.StatusComplete, sess.Status())
	assert.Len(t, res.Accepted, 25)
	assert.Equal(t, 25, res.TotalCreated)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.BlockedOrErrors)
	assert.Equal(t, 100, sess.Progress().Percentage)

	assert.Equal(t, 3, fake.Calls())
	assert.Len(t, fake.Characters(), 25)
}

func TestEndToEnd_ConflictOnExistingName(t *testing.T) {
	fake, srv := startFake(t, Options{Existing: []string{"Card 12"}})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(25))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, upload.StatusComplete, sess.Status())
	assert.Len(t, res.Accepted, 15)
	require.Len(t, res.BlockedOrErrors, 10)
	for _, rec := range res.BlockedOrErrors {
		assert.Equal(t, upload.BucketBlocked, rec.Bucket)
		assert.True(t, rec.IsDuplicate)
		assert.Contains(t, rec.Message, "already exists")
		require.NotNil(t, rec.ExistingMatch)
		assert.Equal(t, "Card 12", rec.ExistingMatch.Name)
	}

	// The conflicting batch was rejected before anything was committed.
	assert.Len(t, fake.Characters(), 15)
}

func TestEndToEnd_BadTokenFailsEveryBatch(t *testing.T) {
	fake, srv := startFake(t, Options{Token: "secret"})
	client := newClient(t, srv.URL, "wrong")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(25))
	require.NoError(t, err)

	// Transport failures are classified per item, not session-terminating.
	assert.True(t, res.Success)
	assert.Equal(t, upload.StatusComplete, sess.Status())
	assert.Empty(t, res.Accepted)
	require.Len(t, res.BlockedOrErrors, 25)
	for _, rec := range res.BlockedOrErrors {
		assert.Equal(t, upload.BucketError, rec.Bucket)
		assert.Contains(t, rec.Message, "401")
	}

	assert.Equal(t, 3, fake.Calls())
	assert.Empty(t, fake.Characters())
}

func TestEndToEnd_RejectedFileWinsOverCreated(t *testing.T) {
	fake, srv := startFake(t, Options{})
	fake.RejectFile("card-07.png", Rejection{
		Message:     "image already in review queue",
		DuplicateOf: "char-original",
	})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(10))
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 9)
	require.Len(t, res.BlockedOrErrors, 1)
	rec := res.BlockedOrErrors[0]
	assert.Equal(t, upload.BucketError, rec.Bucket)
	assert.Equal(t, "item-07", rec.ItemID)
	assert.Equal(t, "card-07.png", rec.Filename)
	assert.True(t, rec.IsDuplicate)

	assert.Len(t, fake.Characters(), 9)
}

func TestEndToEnd_NearDuplicateWarning(t *testing.T) {
	fake, srv := startFake(t, Options{
		NearDuplicates: map[string]float64{"Card 03": 0.93},
	})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(10))
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 9)
	require.Len(t, res.Warnings, 1)
	warn := res.Warnings[0]
	assert.Equal(t, "item-03", warn.ItemID)
	require.NotNil(t, warn.Similarity)
	assert.InDelta(t, 0.93, *warn.Similarity, 1e-9)
	require.NotNil(t, warn.ExistingMatch)

	// Flagged entities are held for review, not committed.
	assert.Len(t, fake.Characters(), 9)
}

func TestEndToEnd_BatchWarningDemotesAll(t *testing.T) {
	_, srv := startFake(t, Options{BatchWarning: "similarity service degraded"})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(5))
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Empty(t, res.Accepted)
	assert.Len(t, res.Warnings, 5)
	for _, rec := range res.Warnings {
		assert.Equal(t, "similarity service degraded", rec.Message)
	}
}

func TestEndToEnd_InjectedFailureThenRetry(t *testing.T) {
	fake, srv := startFake(t, Options{})
	fake.FailNext(http.StatusInternalServerError)
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	items := galleryItems(20)
	res, err := sess.Start(context.Background(), items)
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Len(t, res.Accepted, 10)
	require.Len(t, res.BlockedOrErrors, 10)
	for _, rec := range res.BlockedOrErrors {
		assert.Equal(t, upload.BucketError, rec.Bucket)
	}

	retryRes, err := sess.RetryFailed(context.Background(), items)
	require.NoError(t, err)

	assert.True(t, retryRes.Success)
	assert.Len(t, retryRes.Accepted, 10)
	assert.Empty(t, retryRes.BlockedOrErrors)
	assert.Equal(t, upload.StatusComplete, sess.Status())

	assert.Equal(t, 3, fake.Calls())
	assert.Len(t, fake.Characters(), 20)
}

func TestEndToEnd_EmptyFileRejected(t *testing.T) {
	fake, srv := startFake(t, Options{})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	items := galleryItems(3)
	items[1].Blob.Data = nil

	res, err := sess.Start(context.Background(), items)
	require.NoError(t, err)

	assert.Len(t, res.Accepted, 2)
	require.Len(t, res.BlockedOrErrors, 1)
	assert.Equal(t, "item-01", res.BlockedOrErrors[0].ItemID)
	assert.Contains(t, res.BlockedOrErrors[0].Message, "empty file")
	assert.Len(t, fake.Characters(), 2)
}

func TestEndToEnd_CancelBetweenBatches(t *testing.T) {
	fake, srv := startFake(t, Options{})
	client := newClient(t, srv.URL, "")

	var sess *upload.Session
	observer := upload.ObserverFuncs{
		OnBatchComplete: func(batchIndex, batchCount int, outcome upload.Outcome) {
			if batchIndex == 0 {
				sess.Cancel()
			}
		},
	}

	sess, err := upload.NewSession(client, upload.WithBatchSize(10), upload.WithObserver(observer))
	require.NoError(t, err)

	res, err := sess.Start(context.Background(), galleryItems(25))
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.True(t, res.Cancelled)
	assert.Equal(t, upload.StatusCancelled, sess.Status())
	assert.Len(t, res.Accepted, 10)
	assert.Equal(t, 1, fake.Calls())
	assert.Equal(t, 10, sess.Progress().Processed)
}

func TestEndToEnd_CancelDuringExchange(t *testing.T) {
	fake, srv := startFake(t, Options{Latency: 300 * time.Millisecond})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		time.Sleep(50 * time.Millisecond)
		sess.Cancel()
	}()

	res, err := sess.Start(context.Background(), galleryItems(20))
	require.NoError(t, err)
	wg.Wait()

	assert.True(t, res.Cancelled)
	assert.Equal(t, upload.StatusCancelled, sess.Status())
	assert.Empty(t, res.Accepted)
	assert.Equal(t, 0, sess.Progress().Processed)
	assert.Equal(t, 1, fake.Calls())
	assert.Empty(t, fake.Characters())
}

func TestServer_HealthAndList(t *testing.T) {
	fake, srv := startFake(t, Options{})
	client := newClient(t, srv.URL, "")

	sess, err := upload.NewSession(client, upload.WithBatchSize(10))
	require.NoError(t, err)
	_, err = sess.Start(context.Background(), galleryItems(4))
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, DefaultAPIVersion, resp.Header.Get(gallery.APIVersionHeader))

	listResp, err := http.Get(srv.URL + "/api/characters")
	require.NoError(t, err)
	defer func() { _ = listResp.Body.Close() }()

	var listing struct {
		Characters []upload.CreatedEntity `json:"characters"`
	}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&listing))
	assert.Len(t, listing.Characters, 4)

	fake.Reset()
	assert.Empty(t, fake.Characters())
	assert.Equal(t, 0, fake.Calls())
}

func TestServer_MalformedPayloadRejected(t *testing.T) {
	_, srv := startFake(t, Options{})

	resp, err := http.Post(srv.URL+gallery.BatchUploadPath, "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
