package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelrx/costco-inventory-scraper/internal/models"
)

// fakeSink stores records by conflict key and can inject failures.
type fakeSink struct {
	stored  map[string]models.ProductRecord
	failOn  map[string]error
	upserts int
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		stored: make(map[string]models.ProductRecord),
		failOn: make(map[string]error),
	}
}

func (f *fakeSink) Upsert(_ context.Context, record *models.ProductRecord) error {
	f.upserts++
	if err := f.failOn[record.ProductURL]; err != nil {
		return err
	}
	f.stored[record.ProductURL] = *record
	return nil
}

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) PublishProductSaved(_ context.Context, record *models.ProductRecord) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, record.ProductURL)
	return nil
}

func record(name, url string) *models.ProductRecord {
	r := models.NewProductRecord(models.CategoryPantry, "Sandy, UT")
	r.Name = name
	r.ProductURL = url
	return r
}

func TestUpsertBatchSavesAll(t *testing.T) {
	sink := newFakeSink()
	u := NewUpserter(sink, nil, nil, slog.Default())

	records := []*models.ProductRecord{
		record("Almond Butter", "https://www.costco.com/almond-butter.product.100.html"),
		record("Olive Oil", "https://www.costco.com/olive-oil.product.200.html"),
	}

	saved := u.UpsertBatch(context.Background(), records)
	assert.Equal(t, 2, saved)
	assert.Len(t, sink.stored, 2)
}

func TestUpsertBatchSkipsRecordsWithoutConflictKey(t *testing.T) {
	sink := newFakeSink()
	u := NewUpserter(sink, nil, nil, slog.Default())

	records := []*models.ProductRecord{
		record("Keyed", "https://www.costco.com/keyed.product.1.html"),
		record("Unkeyed", ""),
	}

	saved := u.UpsertBatch(context.Background(), records)
	assert.Equal(t, 1, saved)
	// The unkeyed record must not reach the sink at all.
	assert.Equal(t, 1, sink.upserts)
}

func TestUpsertBatchIsolatesFailures(t *testing.T) {
	sink := newFakeSink()
	u := NewUpserter(sink, nil, nil, slog.Default())

	const n = 5
	records := make([]*models.ProductRecord, 0, n)
	for i := 0; i < n; i++ {
		records = append(records,
			record(fmt.Sprintf("Item %d", i), fmt.Sprintf("https://www.costco.com/item.product.%d.html", i)))
	}
	sink.failOn[records[2].ProductURL] = errors.New("connection reset")

	saved := u.UpsertBatch(context.Background(), records)
	assert.Equal(t, n-1, saved)
	assert.Len(t, sink.stored, n-1)
	assert.NotContains(t, sink.stored, records[2].ProductURL)
}

func TestUpsertBatchIdempotent(t *testing.T) {
	sink := newFakeSink()
	u := NewUpserter(sink, nil, nil, slog.Default())

	records := []*models.ProductRecord{
		record("Rotisserie Chicken", "https://www.costco.com/chicken.product.7.html"),
	}

	first := u.UpsertBatch(context.Background(), records)
	stateAfterFirst := sink.stored[records[0].ProductURL]

	second := u.UpsertBatch(context.Background(), records)
	stateAfterSecond := sink.stored[records[0].ProductURL]

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, stateAfterFirst, stateAfterSecond)
	assert.Len(t, sink.stored, 1)
}

func TestUpsertBatchPublishesSavedEvents(t *testing.T) {
	sink := newFakeSink()
	pub := &fakePublisher{}
	u := NewUpserter(sink, pub, nil, slog.Default())

	records := []*models.ProductRecord{
		record("Keyed", "https://www.costco.com/keyed.product.1.html"),
		record("Unkeyed", ""),
	}

	u.UpsertBatch(context.Background(), records)
	require.Len(t, pub.published, 1)
	assert.Equal(t, records[0].ProductURL, pub.published[0])
}

func TestUpsertBatchPublishFailureDoesNotAffectCount(t *testing.T) {
	sink := newFakeSink()
	pub := &fakePublisher{err: errors.New("stream unavailable")}
	u := NewUpserter(sink, pub, nil, slog.Default())

	saved := u.UpsertBatch(context.Background(), []*models.ProductRecord{
		record("Item", "https://www.costco.com/item.product.1.html"),
	})
	assert.Equal(t, 1, saved)
}

func TestUpsertBatchEmpty(t *testing.T) {
	u := NewUpserter(newFakeSink(), nil, nil, slog.Default())
	assert.Zero(t, u.UpsertBatch(context.Background(), nil))
}
