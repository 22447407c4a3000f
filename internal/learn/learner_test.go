package learn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftd/sift/internal/common"
	"github.com/siftd/sift/internal/match"
	"github.com/siftd/sift/internal/model"
	"github.com/siftd/sift/internal/rules"
)

type recordingStore struct {
	saved   []model.MerchantMapping
	saveErr error
}

func (r *recordingStore) SaveMapping(_ context.Context, mapping *model.MerchantMapping) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, *mapping)
	return nil
}

func testStore(t *testing.T) *rules.Store {
	t.Helper()
	store, err := rules.Load(rules.Config{
		Categories: []rules.CategoryConfig{
			{
				Name:      "Entertainment",
				Keywords:  []string{"streaming"},
				Merchants: []string{"Netflix"},
			},
			{
				Name:     "Education",
				Keywords: []string{"tuition"},
			},
		},
		Validation: rules.ValidationConfig{
			GlobalBands: []rules.BandConfig{
				{Label: "standard", Lower: 0, Upper: 0, MaxCap: 1000000},
			},
		},
	})
	require.NoError(t, err)
	return store
}

func TestRecordCorrection(t *testing.T) {
	store := testStore(t)
	persist := &recordingStore{}
	learner := New(store, persist)

	err := learner.RecordCorrection(context.Background(), "Coursera", "Education")
	require.NoError(t, err)

	mapping, ok := store.LookupMerchant("coursera")
	require.True(t, ok)
	assert.Equal(t, "Education", mapping.Category)
	assert.Equal(t, model.SourceLearned, mapping.Source)

	require.Len(t, persist.saved, 1)
	assert.Equal(t, "coursera", persist.saved[0].Merchant)
	assert.Equal(t, "Education", persist.saved[0].Category)
}

func TestRecordCorrection_UnknownCategory(t *testing.T) {
	learner := New(testStore(t), &recordingStore{})

	err := learner.RecordCorrection(context.Background(), "Coursera", "Gambling")
	assert.ErrorIs(t, err, common.ErrUnknownCategory)
}

func TestRecordCorrection_EmptyMerchant(t *testing.T) {
	learner := New(testStore(t), &recordingStore{})

	err := learner.RecordCorrection(context.Background(), "   ", "Education")
	require.Error(t, err)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestRecordCorrection_IdempotentSecondCall(t *testing.T) {
	store := testStore(t)
	persist := &recordingStore{}
	learner := New(store, persist)

	require.NoError(t, learner.RecordCorrection(context.Background(), "Coursera", "Education"))
	require.NoError(t, learner.RecordCorrection(context.Background(), "COURSERA", "Education"))

	assert.Len(t, persist.saved, 1)
}

func TestRecordCorrection_LearnedOutranksKeyword(t *testing.T) {
	store := testStore(t)
	learner := New(store, nil)
	matcher := match.New(store)

	txn := model.Transaction{Description: "ACME STREAMING SERVICE"}
	before := matcher.Classify(txn)
	assert.Equal(t, "Entertainment", before.Category)
	assert.Equal(t, model.MethodKeyword, before.Method)

	require.NoError(t, learner.RecordCorrection(context.Background(), "ACME STREAMING SERVICE", "Education"))

	after := matcher.Classify(txn)
	assert.Equal(t, "Education", after.Category)
	assert.Equal(t, model.MethodExactMerchant, after.Method)
	assert.Equal(t, 100, after.Confidence)
}

func TestRecordCorrection_PersistFailureSurfaces(t *testing.T) {
	persistErr := errors.New("disk full")
	learner := New(testStore(t), &recordingStore{saveErr: persistErr})

	err := learner.RecordCorrection(context.Background(), "Coursera", "Education")
	assert.ErrorIs(t, err, persistErr)
}
