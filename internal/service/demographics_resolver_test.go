package service

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cds-rules-server/internal/domain"
)

type countingRecordStore struct {
	stubRecordStore
	demographicsReads int
}

func (s *countingRecordStore) GetDemographics(ctx context.Context, patientID string) (*domain.Demographics, error) {
	s.demographicsReads++
	return s.stubRecordStore.GetDemographics(ctx, patientID)
}

func TestResolverCachesRepeatLookups(t *testing.T) {
	store := &countingRecordStore{
		stubRecordStore: stubRecordStore{
			demographics: map[string]*domain.Demographics{
				"p1": {PatientID: "p1", Gender: domain.FEMALE, BirthDate: time.Date(1975, 3, 10, 0, 0, 0, 0, time.UTC)},
			},
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	resolver, err := NewCachedDemographicsResolver(DemographicsResolverConfig{}, store, nil, logger)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		demo, err := resolver.GetDemographics(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, domain.FEMALE, demo.Gender)
	}

	assert.Equal(t, 1, store.demographicsReads, "repeat lookups must hit the memory tier")

	stats := resolver.GetStats()
	assert.Equal(t, int64(3), stats.TotalRequests)
	assert.Equal(t, int64(2), stats.MemoryHits)
	assert.Equal(t, int64(1), stats.StoreReads)
}

func TestResolverInvalidateForcesStoreRead(t *testing.T) {
	store := &countingRecordStore{
		stubRecordStore: stubRecordStore{
			demographics: map[string]*domain.Demographics{
				"p1": {PatientID: "p1", Gender: domain.MALE},
			},
		},
	}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	resolver, err := NewCachedDemographicsResolver(DemographicsResolverConfig{}, store, nil, logger)
	require.NoError(t, err)

	_, err = resolver.GetDemographics(context.Background(), "p1")
	require.NoError(t, err)

	resolver.Invalidate(context.Background(), "p1")

	_, err = resolver.GetDemographics(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, store.demographicsReads)
}

func TestResolverErrors(t *testing.T) {
	store := &countingRecordStore{stubRecordStore: stubRecordStore{}}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	resolver, err := NewCachedDemographicsResolver(DemographicsResolverConfig{}, store, nil, logger)
	require.NoError(t, err)

	_, err = resolver.GetDemographics(context.Background(), "  ")
	assert.Error(t, err)

	_, err = resolver.GetDemographics(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats := resolver.GetStats()
	assert.Equal(t, int64(2), stats.ErrorCount)
}
