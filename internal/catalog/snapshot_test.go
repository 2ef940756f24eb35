package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue-recommender/internal/models"
)

func TestNewSnapshot(t *testing.T) {
	items := map[models.ItemKind][]models.Item{
		models.KindVenue: {
			&models.Venue{VenueID: 1, Name: "A", Stars: 4},
			&models.Venue{VenueID: 2, Name: "B", Stars: 5},
			&models.Venue{VenueID: 1, Name: "A2", Stars: 3},
			&models.Event{EventID: 9, Name: "misfiled"},
			nil,
		},
		models.KindEvent: {
			&models.Event{EventID: 1, Name: "E", Likes: 300},
		},
	}

	snap := NewSnapshot(3, time.Unix(100, 0), items)

	assert.Equal(t, uint64(3), snap.Generation())
	assert.Equal(t, 3, snap.Len())
	assert.Equal(t, map[models.ItemKind]int{models.KindVenue: 2, models.KindEvent: 1}, snap.Counts())

	venues := snap.Items(models.KindVenue)
	require.Len(t, venues, 2)
	assert.Equal(t, "A2", venues[0].Title(), "later duplicate replaces earlier in place")

	it, ok := snap.Lookup(models.ItemKey{Kind: models.KindEvent, ID: 1})
	require.True(t, ok)
	assert.Equal(t, "E", it.Title())

	// ids are unique per kind only
	_, ok = snap.Lookup(models.ItemKey{Kind: models.KindEvent, ID: 2})
	assert.False(t, ok)
}

func TestSnapshot_TopRated(t *testing.T) {
	snap := NewSnapshot(1, time.Now(), map[models.ItemKind][]models.Item{
		models.KindVenue: {
			&models.Venue{VenueID: 1, Stars: 4.0},
			&models.Venue{VenueID: 2, Stars: 4.8},
			&models.Venue{VenueID: 3, Stars: 4.0},
		},
		models.KindEvent: {
			&models.Event{EventID: 1, Likes: 500}, // rating 5
		},
	})

	got := snap.TopRated(3, models.KindVenue, models.KindEvent)
	require.Len(t, got, 3)
	assert.Equal(t, models.ItemKey{Kind: models.KindEvent, ID: 1}, models.KeyOf(got[0]))
	assert.Equal(t, models.ItemKey{Kind: models.KindVenue, ID: 2}, models.KeyOf(got[1]))
	assert.Equal(t, models.ItemKey{Kind: models.KindVenue, ID: 1}, models.KeyOf(got[2]))

	assert.Len(t, snap.TopRated(0, models.KindVenue), 3)
	assert.Empty(t, EmptySnapshot().TopRated(5, models.AllKinds...))
}

func TestStore_SwapIsAtomicForReaders(t *testing.T) {
	store := NewStore()
	require.Equal(t, uint64(0), store.Current().Generation())

	build := func(gen uint64) *Snapshot {
		venues := make([]models.Item, 0, 50)
		for i := 0; i < 50; i++ {
			venues = append(venues, &models.Venue{VenueID: int64(i), Name: "v"})
		}
		return NewSnapshot(gen, time.Now(), map[models.ItemKind][]models.Item{models.KindVenue: venues})
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := store.Current()
				n := len(snap.Items(models.KindVenue))
				if snap.Generation() > 0 && n != 50 {
					t.Errorf("generation %d exposed %d venues", snap.Generation(), n)
					return
				}
			}
		}()
	}

	for gen := uint64(1); gen <= 20; gen++ {
		prev := store.Swap(build(gen))
		assert.Equal(t, gen-1, prev.Generation())
	}
	close(stop)
	wg.Wait()
}
