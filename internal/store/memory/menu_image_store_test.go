package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
)

func newMenuImage(orgID uuid.UUID, createdAt time.Time) *models.MenuImage {
	return &models.MenuImage{
		ID:             uuid.New(),
		OrganizationID: orgID,
		ImageURL:       "https://cdn.example.com/menus/" + uuid.NewString() + ".jpg",
		CreatedAt:      createdAt,
	}
}

func TestMenuImageStore_InsertAndGet(t *testing.T) {
	st := NewMenuImageStore()
	ctx := context.Background()

	img := newMenuImage(uuid.New(), time.Now())
	require.NoError(t, st.Insert(ctx, img))

	got, err := st.Get(ctx, img.ID)
	require.NoError(t, err)
	require.Equal(t, img.ImageURL, got.ImageURL)

	_, err = st.Get(ctx, uuid.New())
	require.ErrorIs(t, err, store.ErrMenuImageNotFound)
}

func TestMenuImageStore_Delete(t *testing.T) {
	st := NewMenuImageStore()
	ctx := context.Background()

	img := newMenuImage(uuid.New(), time.Now())
	require.NoError(t, st.Insert(ctx, img))

	require.NoError(t, st.Delete(ctx, img.ID))

	err := st.Delete(ctx, img.ID)
	require.ErrorIs(t, err, store.ErrMenuImageNotFound)
}

func TestMenuImageStore_ListByOrganization(t *testing.T) {
	st := NewMenuImageStore()
	ctx := context.Background()

	orgA := uuid.New()
	orgB := uuid.New()
	base := time.Now()

	oldest := newMenuImage(orgA, base)
	newest := newMenuImage(orgA, base.Add(time.Minute))
	require.NoError(t, st.Insert(ctx, oldest))
	require.NoError(t, st.Insert(ctx, newest))
	require.NoError(t, st.Insert(ctx, newMenuImage(orgB, base)))

	t.Run("newest first, tenant scoped", func(t *testing.T) {
		images, err := st.ListByOrganization(ctx, orgA)
		require.NoError(t, err)
		require.Len(t, images, 2)
		require.Equal(t, newest.ID, images[0].ID)
		require.Equal(t, oldest.ID, images[1].ID)
	})

	t.Run("count matches list", func(t *testing.T) {
		count, err := st.CountByOrganization(ctx, orgA)
		require.NoError(t, err)
		require.Equal(t, 2, count)

		count, err = st.CountByOrganization(ctx, uuid.New())
		require.NoError(t, err)
		require.Equal(t, 0, count)
	})
}

func TestMenuImageStore_Lock(t *testing.T) {
	t.Run("serializes the same organization", func(t *testing.T) {
		st := NewMenuImageStore()
		ctx := context.Background()
		orgID := uuid.New()

		var inSection int
		var maxInSection int
		var sectionMu sync.Mutex

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()

				unlock, err := st.Lock(ctx, orgID)
				require.NoError(t, err)
				defer unlock()

				sectionMu.Lock()
				inSection++
				if inSection > maxInSection {
					maxInSection = inSection
				}
				sectionMu.Unlock()

				time.Sleep(time.Millisecond)

				sectionMu.Lock()
				inSection--
				sectionMu.Unlock()
			}()
		}
		wg.Wait()

		require.Equal(t, 1, maxInSection)
	})

	t.Run("different organizations do not block each other", func(t *testing.T) {
		st := NewMenuImageStore()
		ctx := context.Background()

		unlockA, err := st.Lock(ctx, uuid.New())
		require.NoError(t, err)
		defer unlockA()

		done := make(chan struct{})
		go func() {
			unlockB, err := st.Lock(ctx, uuid.New())
			if err == nil {
				unlockB()
			}
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("lock on a different organization blocked")
		}
	})
}
