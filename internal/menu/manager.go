// Package menu implements the quota-enforcing manager for an organization's
// menu image set. It pairs metadata records with blob-store objects and keeps
// the set bounded at write time.
package menu

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/blob"
	"github.com/menuhub/menuhub/internal/models"
	"github.com/menuhub/menuhub/internal/store"
	"github.com/menuhub/menuhub/internal/telemetry"
)

// MaxImages is the maximum number of menu images an organization may have
// active simultaneously. Fixed platform-wide, not per-tenant configurable.
const MaxImages = 5

// QuotaExceededError rejects an upload batch that would push an organization
// past MaxImages. Remaining is the exact number of slots still open, so the
// caller can tell the user precisely how many files would fit.
type QuotaExceededError struct {
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	if e.Remaining == 1 {
		return "image quota exceeded: 1 slot remaining"
	}
	return fmt.Sprintf("image quota exceeded: %d slots remaining", e.Remaining)
}

// File is one uploaded image in a batch.
type File struct {
	Name        string // original file name, source of the extension
	ContentType string
	Body        io.Reader
}

// Manager owns the lifecycle of an organization's menu image set. All
// blocking operations go to the metadata and blob stores; the stores are the
// only synchronization points, so the manager works unchanged across
// multiple server instances.
type Manager struct {
	images store.MenuImageStore
	blobs  blob.Store

	now func() time.Time
}

// NewManager creates a new menu image set manager.
func NewManager(images store.MenuImageStore, blobs blob.Store) *Manager {
	return &Manager{
		images: images,
		blobs:  blobs,
		now:    time.Now,
	}
}

// Upload admits a batch of files into an organization's image set. The whole
// batch is checked against the quota before any file is written; a batch that
// doesn't fit is rejected outright with the exact number of remaining slots
// and no partial admission.
//
// Files are processed strictly in input order: each is written to the blob
// store, then registered as a metadata record. The first unrecoverable error
// stops the batch; files already committed stay committed, and the returned
// count says how many made it. A blob written whose record insert failed is
// an orphan - logged with enough context to locate it, not rolled back.
//
// The quota check and all inserts happen inside the organization's
// serialized critical section, so two concurrent uploads cannot jointly
// exceed MaxImages.
func (m *Manager) Upload(ctx context.Context, org *models.Organization, files []File) (int, error) {
	if len(files) == 0 {
		return 0, nil
	}

	started := time.Now()
	defer func() {
		telemetry.GetMetrics().UploadBatchDuration.Record(ctx, float64(time.Since(started).Milliseconds()))
	}()

	unlock, err := m.images.Lock(ctx, org.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock image set for %s: %w", org.Slug, err)
	}
	defer unlock()

	// Recount under the lock, never from a cached value
	count, err := m.images.CountByOrganization(ctx, org.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to count images for %s: %w", org.Slug, err)
	}

	// Clamp at zero so a set seeded past the limit outside the manager
	// still reports "0 slots remaining", never a negative count.
	remaining := max(MaxImages-count, 0)
	if len(files) > remaining {
		telemetry.GetMetrics().UploadRejectedTotal.Add(ctx, 1)
		return 0, &QuotaExceededError{Remaining: remaining}
	}

	added := 0
	for _, f := range files {
		key := org.Slug + "/" + m.fileName(f.Name)

		publicURL, err := m.blobs.Put(ctx, key, f.Body, f.ContentType)
		if err != nil {
			log.Error().
				Err(err).
				Str("org_id", org.ID.String()).
				Str("op", "upload").
				Str("key", key).
				Msg("Blob store write failed")
			return added, fmt.Errorf("failed to store image %s: %w", key, err)
		}

		id, err := uuid.NewV7()
		if err != nil {
			return added, fmt.Errorf("failed to generate image id: %w", err)
		}

		img := &models.MenuImage{
			ID:             id,
			OrganizationID: org.ID,
			ImageURL:       publicURL,
			CreatedAt:      m.now(),
		}

		if err := m.images.Insert(ctx, img); err != nil {
			// The blob is already written; it stays behind as an orphan.
			telemetry.GetMetrics().OrphanedBlobsTotal.Add(ctx, 1)
			log.Error().
				Err(err).
				Str("org_id", org.ID.String()).
				Str("op", "upload").
				Str("key", key).
				Msg("Image record insert failed, blob orphaned")
			return added, fmt.Errorf("failed to register image %s: %w", key, err)
		}

		added++
	}

	telemetry.GetMetrics().ImagesUploadedTotal.Add(ctx, int64(added))

	log.Info().
		Str("org_id", org.ID.String()).
		Int("added", added).
		Msg("Uploaded menu images")

	return added, nil
}

// Remove deletes one image from an organization's set. The metadata record
// goes first: the image must disappear from the tenant's set even if blob
// cleanup fails afterward. A failed blob delete is a logged leak, not an
// error. Removing an image that doesn't exist, or that belongs to another
// organization, returns store.ErrMenuImageNotFound.
func (m *Manager) Remove(ctx context.Context, orgID, imageID uuid.UUID) error {
	img, err := m.images.Get(ctx, imageID)
	if err != nil {
		return err
	}

	// An id from another tenant's set is indistinguishable from a missing one
	if img.OrganizationID != orgID {
		return store.ErrMenuImageNotFound
	}

	if err := m.images.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}

	telemetry.GetMetrics().ImagesDeletedTotal.Add(ctx, 1)

	key := blobKeyFromURL(img.ImageURL)
	if key == "" {
		log.Warn().
			Str("org_id", orgID.String()).
			Str("image_url", img.ImageURL).
			Msg("Could not derive blob key from image URL")
		return nil
	}

	if err := m.blobs.Delete(ctx, key); err != nil {
		log.Error().
			Err(err).
			Str("org_id", orgID.String()).
			Str("op", "remove").
			Str("key", key).
			Msg("Blob delete failed, object leaked")
	}

	return nil
}

// List returns an organization's images, newest first. The same ordering
// serves quota accounting and display.
func (m *Manager) List(ctx context.Context, orgID uuid.UUID) ([]*models.MenuImage, error) {
	return m.images.ListByOrganization(ctx, orgID)
}

// fileName generates a collision-free object name from the upload timestamp
// and the original file's extension. Uploads within one request are
// sequential, so a nanosecond timestamp is enough.
func (m *Manager) fileName(original string) string {
	return fmt.Sprintf("%d%s", m.now().UnixNano(), path.Ext(original))
}

// blobKeyFromURL recovers the "{slug}/{fileName}" key from a stored public
// URL, the last two segments of its path.
func blobKeyFromURL(imageURL string) string {
	u, err := url.Parse(imageURL)
	if err != nil {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) < 2 {
		return ""
	}

	return segments[len(segments)-2] + "/" + segments[len(segments)-1]
}
