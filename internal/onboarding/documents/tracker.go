// internal/onboarding/documents/tracker.go
package documents

import (
	"context"
	"fmt"
	"path"
	"time"

	"carrier-onboarding/internal/common/errors"
	"carrier-onboarding/internal/common/logger"
	"carrier-onboarding/internal/common/metrics"
	"carrier-onboarding/internal/models"
)

// Storage persists uploaded document bytes and returns a stable location.
type Storage interface {
	Store(ctx context.Context, key string, data []byte) (string, error)
	Remove(ctx context.Context, key string) error
}

// Tracker records document uploads against a carrier's onboarding state.
// A slot is either absent or present; a failed upload leaves it absent.
type Tracker struct {
	storage Storage
	logger  logger.Logger
}

func NewTracker(storage Storage, log logger.Logger) *Tracker {
	return &Tracker{storage: storage, logger: log}
}

// Attach stores the upload and marks the slot present in the state.
// Re-uploading into an occupied slot replaces its contents.
func (t *Tracker) Attach(ctx context.Context, state *models.OnboardingState, slot models.DocumentSlot, filename string, data []byte, now time.Time) error {
	if !validSlot(slot) {
		return errors.NewValidationFailedError(fmt.Sprintf("unknown document slot: %s", slot))
	}
	if filename == "" {
		return errors.NewValidationFailedError("document filename is required")
	}
	if len(data) == 0 {
		return errors.NewValidationFailedError("document is empty")
	}

	start := time.Now()
	location, err := t.storage.Store(ctx, objectKey(state.CarrierID, slot, filename), data)
	if err != nil {
		metrics.ExternalCallFailures.WithLabelValues("storage", string(errors.ErrCodeDocumentStorageFailed)).Inc()
		t.logger.WithError(err).Error("document upload failed", map[string]interface{}{
			"carrierId": state.CarrierID,
			"slot":      string(slot),
		})
		return errors.NewDocumentStorageFailedError(string(slot), err)
	}
	metrics.ExternalCallDuration.WithLabelValues("storage").Observe(time.Since(start).Seconds())

	state.Documents[slot] = models.StoredDocument{
		Present:    true,
		Filename:   filename,
		Location:   location,
		UploadedAt: now,
	}

	t.logger.Info("document attached", map[string]interface{}{
		"carrierId": state.CarrierID,
		"slot":      string(slot),
		"location":  location,
	})
	return nil
}

// Clear empties a slot so the carrier can re-upload before submission.
// Clearing an already-empty slot is a no-op. Removal from storage is
// best effort; the slot is absent either way.
func (t *Tracker) Clear(ctx context.Context, state *models.OnboardingState, slot models.DocumentSlot) error {
	if !validSlot(slot) {
		return errors.NewValidationFailedError(fmt.Sprintf("unknown document slot: %s", slot))
	}

	doc, ok := state.Documents[slot]
	if !ok || !doc.Present {
		return nil
	}

	delete(state.Documents, slot)

	if doc.Filename != "" {
		if err := t.storage.Remove(ctx, objectKey(state.CarrierID, slot, doc.Filename)); err != nil {
			t.logger.WithError(err).Warn("failed to remove stored document", map[string]interface{}{
				"carrierId": state.CarrierID,
				"slot":      string(slot),
			})
		}
	}

	t.logger.Info("document slot cleared", map[string]interface{}{
		"carrierId": state.CarrierID,
		"slot":      string(slot),
	})
	return nil
}

func validSlot(slot models.DocumentSlot) bool {
	switch slot {
	case models.SlotInsuranceCertificate, models.SlotTaxForm,
		models.SlotBankTaxForm, models.SlotVoidedCheck:
		return true
	}
	return false
}

func objectKey(carrierID string, slot models.DocumentSlot, filename string) string {
	return path.Join("onboarding", carrierID, string(slot), filename)
}
