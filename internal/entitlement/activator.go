package entitlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"calltrack.pro/license/internal/client"
	"calltrack.pro/license/internal/logger"
)

var ErrVerificationInProgress = errors.New("a license verification is already in progress")

// Verifier is satisfied by *client.Client.
type Verifier interface {
	Verify(ctx context.Context, key string) (client.Outcome, error)
}

// Activator verifies a typed key and flips the local Pro flag on success.
// Invalid keys and failed calls leave an existing flag untouched.
type Activator struct {
	verifier Verifier
	store    Store
	inFlight sync.Mutex
	now      func() time.Time
}

func NewActivator(verifier Verifier, store Store) *Activator {
	return &Activator{
		verifier: verifier,
		store:    store,
		now:      time.Now,
	}
}

// Activate returns ErrVerificationInProgress without calling the API if
// another Activate is still outstanding.
func (a *Activator) Activate(ctx context.Context, key string) (client.Outcome, error) {
	if !a.inFlight.TryLock() {
		return 0, ErrVerificationInProgress
	}
	defer a.inFlight.Unlock()

	key = strings.TrimSpace(key)
	outcome, err := a.verifier.Verify(ctx, key)
	if err != nil {
		logger.Warn("License verification failed", map[string]interface{}{
			"outcome": outcome.String(),
			"error":   err.Error(),
		})
		return outcome, err
	}

	if outcome != client.OutcomeValid {
		logger.Info("License key rejected", map[string]interface{}{
			"outcome": outcome.String(),
		})
		return outcome, nil
	}

	state := State{
		IsPro:      true,
		VerifiedAt: a.now().UTC(),
		LicenseKey: key,
	}
	if err := a.store.Save(state); err != nil {
		return outcome, fmt.Errorf("license verified but could not be saved: %w", err)
	}

	logger.Info("Pro activated", map[string]interface{}{
		"license_key": key,
	})
	return outcome, nil
}

// IsPro reports the persisted flag.
func (a *Activator) IsPro() (bool, error) {
	state, err := a.store.Load()
	if err != nil {
		return false, err
	}
	return state.IsPro, nil
}
