package records

import (
	"bytes"
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ruteri/record-store/interfaces"
)

const (
	localSide  = "local"
	remoteSide = "remote"
)

// consistencyChecker compares what the local and remote backends hold for a
// key. It only detects divergence and never repairs it.
type consistencyChecker struct {
	local  interfaces.RecordBackend
	remote interfaces.RecordBackend
	log    *slog.Logger
}

// existence queries both backends and returns their answers.
func (c *consistencyChecker) existence(ctx context.Context, key interfaces.StorageKey) (localExists, remoteExists bool, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localExists, err = c.local.Exists(gctx, key)
		return translate(err, key, c.local.Name())
	})
	g.Go(func() error {
		var err error
		remoteExists, err = c.remote.Exists(gctx, key)
		return translate(err, key, c.remote.Name())
	})
	if err := g.Wait(); err != nil {
		return false, false, err
	}
	return localExists, remoteExists, nil
}

// checkExistence requires both backends to agree on whether key exists and
// returns the shared answer.
func (c *consistencyChecker) checkExistence(ctx context.Context, key interfaces.StorageKey) (bool, error) {
	localExists, remoteExists, err := c.existence(ctx, key)
	if err != nil {
		return false, err
	}

	if localExists != remoteExists {
		side := localSide
		if remoteExists {
			side = remoteSide
		}
		c.log.Warn("Backends disagree on record existence",
			slog.String("key", key.String()),
			slog.String("present_in", side))
		return false, &MismatchError{Key: key, Kind: ExistenceMismatch, Side: side}
	}

	return localExists, nil
}

// checkContent reads key from both backends and returns the content when the
// two copies are byte-identical.
func (c *consistencyChecker) checkContent(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	var localData, remoteData []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localData, err = c.local.Read(gctx, key)
		return translate(err, key, c.local.Name())
	})
	g.Go(func() error {
		var err error
		remoteData, err = c.remote.Read(gctx, key)
		return translate(err, key, c.remote.Name())
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if !bytes.Equal(localData, remoteData) {
		c.log.Warn("Backends disagree on record content",
			slog.String("key", key.String()),
			slog.Int("local_size", len(localData)),
			slog.Int("remote_size", len(remoteData)))
		return nil, &MismatchError{Key: key, Kind: ContentMismatch}
	}

	return remoteData, nil
}
