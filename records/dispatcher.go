package records

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/ruteri/record-store/interfaces"
)

// dispatcher routes each operation to the backend(s) of its storage mode.
// In Dual mode mutations go to the remote first, then to the local mirror.
type dispatcher struct {
	mode    StorageMode
	local   interfaces.RecordBackend
	remote  interfaces.RecordBackend
	checker *consistencyChecker
	log     *slog.Logger
}

func newDispatcher(mode StorageMode, local, remote interfaces.RecordBackend, log *slog.Logger) *dispatcher {
	d := &dispatcher{
		mode:   mode,
		local:  local,
		remote: remote,
		log:    log,
	}
	if mode == Dual {
		d.checker = &consistencyChecker{local: local, remote: remote, log: log}
	}
	return d
}

// single returns the only active backend in single-backend modes.
func (d *dispatcher) single() interfaces.RecordBackend {
	if d.mode == LocalOnly {
		return d.local
	}
	return d.remote
}

// exists reports whether key is present. In Dual mode a key is present only
// when both backends hold it; with hard set, disagreement is a mismatch.
func (d *dispatcher) exists(ctx context.Context, key interfaces.StorageKey, hard bool) (bool, error) {
	if d.mode != Dual {
		b := d.single()
		ok, err := b.Exists(ctx, key)
		return ok, translate(err, key, b.Name())
	}

	if hard {
		return d.checker.checkExistence(ctx, key)
	}

	localExists, remoteExists, err := d.checker.existence(ctx, key)
	if err != nil {
		return false, err
	}
	return localExists && remoteExists, nil
}

// presentIn returns the name of the first active backend holding key, or ""
// when no active backend does.
func (d *dispatcher) presentIn(ctx context.Context, key interfaces.StorageKey) (string, error) {
	if d.mode != Dual {
		ok, err := d.exists(ctx, key, false)
		if err != nil || !ok {
			return "", err
		}
		return d.single().Name(), nil
	}

	localExists, remoteExists, err := d.checker.existence(ctx, key)
	switch {
	case err != nil:
		return "", err
	case remoteExists:
		return d.remote.Name(), nil
	case localExists:
		return d.local.Name(), nil
	default:
		return "", nil
	}
}

func (d *dispatcher) create(ctx context.Context, key interfaces.StorageKey) error {
	return d.mutate(ctx, "create", key, func(b interfaces.RecordBackend) error {
		return b.Create(ctx, key)
	})
}

func (d *dispatcher) write(ctx context.Context, key interfaces.StorageKey, data []byte) error {
	return d.mutate(ctx, "write", key, func(b interfaces.RecordBackend) error {
		return b.Write(ctx, key, data)
	})
}

func (d *dispatcher) delete(ctx context.Context, key interfaces.StorageKey) error {
	return d.mutate(ctx, "delete", key, func(b interfaces.RecordBackend) error {
		return b.Delete(ctx, key)
	})
}

// mutate applies fn to the active backends. Dual mode applies it to the
// remote first; if the local mirror then fails the remote change stays and a
// *PartialFailureError is returned.
func (d *dispatcher) mutate(ctx context.Context, op string, key interfaces.StorageKey, fn func(interfaces.RecordBackend) error) error {
	if d.mode != Dual {
		b := d.single()
		return translate(fn(b), key, b.Name())
	}

	if err := fn(d.remote); err != nil {
		return translate(err, key, d.remote.Name())
	}

	if err := fn(d.local); err != nil {
		d.log.Error("Local mirror failed after remote succeeded",
			slog.String("op", op),
			slog.String("key", key.String()),
			slog.String("succeeded", d.remote.Name()),
			slog.String("failed", d.local.Name()),
			"err", err)
		return &PartialFailureError{
			Op:        op,
			Key:       key,
			Succeeded: d.remote.Name(),
			Failed:    d.local.Name(),
			Err:       translate(err, key, d.local.Name()),
		}
	}

	return nil
}

// read returns the content of key. Dual mode requires both copies to exist
// and be identical.
func (d *dispatcher) read(ctx context.Context, key interfaces.StorageKey) ([]byte, error) {
	if d.mode != Dual {
		b := d.single()
		data, err := b.Read(ctx, key)
		return data, translate(err, key, b.Name())
	}

	exists, err := d.checker.checkExistence(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}

	return d.checker.checkContent(ctx, key)
}

// keyedContent is one listed record and its raw content.
type keyedContent struct {
	key  interfaces.StorageKey
	data []byte
}

// list returns the content of every key carrying extension. In Dual mode both
// backends must list the same keys and hold identical content for each; any
// divergence aborts the whole listing.
func (d *dispatcher) list(ctx context.Context, extension string) ([]keyedContent, error) {
	start := time.Now()

	if d.mode != Dual {
		b := d.single()
		keys, err := listRecords(ctx, b, extension)
		if err != nil {
			return nil, err
		}

		result := make([]keyedContent, 0, len(keys))
		for _, key := range keys {
			data, err := b.Read(ctx, key)
			if err != nil {
				return nil, translate(err, key, b.Name())
			}
			result = append(result, keyedContent{key: key, data: data})
		}
		return result, nil
	}

	var localKeys, remoteKeys []interfaces.StorageKey
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		localKeys, err = listRecords(gctx, d.local, extension)
		return err
	})
	g.Go(func() error {
		var err error
		remoteKeys, err = listRecords(gctx, d.remote, extension)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := compareListings(localKeys, remoteKeys); err != nil {
		d.log.Warn("Backends disagree on listing",
			slog.Int("local_count", len(localKeys)),
			slog.Int("remote_count", len(remoteKeys)),
			"err", err)
		return nil, err
	}

	result := make([]keyedContent, 0, len(remoteKeys))
	for _, key := range remoteKeys {
		data, err := d.checker.checkContent(ctx, key)
		if err != nil {
			return nil, err
		}
		result = append(result, keyedContent{key: key, data: data})
	}

	d.log.Debug("Listed records from both backends",
		slog.Int("count", len(result)),
		slog.Duration("duration", time.Since(start)))

	return result, nil
}

// listRecords lists b and drops keys that do not carry extension.
func listRecords(ctx context.Context, b interfaces.RecordBackend, extension string) ([]interfaces.StorageKey, error) {
	keys, err := b.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s backend: list: %w", b.Name(), err)
	}

	filtered := make([]interfaces.StorageKey, 0, len(keys))
	for _, key := range keys {
		if key.HasExtension(extension) {
			filtered = append(filtered, key)
		}
	}
	return filtered, nil
}

// compareListings requires both listings to have equal cardinality and equal
// key sets. Every key seen on only one side is reported.
func compareListings(local, remote []interfaces.StorageKey) error {
	localSet := make(map[interfaces.StorageKey]struct{}, len(local))
	for _, key := range local {
		localSet[key] = struct{}{}
	}
	remoteSet := make(map[interfaces.StorageKey]struct{}, len(remote))
	for _, key := range remote {
		remoteSet[key] = struct{}{}
	}

	var result *multierror.Error
	if len(localSet) != len(remoteSet) {
		result = multierror.Append(result, fmt.Errorf("%w: local lists %d records, remote lists %d",
			ErrMismatch, len(localSet), len(remoteSet)))
	}
	for _, key := range local {
		if _, ok := remoteSet[key]; !ok {
			result = multierror.Append(result, &MismatchError{Key: key, Kind: ListingMismatch, Side: localSide})
		}
	}
	for _, key := range remote {
		if _, ok := localSet[key]; !ok {
			result = multierror.Append(result, &MismatchError{Key: key, Kind: ListingMismatch, Side: remoteSide})
		}
	}

	return result.ErrorOrNil()
}
