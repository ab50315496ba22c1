// Package records implements the record manager: the layer that lets callers
// exist/create/read/write/delete/list structured records without knowing
// whether they live on local disk, in a remote store, or mirrored in both.
//
// # Storage Modes
//
// The mode is derived at construction from the configured backends and never
// changes afterwards:
//
//   - LocalOnly: only a local backend (usually a directory) is configured
//   - RemoteOnly: only a remote backend is configured
//   - Dual: both are configured and must hold identical records
//
// # Keys
//
// Every name passes through a Sanitizer before reaching a backend. Only the
// final path segment is kept, trailing copies of the serializer's extension are stripped and
// re-appended, characters illegal on common filesystems are escaped
// ("?" becomes "_q_", "*" becomes "_star_", and so on) and trailing dots and
// spaces are removed. Sanitizing a key again returns the same key.
//
// # Dual Mode Consistency
//
// In Dual mode reads compare both copies byte for byte, listings require both
// backends to list the same keys, and disagreement fails the operation with
// a *MismatchError. Mutations are applied to the remote backend first and
// then to the local mirror. They are not atomic: if the local step fails the
// remote change is kept and a *PartialFailureError names which backend
// succeeded so the caller can repair it. Nothing is reconciled or retried
// automatically.
//
// # Usage Example
//
//	manager, err := records.New(records.Config[Report]{
//	    Serializer: serializer.NewJSON[Report](),
//	    LocalDir:   "/var/lib/reports",
//	    Remote:     s3Backend,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := manager.Write(ctx, "weekly", report, true); err != nil {
//	    return err
//	}
//	report, err = manager.Read(ctx, "weekly")
package records
