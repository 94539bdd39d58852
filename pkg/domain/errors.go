package domain

import "fmt"

// MalformedBundleError reports a schema or referential-integrity violation in
// source metadata. The bundle is excluded from aggregation until corrected
// upstream; it never silently degrades into partial output.
type MalformedBundleError struct {
	BundleUUID    string
	BundleVersion string
	Reason        string
}

func (e MalformedBundleError) Error() string {
	return fmt.Sprintf("malformed bundle %s.%s: %s", e.BundleUUID, e.BundleVersion, e.Reason)
}

// CyclicGraphError reports a cycle detected while traversing a bundle graph.
// Treated exactly like a malformed bundle: fatal for the bundle, reported, no
// partial output.
type CyclicGraphError struct {
	BundleUUID    string
	BundleVersion string
	NodeID        string
}

func (e CyclicGraphError) Error() string {
	return fmt.Sprintf("cycle through node %s in bundle %s.%s", e.NodeID, e.BundleUUID, e.BundleVersion)
}

// TransientSinkError wraps a sink failure that is worth retrying (timeout,
// throttling). Anything a sink driver does not wrap this way is treated as a
// permanent rejection.
type TransientSinkError struct {
	Err error
}

func (e TransientSinkError) Error() string {
	return fmt.Sprintf("transient sink error: %v", e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e TransientSinkError) Unwrap() error { return e.Err }

// StaleContributionError reports a contribution discarded because a newer
// version of the same bundle has already been applied. Non-fatal: logged by
// the caller, never retried.
type StaleContributionError struct {
	EntityID      string
	BundleUUID    string
	BundleVersion string
	KnownVersion  string
}

func (e StaleContributionError) Error() string {
	return fmt.Sprintf("stale contribution for %s from bundle %s.%s (have %s)",
		e.EntityID, e.BundleUUID, e.BundleVersion, e.KnownVersion)
}
