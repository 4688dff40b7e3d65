// Package petsbridge bridges the Pets Series pet-feeder/camera cloud
// backend into a locally served, periodically refreshed snapshot.
//
// # Architecture
//
// The service is structured into several key packages:
//   - petsseries: cloud client (auth, token refresh, resource listing)
//   - tuya: optional local device backend and its worker-pool poller
//   - coordinator: snapshot builder and scheduled-refresh core
//   - bridge: per-instance lifecycle (setup, surfaces, teardown)
//   - server: read-only HTTP surface over the published snapshot
//   - models: shared data structures
//
// Key behavior:
//
//   - Every five minutes one full traversal of all homes, devices, event
//     types and meal schedules is fetched with a fixed delay between calls
//     to stay under the vendor's request quota.
//
//   - The resulting snapshot is published atomically: readers see either
//     the previous complete snapshot or the new one, never a mixture, and
//     a failed refresh leaves the previous snapshot visible but stale.
//
// For more information about specific packages, see their respective
// documentation.
package petsbridge
