// Package manifest handles loading and normalization of rpk_config.json
// manifests bundled inside resource packages. A manifest declares models,
// pipelines, and resources to be registered with the mlagent registry.
// Loading is strict at the section level (an unrecognized top-level key
// fails the whole load) and tolerant at the item level (a malformed item
// is reported as an issue and skipped).
package manifest
