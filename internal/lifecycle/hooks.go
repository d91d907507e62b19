// Package lifecycle implements the seven package-manager hooks and the
// package gate in front of manifest ingestion. Each hook is one
// self-contained invocation: the registry handle is acquired on entry and
// released on return, and no state survives between invocations.
//
// A hook returns an error only for structural failures (inspector
// queries, manifest loading). Per-item registration failures are logged
// and counted but never fail the hook, so the host package manager does
// not roll back an install over a single bad manifest entry.
package lifecycle

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/mlagent-labs/mlagent/internal/ingest"
	"github.com/mlagent-labs/mlagent/internal/manifest"
	"github.com/mlagent-labs/mlagent/internal/pkginfo"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

// RegistryHandle is a per-invocation registry connection: the dispatch
// surface plus its release.
type RegistryHandle interface {
	ingest.Registry
	Close() error
}

// Connect acquires a registry handle for one hook invocation.
type Connect func() (RegistryHandle, error)

// Runner wires the hooks to their collaborators.
type Runner struct {
	inspector pkginfo.Inspector
	connect   Connect
	log       zerolog.Logger
}

// NewRunner builds a hook runner.
func NewRunner(inspector pkginfo.Inspector, connect Connect, log zerolog.Logger) *Runner {
	return &Runner{inspector: inspector, connect: connect, log: log}
}

// Install ingests the package's manifest. Non-rpk packages are skipped
// successfully without the manifest file ever being read.
func (r *Runner) Install(pkgID, appID string, metadata []string) error {
	log := r.log.With().Str("hook", "install").Str("pkg", pkgID).Str("app", appID).Logger()
	log.Info().Strs("metadata", metadata).Msg("hook invoked")

	pkgType, err := r.inspector.PackageType(pkgID)
	if err != nil {
		return fmt.Errorf("querying package type: %w", err)
	}
	if pkgType != pkginfo.TypeRPK {
		log.Info().Str("type", pkgType).Msg("not an rpk package, skipping")
		return nil
	}

	rootPath, err := r.inspector.RootPath(pkgID)
	if err != nil {
		return fmt.Errorf("querying root path: %w", err)
	}
	resType, err := r.inspector.ResourceType(pkgID)
	if err != nil {
		return fmt.Errorf("querying resource type: %w", err)
	}
	resVersion, err := r.inspector.ResourceVersion(pkgID)
	if err != nil {
		return fmt.Errorf("querying resource version: %w", err)
	}

	// Versioning is owned by the host; a non-semver value is only
	// worth a warning.
	if _, verr := semver.NewVersion(resVersion); verr != nil {
		log.Warn().Str("res_version", resVersion).Msg("resource version is not semver")
	}

	ctx := registry.PackageContext{
		IsRPK:      true,
		PkgID:      pkgID,
		AppID:      appID,
		ResType:    resType,
		ResVersion: resVersion,
	}

	manifestPath := ManifestPath(rootPath, resType)
	log.Info().Str("manifest", manifestPath).Msg("ingesting manifest")

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	handle, err := r.connect()
	if err != nil {
		return fmt.Errorf("connecting to registry: %w", err)
	}
	defer handle.Close()

	report := ingest.New(handle, ctx, log).Run(m)
	log.Info().
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Msg("manifest ingestion finished")

	return nil
}

// Uninstall does not retract previously registered entries. The registry
// keeps them until deleted through its own interface; see the delete
// operations on the daemon.
func (r *Runner) Uninstall(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "uninstall").Str("pkg", pkgID).Msg("hook invoked")
	return nil
}

// Upgrade runs Uninstall then Install; the overall result is Install's.
func (r *Runner) Upgrade(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "upgrade").Str("pkg", pkgID).Msg("hook invoked")
	if err := r.Uninstall(pkgID, appID, metadata); err != nil {
		r.log.Error().Err(err).Msg("uninstall step failed during upgrade")
	}
	return r.Install(pkgID, appID, metadata)
}

// RecoverInstall compensates a failed Install.
func (r *Runner) RecoverInstall(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "recoverinstall").Str("pkg", pkgID).Msg("hook invoked")
	return r.Uninstall(pkgID, appID, metadata)
}

// RecoverUpgrade retries a failed Upgrade.
func (r *Runner) RecoverUpgrade(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "recoverupgrade").Str("pkg", pkgID).Msg("hook invoked")
	return r.Upgrade(pkgID, appID, metadata)
}

// RecoverUninstall compensates a failed Uninstall.
func (r *Runner) RecoverUninstall(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "recoveruninstall").Str("pkg", pkgID).Msg("hook invoked")
	return r.Install(pkgID, appID, metadata)
}

// Clean runs after a completed installation.
func (r *Runner) Clean(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "clean").Str("pkg", pkgID).Msg("hook invoked")
	return nil
}

// Undo runs after a failed installation.
func (r *Runner) Undo(pkgID, appID string, metadata []string) error {
	r.log.Info().Str("hook", "undo").Str("pkg", pkgID).Msg("hook invoked")
	return nil
}
