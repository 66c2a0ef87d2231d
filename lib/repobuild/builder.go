// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package repobuild

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bureau-foundation/debrepo/lib/checksum"
	"github.com/bureau-foundation/debrepo/lib/clock"
	"github.com/bureau-foundation/debrepo/lib/debpkg"
	"github.com/bureau-foundation/debrepo/lib/index"
	"github.com/bureau-foundation/debrepo/lib/layout"
	"github.com/bureau-foundation/debrepo/lib/publish"
	"github.com/bureau-foundation/debrepo/lib/release"
	"github.com/bureau-foundation/debrepo/lib/signing"
	"github.com/bureau-foundation/debrepo/lib/source"
)

const (
	// DefaultCodename is the dist every repository publishes.
	DefaultCodename = "stable"

	// DefaultNamespacePrefix is joined with owner/repo to form the
	// object store namespace.
	DefaultNamespacePrefix = "repos"
)

// DefaultArchitectures are the architectures indexed when none are
// configured.
var DefaultArchitectures = []string{"amd64", "arm64"}

// Config configures a Builder.
type Config struct {
	Source    source.Source
	Inspector debpkg.Inspector
	Keyring   *signing.Keyring

	// Publisher may be nil, in which case every build is local only.
	Publisher *publish.Publisher

	Codename        string
	Architectures   []string
	NamespacePrefix string

	// ArchiveRelative writes Packages Filename fields as pool/<file>,
	// relative to the namespace, instead of the full object key.
	ArchiveRelative bool

	// Description overrides the Release Description field.
	Description string

	// WorkDir is the parent of per-build temporary trees. Defaults to
	// os.TempDir().
	WorkDir string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Options adjusts a single build.
type Options struct {
	// Output builds into this directory instead of a temporary one and
	// keeps it. It must not exist or be empty.
	Output string

	// KeepTree keeps the temporary tree and reports it in
	// Summary.Root.
	KeepTree bool

	// NoPublish skips the publish stage.
	NoPublish bool
}

// Builder runs builds. A Builder is safe for concurrent use, but
// concurrent builds of the same repository race on its namespace;
// callers serialize those.
type Builder struct {
	source          source.Source
	inspector       debpkg.Inspector
	keyring         *signing.Keyring
	publisher       *publish.Publisher
	codename        string
	architectures   []string
	namespacePrefix string
	archiveRelative bool
	description     string
	workDir         string
	clock           clock.Clock
	logger          *slog.Logger
}

// New returns a Builder.
func New(config Config) (*Builder, error) {
	if config.Source == nil {
		return nil, errors.New("repobuild: source is required")
	}
	if config.Keyring == nil {
		return nil, errors.New("repobuild: keyring is required")
	}
	builder := &Builder{
		source:          config.Source,
		inspector:       config.Inspector,
		keyring:         config.Keyring,
		publisher:       config.Publisher,
		codename:        config.Codename,
		architectures:   config.Architectures,
		namespacePrefix: config.NamespacePrefix,
		archiveRelative: config.ArchiveRelative,
		description:     config.Description,
		workDir:         config.WorkDir,
		clock:           config.Clock,
		logger:          config.Logger,
	}
	if builder.inspector == nil {
		builder.inspector = debpkg.DebInspector{}
	}
	if builder.codename == "" {
		builder.codename = DefaultCodename
	}
	if len(builder.architectures) == 0 {
		builder.architectures = DefaultArchitectures
	}
	if builder.namespacePrefix == "" {
		builder.namespacePrefix = DefaultNamespacePrefix
	}
	if builder.workDir == "" {
		builder.workDir = os.TempDir()
	}
	if builder.clock == nil {
		builder.clock = clock.Real()
	}
	if builder.logger == nil {
		builder.logger = slog.Default()
	}
	return builder, nil
}

// Namespace returns the object store prefix for owner/repo.
func (builder *Builder) Namespace(owner, repo string) string {
	return path.Join(builder.namespacePrefix, owner, repo)
}

// Build runs every stage for request.
func (builder *Builder) Build(ctx context.Context, request Request, options Options) (Summary, error) {
	request, err := request.Normalize()
	if err != nil {
		return Summary{}, err
	}
	start := builder.clock.Now()
	namespace := builder.Namespace(request.Owner, request.Repo)
	logger := builder.logger.With("owner", request.Owner, "repo", request.Repo)

	summary := Summary{
		Owner:     request.Owner,
		Repo:      request.Repo,
		Namespace: namespace,
		Codename:  builder.codename,
		StartedAt: start.UTC(),
	}

	releases, err := builder.source.Releases(ctx, request.Owner, request.Repo, request.Limit)
	if err != nil {
		return summary, fmt.Errorf("repobuild: %s: %w: %w", request.Name(), ErrUpstreamFetch, err)
	}
	if len(releases) == 0 {
		return summary, fmt.Errorf("repobuild: %s: %w", request.Name(), ErrNoReleases)
	}
	for _, upstream := range releases {
		summary.Releases = append(summary.Releases, upstream.Tag)
	}

	root, cleanup, err := builder.prepareRoot(options)
	if err != nil {
		return summary, err
	}
	defer cleanup()

	tree := layout.New(root, builder.codename, layout.DefaultComponent)
	if err := tree.Create(builder.architectures); err != nil {
		return summary, fmt.Errorf("repobuild: %w", err)
	}

	staging, err := os.MkdirTemp(builder.workDir, "debrepo-download-")
	if err != nil {
		return summary, fmt.Errorf("repobuild: creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	blobs, skipped, err := builder.gather(ctx, tree, staging, releases, logger)
	summary.Skipped = skipped
	if err != nil {
		return summary, fmt.Errorf("repobuild: %s: %w", request.Name(), err)
	}
	if len(blobs) == 0 {
		return summary, fmt.Errorf("repobuild: %s: %w: every package failed inspection", request.Name(), ErrNoReleases)
	}

	filenamePrefix := namespace
	if builder.archiveRelative {
		filenamePrefix = ""
	}
	indexes, err := index.BuildAll(tree, builder.architectures, blobs, filenamePrefix)
	if err != nil {
		return summary, fmt.Errorf("repobuild: %w", err)
	}
	built := index.Architectures(indexes)
	if len(built) == 0 {
		return summary, fmt.Errorf("repobuild: %s: %w: no packages for architectures %v",
			request.Name(), ErrNoReleases, builder.architectures)
	}
	summary.Architectures = built
	summary.Packages = packageSummaries(blobs, builder.architectures)

	key, err := builder.keyring.EnsureKey(ctx)
	if err != nil {
		return summary, fmt.Errorf("repobuild: %w", err)
	}
	summary.Fingerprint = key.Fingerprint()
	publicKey, err := key.ExportPublicKey()
	if err != nil {
		return summary, fmt.Errorf("repobuild: %w", err)
	}
	if err := os.WriteFile(tree.PublicKeyPath(), publicKey, 0o644); err != nil {
		return summary, fmt.Errorf("repobuild: writing public key: %w", err)
	}

	identity := release.Identity{Name: request.Name(), Description: builder.description}
	if _, err := release.Build(tree, identity, built, builder.clock, key); err != nil {
		return summary, fmt.Errorf("repobuild: %w", err)
	}
	// Nothing is published unless the tree verifies against its own
	// Release and the exported key.
	if _, err := release.Verify(tree); err != nil {
		return summary, fmt.Errorf("repobuild: self-check: %w", err)
	}
	if err := release.VerifySignatures(tree, publicKey); err != nil {
		return summary, fmt.Errorf("repobuild: self-check: %w: %w", ErrSigning, err)
	}
	logger.Info("repository tree built",
		"root", root,
		"architectures", built,
		"packages", len(blobs),
		"skipped", len(skipped),
	)

	if builder.publisher != nil && !options.NoPublish {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		report, err := builder.publisher.Publish(ctx, namespace, root)
		summary.Uploaded = report.Uploaded
		summary.Bytes = report.Bytes
		if err != nil {
			return summary, fmt.Errorf("repobuild: %s: %w", request.Name(), err)
		}
		summary.Published = true
	}

	if options.Output != "" || options.KeepTree {
		summary.Root = root
	}
	summary.Duration = builder.clock.Now().Sub(start)
	logger.Info("build complete",
		"namespace", namespace,
		"published", summary.Published,
		"duration", summary.Duration,
	)
	return summary, nil
}

// prepareRoot returns the tree root and a cleanup function.
func (builder *Builder) prepareRoot(options Options) (string, func(), error) {
	if options.Output != "" {
		entries, err := os.ReadDir(options.Output)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return "", nil, fmt.Errorf("repobuild: %w", err)
		case len(entries) > 0:
			return "", nil, fmt.Errorf("%w: output directory %s is not empty", ErrValidation, options.Output)
		}
		if err := os.MkdirAll(options.Output, 0o755); err != nil {
			return "", nil, fmt.Errorf("repobuild: %w", err)
		}
		return options.Output, func() {}, nil
	}

	root, err := os.MkdirTemp(builder.workDir, "debrepo-tree-")
	if err != nil {
		return "", nil, fmt.Errorf("repobuild: creating build directory: %w", err)
	}
	if options.KeepTree {
		return root, func() {}, nil
	}
	return root, func() { os.RemoveAll(root) }, nil
}

// gather downloads and inspects every asset and copies the good ones
// into the pool. Releases arrive newest first, so when two releases
// ship the same file name the newer copy is kept.
func (builder *Builder) gather(ctx context.Context, tree layout.Layout, staging string, releases []source.Release, logger *slog.Logger) ([]debpkg.Blob, []string, error) {
	var blobs []debpkg.Blob
	var skipped []string
	seen := make(map[string]bool)

	for _, upstream := range releases {
		for _, asset := range upstream.Assets {
			if seen[asset.Name] {
				logger.Warn("duplicate asset name, keeping newer release",
					"asset", asset.Name, "tag", upstream.Tag)
				continue
			}
			seen[asset.Name] = true

			downloaded, err := builder.source.Download(ctx, asset, staging)
			if err != nil {
				return nil, skipped, fmt.Errorf("%w: %w", ErrUpstreamFetch, err)
			}

			blob, err := builder.inspect(tree, downloaded)
			if err != nil {
				logger.Warn("skipping package", "asset", asset.Name, "tag", upstream.Tag, "error", err)
				skipped = append(skipped, asset.Name)
				continue
			}
			blobs = append(blobs, blob)
		}
	}
	return blobs, skipped, nil
}

// inspect reads the control record of the file at staged and copies it
// into the pool.
func (builder *Builder) inspect(tree layout.Layout, staged string) (debpkg.Blob, error) {
	control, err := debpkg.InspectControl(builder.inspector, staged)
	if err != nil {
		return debpkg.Blob{}, fmt.Errorf("%w: %w", ErrInspection, err)
	}
	filename := filepath.Base(staged)
	destination := tree.PoolPath(filename)
	sums, err := checksum.CopyFile(destination, staged)
	if err != nil {
		return debpkg.Blob{}, fmt.Errorf("repobuild: %w", err)
	}
	return debpkg.Blob{
		Path:     destination,
		Filename: filename,
		Sums:     sums,
		Control:  control,
	}, nil
}

// InspectFile inspects one package file without building anything.
func (builder *Builder) InspectFile(path string) (debpkg.Blob, error) {
	return Inspect(builder.inspector, path)
}

// Inspect reads the control record and digests of the package at path
// with inspector.
func Inspect(inspector debpkg.Inspector, path string) (debpkg.Blob, error) {
	control, err := debpkg.InspectControl(inspector, path)
	if err != nil {
		return debpkg.Blob{}, fmt.Errorf("repobuild: %w: %w", ErrInspection, err)
	}
	sums, err := checksum.HashFile(path)
	if err != nil {
		return debpkg.Blob{}, fmt.Errorf("repobuild: %w", err)
	}
	return debpkg.Blob{
		Path:     path,
		Filename: filepath.Base(path),
		Sums:     sums,
		Control:  control,
	}, nil
}

// packageSummaries lists the blobs that made it into at least one
// index, in pool order.
func packageSummaries(blobs []debpkg.Blob, architectures []string) []PackageSummary {
	var summaries []PackageSummary
	for _, blob := range blobs {
		indexed := false
		for _, architecture := range architectures {
			if blob.Control.Matches(architecture) {
				indexed = true
				break
			}
		}
		if !indexed {
			continue
		}
		summaries = append(summaries, PackageSummary{
			Package:      blob.Control.Package,
			Version:      blob.Control.Version,
			Architecture: blob.Control.Architecture,
			Filename:     blob.Filename,
			Size:         blob.Sums.Size,
		})
	}
	return summaries
}
