// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Well-known names inside a plugin package.
const (
	// PackageExt is the extension of a compressed plugin package.
	PackageExt = ".ai"

	// ManifestFileName is the metadata document at package root.
	ManifestFileName = "manifest.json"

	// EntryFileName is the entry module at package root.
	EntryFileName = "main.lua"

	// RegistryFileName is the external community registry document the
	// host consumes only as a source of candidate package filenames.
	RegistryFileName = "registry.json"
)

// maxFileSize caps a single extracted file to guard against zip bombs.
const maxFileSize = 32 << 20 // 32 MiB

// ExtractPackage unpacks a .ai archive into destDir/<package-stem> and
// returns the extracted directory. The archive must contain manifest.json
// and main.lua at its root; additional files (vendored dependency modules)
// are permitted.
func ExtractPackage(pkgPath, destDir string) (string, error) {
	r, err := zip.OpenReader(pkgPath)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidPackage, pkgPath, err)
	}
	defer r.Close()

	names := make(map[string]bool, len(r.File))
	for _, f := range r.File {
		names[f.Name] = true
	}
	if !names[ManifestFileName] {
		return "", fmt.Errorf("%w: %s missing %s", ErrInvalidPackage, pkgPath, ManifestFileName)
	}
	if !names[EntryFileName] {
		return "", fmt.Errorf("%w: %s missing %s", ErrInvalidPackage, pkgPath, EntryFileName)
	}

	stem := strings.TrimSuffix(filepath.Base(pkgPath), PackageExt)
	dir := filepath.Join(destDir, stem)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create extraction dir: %w", err)
	}

	for _, f := range r.File {
		if err := extractFile(f, dir); err != nil {
			return "", fmt.Errorf("%w: %s: %v", ErrInvalidPackage, f.Name, err)
		}
	}

	return dir, nil
}

// extractFile writes one archive member under dir, rejecting paths that
// escape it.
func extractFile(f *zip.File, dir string) error {
	target := filepath.Join(dir, filepath.Clean(f.Name))
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("illegal path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o750)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer dst.Close()

	n, err := io.Copy(dst, io.LimitReader(src, maxFileSize+1))
	if err != nil {
		return err
	}
	if n > maxFileSize {
		return fmt.Errorf("file exceeds %d bytes", int64(maxFileSize))
	}
	return nil
}

// RegistryEntry is one published plugin in the community registry file.
type RegistryEntry struct {
	Name        string `json:"name"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
	Filename    string `json:"filename"`
}

// ReadRegistryFile parses a registry.json document. The registry is owned
// by the surrounding application; the host uses only the filenames as
// discovery candidates.
func ReadRegistryFile(path string) ([]RegistryEntry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the configured plugins dir
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var entries []RegistryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("invalid registry file %s: %w", path, err)
	}
	return entries, nil
}
