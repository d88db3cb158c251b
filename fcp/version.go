// GoHyphanet - Freenet/Hyphanet FCP Library and Tools
// Copyright (C) 2025 GoHyphanet Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.
//
// Source Code: https://github.com/blubskye/gohyphanet

package fcp

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	// Version is this module's release version, independent of the FCP
	// wire protocol version a NodeSession negotiates at ClientHello.
	Version = "0.1.0"

	// ProtocolVersion is the FCP protocol version ClientHello advertises
	// (spec.md §4.7); it is not expected to change across Version bumps.
	ProtocolVersion = "2.0"

	// SourceURL is the URL to the source code repository, required by the
	// AGPLv3's network-use clause.
	SourceURL = "https://github.com/gohyphanet/fcpcore"

	// LicenseName is the name of the license this module is distributed under.
	LicenseName = "GNU AGPLv3"

	// LicenseURL is the URL to the license text.
	LicenseURL = "https://www.gnu.org/licenses/agpl-3.0.txt"
)

// VersionInfo is a snapshot of build and runtime identity, assembled by
// GetVersionInfo for diagnostics and --version output.
type VersionInfo struct {
	Version         string
	ProtocolVersion string
	GoVersion       string
	OS              string
	Arch            string
	SourceURL       string
	License         string
}

// GetVersionInfo reports the module's version alongside the Go toolchain
// and platform it was built against.
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		Version:         Version,
		ProtocolVersion: ProtocolVersion,
		GoVersion:       runtime.Version(),
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		SourceURL:       SourceURL,
		License:         LicenseName,
	}
}

// GetVersionString returns the short "fcpcore X.Y.Z" form used in banners
// and User-Agent-style identifiers.
func GetVersionString() string {
	return "fcpcore " + Version
}

// GetFullVersionString renders GetVersionInfo as the multi-line block
// printed by --version.
func GetFullVersionString() string {
	info := GetVersionInfo()
	lines := []string{
		"fcpcore " + info.Version,
		"FCP protocol: " + info.ProtocolVersion,
		fmt.Sprintf("Go: %s (%s/%s)", info.GoVersion, info.OS, info.Arch),
		"License: " + info.License,
		"Source: " + info.SourceURL,
	}
	return strings.Join(lines, "\n")
}

// PrintLicenseNotice renders the AGPLv3 notice callers are expected to
// surface on startup or via a --license flag, per the license's own
// recommended interactive-notice text.
func PrintLicenseNotice() string {
	lines := []string{
		"fcpcore - FCP 2.0 client library",
		"Copyright (C) 2025 GoHyphanet Contributors",
		"",
		"This program is free software: you can redistribute it and/or modify",
		"it under the terms of the GNU Affero General Public License as published",
		"by the Free Software Foundation, either version 3 of the License, or",
		"(at your option) any later version.",
		"",
		"This program comes with ABSOLUTELY NO WARRANTY.",
		"This is free software, and you are welcome to redistribute it",
		"under certain conditions; see LICENSE file for details.",
		"",
		fmt.Sprintf("Source Code: %s", SourceURL),
		fmt.Sprintf("License: %s (%s)", LicenseName, LicenseURL),
	}
	return strings.Join(lines, "\n")
}
