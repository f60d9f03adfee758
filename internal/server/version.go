package server

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// ErrVersionMismatch marks a client whose version the server refuses to serve.
var ErrVersionMismatch = errors.New("version mismatch")

// checkVersionCompatibility reports whether a server at serverVersion may
// serve a client at clientVersion. Majors must match and the server must not
// be older than the client. Empty or non-semver versions (dev builds) pass.
func checkVersionCompatibility(serverVersion, clientVersion string) error {
	if clientVersion == "" {
		return nil
	}

	serverVer := serverVersion
	if !strings.HasPrefix(serverVer, "v") {
		serverVer = "v" + serverVer
	}
	clientVer := clientVersion
	if !strings.HasPrefix(clientVer, "v") {
		clientVer = "v" + clientVer
	}

	if !semver.IsValid(serverVer) || !semver.IsValid(clientVer) {
		return nil
	}

	if semver.Major(serverVer) != semver.Major(clientVer) {
		if semver.Compare(serverVer, clientVer) < 0 {
			return fmt.Errorf("%w: incompatible major versions: client %s, server %s. Server is older; upgrade and restart 'ghia serve'",
				ErrVersionMismatch, clientVersion, serverVersion)
		}
		return fmt.Errorf("%w: incompatible major versions: client %s, server %s. Client is older; upgrade the ghia CLI to match the server's major version",
			ErrVersionMismatch, clientVersion, serverVersion)
	}

	if semver.Compare(serverVer, clientVer) < 0 {
		if semver.MajorMinor(serverVer) != semver.MajorMinor(clientVer) {
			return fmt.Errorf("%w: client %s requires server upgrade (server is %s). The client may expect fields this server does not return",
				ErrVersionMismatch, clientVer, serverVer)
		}
		return fmt.Errorf("%w: server %s is older than client %s. Upgrade and restart 'ghia serve'",
			ErrVersionMismatch, serverVer, clientVer)
	}

	return nil
}
