// Package version reports the modelkit build, shown by `modelkit version`
// and the gateway's /version and /info endpoints.
//
// Values are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/modelkit/version.Version=v0.3.0 \
//	    -X github.com/kbukum/modelkit/version.GitCommit=$(git rev-parse --short HEAD)"
//
// Unstamped builds fall back to the VCS data embedded by the Go toolchain.
package version
