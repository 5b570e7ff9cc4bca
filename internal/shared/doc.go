// Package shared holds helpers used across packages. Its testutil
// subpackage provides log capture and lead export fixtures for tests.
package shared
