// Package types provides core types used across the hedgeflow framework.
// This package has ZERO dependencies on other hedgeflow packages to avoid
// circular imports. All other packages should import types from here.
package types
