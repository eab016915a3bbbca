// Package plugins hosts reader plugin subpackages. Plugins build on
// pkg/pluginapi and the internal format and transport helpers, never on the
// host in internal/core or on infra packages directly.
package plugins
