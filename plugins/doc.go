// Package plugins hosts optional tick rule plugins. It contains no runtime
// code itself; each subpackage implements core.Plugin and is installed with
// core.Service.InstallPlugin.
package plugins
