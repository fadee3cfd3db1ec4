// Package main hosts the vnpipe CLI entrypoint and command graph.
//
// The Cobra command tree drives the export configurator through a headless
// host session, publishes produced files to the tracker, and exposes the
// supporting catalog, history, Drive and diagnostics surfaces. Configuration
// and logging are resolved once in commandContext; commands only translate
// flags into calls on the internal packages and render the results.
package main
