// Package installer installs MCP servers from git sources.
//
// Install is a linear pipeline: resolve the name, clear any previous
// checkout, clone, install dependencies, build, locate the entry script
// and register a stdio descriptor running it. Clone and dependency
// failures stop the pipeline with a [StepError] carrying the tool's output;
// a build failure only produces a warning because many servers ship
// prebuilt.
package installer
