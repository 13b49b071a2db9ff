// Package mcp defines the MCP server descriptor shared by the registry, the
// reconciler, the installer and the probe.
//
// A [Server] is either a stdio server (Command, Args, Env) or a remote one
// (URL). The registry form of a descriptor carries an Enabled flag and any
// keys other tools added; the companion tool only ever sees
// [Server.ExternalShape], which drops both.
//
//	fs := mcp.NewStdio("filesystem", "node",
//	    []string{"/home/u/.openclaw/mcps/filesystem/dist/index.js", "--stdio"}, nil)
//	api := mcp.NewRemote("search", "https://search.example.com/mcp")
package mcp
