// Package probe checks whether MCP servers answer an initialize handshake.
//
// Remote servers get a single POST of the initialize request; any 2xx is
// reachable. Local servers are spawned, sent the request and watched for a
// grace period: a clean exit or a process still alive at the deadline
// counts as reachable, a nonzero exit does not. The local check therefore
// proves the server starts, not that it speaks MCP; [Prober.Deep] runs a
// real client session for that.
package probe
