// Package logging provides structured logging for the clawmgr CLI on top of
// [log/slog].
//
// Text output goes through [Handler], which colorizes on a terminal; JSON
// output uses the stock slog JSON handler. Both sit behind a [Fanout], which
// masks values whose key or content looks like a credential before any
// handler sees them. [LevelTrace] is used for captured subprocess output.
//
// Commands fetch their logger with [FromContext]; the root command stores
// it with [NewContext] once flags are parsed. Tests use [ForTest].
package logging
