// Package tracking exposes the git operations docpkg needs as a narrow
// content-tracking capability.
//
// A Service is bound to exactly one working-directory path and holds no
// repository state of its own: every call runs git again and interprets
// its exit status and output. Nothing is cached and nothing is retried.
//
// Design decisions:
//   - We shell out to `git` (via `git -C <path>`) rather than using go-git,
//     because worktree management and commit-tree plumbing need full CLI
//     compatibility and must honor the user's git configuration and hooks.
//   - The Service interface exists so the publishing orchestrator can be
//     exercised against an in-memory fake without starting any process.
//   - Unexpected git failures are returned as model.CLIError with
//     ExitExternalTool, wrapping an *ExecError carrying the raw exit code
//     and output. The one documented non-error outcome, "nothing to
//     commit", is reported through Commit's boolean result instead.
package tracking
