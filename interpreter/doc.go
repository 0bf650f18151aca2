// Package interpreter runs Python snippets in a stateful code interpreter.
//
// The production backend is a remote service reached over HTTP: each call
// carries the code, the language tag, the session handle returned by the
// previous call, and optional file attachments. The service keeps variables
// and imports alive between calls that share a session handle.
//
// Execute never fails. Transport errors, non-2xx statuses and undecodable
// bodies are folded into a degraded Result (status "error", ErrorMessage set,
// no session handle) so the agent loop always has something to show the
// model.
//
// LocalExecutor is a stateless fallback that shells out to python3; it never
// issues a session handle.
package interpreter
