// Package observe provides structured logging for the outbound execution
// toolkit.
//
// The Logger interface is intentionally small so callers can adapt their own
// logging stack. The bundled implementation writes JSON lines and redacts
// credential-bearing fields (access tokens, webhook URLs) so provider secrets
// never land in log output.
package observe
