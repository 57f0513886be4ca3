// Package netutil opens the TCP listeners used by cache server processes.
//
// When workers are enabled every worker binds the same port with
// SO_REUSEPORT and the kernel balances accepted connections across them,
// so no listener is shared between processes.
package netutil
