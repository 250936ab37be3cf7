// Package localserver prepares the Unix domain socket on which the RESP
// server also listens for local clients.
//
// Access is controlled by file system permissions on the socket. A stale
// socket left by a crashed process is replaced; a socket with a live
// server behind it is not.
package localserver
