// Package websocket streams classified plot points to browser clients.
//
// Each connection gets one Session. The session owns the connection and runs
// two goroutines: a write pump that serializes queued frames and pings the
// peer, and a read pump that drains client frames and notices disconnects.
// A Producer feeds the session through Send; when it returns, the session
// writes a normal close frame and tears both pumps down before Run returns.
//
// Frame layout:
//
//	{"type":"action", ...}            one frame per plot point
//	{"type":"error","message":...}    row or stream failure
//	{"type":"complete","summary":...} end of a successful stream
package websocket
