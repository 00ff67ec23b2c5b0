// Package domain contains the plot point models shared by every layer of
// SimDash: the classifier, the HTTP and websocket transports and the
// exporters all speak these types.
package domain
