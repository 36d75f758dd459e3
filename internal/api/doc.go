// Package api exposes the hub's operations over HTTP.
//
// The surface is a small JSON REST API under /api/v1 plus a WebSocket
// event stream. It is intended for the local network only: wall
// tablets, the companion CLI, and the sensors that push readings over
// HTTP instead of MQTT. There is no authentication layer; deployments
// that need one put the hub behind a reverse proxy.
package api
