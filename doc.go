// Package vitalband implements the client-side session and authorization
// control plane for the VitalBand health-monitoring API.
//
// The package owns how a credential becomes a usable session, how every
// outgoing request is authenticated and protected against CSRF, how an
// expired session is detected and torn down exactly once, how navigation is
// gated by authentication state and role, and how the two-phase admin
// provisioning workflow behaves under partial failure. Everything else a
// portal does (rendering, charts, tables) lives in the embedding application
// and merely calls into this package.
package vitalband
