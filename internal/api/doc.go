// Package api implements the authenticated cloud session for Anker Solix
// accounts.
//
// A Client owns one session per account: it performs the encrypted login
// handshake (ECDH key exchange plus AES-CBC credential envelope), keeps the
// auth token alive across calls, and exposes a generic Request method that
// unwraps the service's {code, msg, data} response envelope into typed
// errors.
//
// # Endpoints
//
// Documented endpoints are addressed by name through the Endpoints table;
// undocumented endpoints can be called by passing their raw path:
//
//	data, err := client.Request(ctx, http.MethodPost, "site_list", payload)
//	data, err := client.Request(ctx, http.MethodPost, "power_service/v1/site/get_site_list", payload)
//
// # Rate limiting
//
// The service enforces undocumented per-endpoint rate limits. After the
// first HTTP 429 on an endpoint, that endpoint is permanently switched to a
// reduced request ceiling (rolling minute window) for the remainder of the
// session; other endpoints are unaffected. The ceiling and retry cooldown
// are configurable through ThrottlePolicy.
//
// # Errors
//
// All failure paths return *ApiError with a taxonomy tag: authentication
// and region errors are fatal to the session, request errors carry the HTTP
// status and the service's verbatim message, and rate-limit or token-expiry
// conditions are recovered transparently (one retry each).
package api
