// Package attendance serves the attendance operations as a JSON API.
//
// Every route requires a bearer token; the token subject is the acting
// employee. Domain errors render as google.rpc.Status JSON with a localized
// message, and challenge rejections render as an outcome body.
package attendance
