// Package flow is a client for the production-tracking service REST API.
//
// Client exposes the four primitives the pipeline needs (Find, FindOne,
// Create, Upload) over the v1 entity endpoints. Filters are sent in the
// array format and responses are flattened into Record values. A TokenManager
// obtains the script's access token lazily and refreshes it shortly before
// expiry; the token is shared by every call through the same Client.
package flow
