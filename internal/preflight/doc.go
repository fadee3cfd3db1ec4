// Package preflight provides readiness checks for the services and paths
// vnpipe depends on.
//
// "vnpipe doctor" runs RunAll and prints one row per Result. Checks for
// optional integrations (Discord, Drive) run only when the integration is
// configured.
package preflight
