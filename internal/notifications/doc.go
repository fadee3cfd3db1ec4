// Package notifications announces publishes in the team chat channel.
//
// The default implementation posts bot messages to a Discord channel and
// gracefully degrades to a no-op when no token or channel is configured.
// Message text is fixed per event so announcements stay consistent across
// host sessions. Sends are rate limited client side; failures are returned
// and the publish workflow decides whether to ignore them.
package notifications
