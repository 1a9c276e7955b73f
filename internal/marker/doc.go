// Package marker persists the last processed post URL and a delivery
// history. The marker survives restarts so a redeploy does not re-notify
// the most recent post.
package marker
