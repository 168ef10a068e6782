// Package keeper implements the connection manager.
//
// A Keeper supervises exactly one live game session:
//   - Creates the session and registers its observers
//   - Tears down the previous session before creating a replacement
//   - Schedules reconnects with a fixed delay, de-duplicating so at
//     most one reconnect timer is ever pending
//   - Tracks connection state for the status endpoint
//
// Retries are infinite; the only unrecoverable failure in the process
// is the status listener failing to bind, which is handled upstream.
package keeper
