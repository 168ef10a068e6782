// Package gameclient implements the game server session client.
//
// A Client:
//   - Dials the server's WebSocket event feed and announces the bot
//     identity in offline mode
//   - Delivers server events through a fixed set of observer slots
//   - Delivers events from one session strictly in transport order
//   - Supports best-effort outbound chat
//
// Protocol parsing beyond the event frames consumed here is out of
// scope; callers treat the session as an opaque handle.
package gameclient
