package cache

import "fmt"

// Key layout:
// - roomKey(docID):   ZSet<connID, expireAtUnix>, live connections; the score
//   is the logical expiry so a Lua sweep can drop stale entries
// - namesKey(docID):  Hash<connID -> display name>
// - cursorKey:        String, JSON cursor blob with a real TTL
const (
	keyRoomFmt   = "presence:room:{doc:%s}"
	keyNamesFmt  = "presence:room:names:{doc:%s}"
	keyCursorFmt = "presence:cursor:{doc:%s}:%s"
)

func roomKey(docID string) string           { return fmt.Sprintf(keyRoomFmt, docID) }
func namesKey(docID string) string          { return fmt.Sprintf(keyNamesFmt, docID) }
func cursorKey(docID, connID string) string { return fmt.Sprintf(keyCursorFmt, docID, connID) }
