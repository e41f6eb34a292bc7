// Package conversation owns the chat client's conversation state.
//
// # Overview
//
// A Store holds every Conversation in creation order (newest first) plus the
// active-conversation pointer. It is the only place conversations live:
// readers get deep copies and every change goes through a Store method.
//
//	blobs, _ := store.NewFileStore(path)
//	convs := conversation.Open(ctx, blobs, logger)
//	defer convs.Close()
//
//	id := convs.Create()
//	convs.AppendMessage(id, conversation.NewMessage(conversation.SenderUser, "Hi"))
//
// # Invariants
//
//   - Messages are append-only; nothing is edited or reordered.
//   - Title is "New Conversation" until the first message, then the first
//     50 characters of that message, and never changes again.
//   - LastMessage mirrors the text of the final message. The one exception
//     is MarkError, which replaces it with an error marker after a failed send.
//
// Operations on unknown IDs are silent no-ops.
//
// # Persistence
//
// Open reads the blob once. Missing or malformed data starts an empty store;
// it is logged, never returned. After each mutation the whole collection is
// serialized and queued for a background writer, so mutations never wait on
// storage. Snapshots are written one by one in mutation order; Close drains
// the queue, so call it before the process exits.
//
// # Events
//
// Subscribe streams created/selected/deleted/appended/marked events for the
// presentation layer. Slow subscribers lose events rather than blocking the
// store.
package conversation
