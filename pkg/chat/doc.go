// Package chat manages conversations and messages and orchestrates the
// round-trip to the language model.
//
// # Overview
//
// A conversation belongs to one user and holds an ordered list of messages.
// The Service type runs the send pipeline: verify ownership, persist the
// user's message, assemble the prompt from history, call the model, persist
// the reply, and bump the conversation timestamp. Audio analysis runs the
// same pipeline behind an entitlement gate and records a usage ledger entry
// once the model has answered.
//
// # Usage Example
//
//	svc := chat.NewService(store, client, ledger, catalog, logger)
//	reply, err := svc.SendMessage(ctx, userID, convID, "How do I sidechain in Ableton?")
//	if err != nil {
//		return err
//	}
//	fmt.Println(reply.Content)
//
// # Related Packages
//
//   - pkg/pricing: entitlement rules gating audio analysis
//   - pkg/usage: ledger the analysis pipeline records into
package chat
