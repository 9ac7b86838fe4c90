// Package mpid is the root of a mailbox system for a content-addressed
// messaging overlay.
//
// Accounts are identities derived from signing keys. Each account owns two
// quota-tracked mailboxes kept by the manager group responsible for its
// identity: an inbox of header notifications and an outbox of full messages.
// Senders deposit messages in their own outbox; the sender's managers notify
// the recipient's managers with the header; when a recipient session comes
// online its managers fetch every waiting message from the senders' managers
// and relay it to the session.
//
// # Packages
//
//   - identity: 32-byte addresses, keyed BLAKE3 derivations, XOR distance.
//   - mpid: headers, messages, and the wire wrappers exchanged by the protocol.
//   - routing: authorities, requests, responses, and the Node interface.
//   - persona: the mailbox manager itself.
//   - chunkstore: content stores (memory, localfs, grpcstore).
//   - vault: a manager bound to its configured stores.
//   - routing/simnet: an in-process network of vaults and client sessions.
//   - client: the client-session side of the protocol.
//
// # Getting Started
//
//	network := simnet.New(simnet.Options{})
//	network.AddVault(vault.New(id, chunkstore.NewMemoryStore(), chunkstore.NewMemoryStore()))
//
//	alice, _ := client.New(aliceKeys, network)
//	bob, _ := client.New(bobKeys, network)
//	network.Connect(alice.Session(), alice)
//	network.Connect(bob.Session(), bob)
//
//	alice.Send(bob.Name(), []byte("subject"), []byte("hello"))
//	network.RunUntilIdle()
//
//	bob.Online()
//	network.RunUntilIdle()
//	for _, received := range bob.Received() {
//	    fmt.Printf("%s: %s\n", received.Name.Short(), received.Message.Body)
//	}
//
// The cmd/mpid-sim command runs this flow from configuration, and
// cmd/mpid-store serves content stores over gRPC for vaults configured with
// the grpc backend.
package mpid
