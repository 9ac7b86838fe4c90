// Package crypto provides the signing keys used by mpid clients.
//
// An account is named by the BLAKE3 hash of its signing public key (see
// identity.FromPublicKey). Headers and messages carry detached NaCl signatures
// produced here; verification is a client-side concern, the mailbox manager
// never verifies.
//
// Example:
//
//	keys, err := crypto.GenerateKeyPair()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sig := crypto.Sign(payload, keys)
//	ok := crypto.Verify(payload, sig, keys.Public)
package crypto
