package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/mpid"
	"github.com/opd-ai/mpid/routing"
)

type sentRequest struct {
	verb     routing.Verb
	src, dst routing.Authority
	data     routing.Data
}

type recordingNode struct {
	requests []sentRequest
}

func (n *recordingNode) SendPutRequest(src, dst routing.Authority, data routing.Data, _ routing.MessageID) error {
	n.requests = append(n.requests, sentRequest{verb: routing.Put, src: src, dst: dst, data: data})
	return nil
}

func (n *recordingNode) SendPostRequest(src, dst routing.Authority, data routing.Data, _ routing.MessageID) error {
	n.requests = append(n.requests, sentRequest{verb: routing.Post, src: src, dst: dst, data: data})
	return nil
}

func (n *recordingNode) SendPostFailure(routing.Authority, routing.Authority, routing.Request, []byte, routing.MessageID) error {
	return nil
}

func testKeys(t *testing.T, seed byte) *crypto.KeyPair {
	t.Helper()
	keys, err := crypto.FromSeed([32]byte{seed})
	require.NoError(t, err)
	return keys
}

func relay(t *testing.T, to *Client, message mpid.Message) routing.Request {
	t.Helper()
	value, err := mpid.Encode(mpid.PutMessage{Message: message})
	require.NoError(t, err)
	return routing.Request{
		Src:  routing.NewManagerGroup(to.Name()),
		Dst:  to.Session(),
		Verb: routing.Post,
		Data: routing.Data{Value: value},
	}
}

func TestNewSessionsAreDistinct(t *testing.T) {
	keys := testKeys(t, 1)
	first, err := New(keys, &recordingNode{})
	require.NoError(t, err)
	second, err := New(keys, &recordingNode{})
	require.NoError(t, err)

	assert.Equal(t, first.Name(), second.Name())
	assert.NotEqual(t, first.Session(), second.Session())
	assert.True(t, first.Session().IsClient())
	assert.Equal(t, identity.FromPublicKey(keys.Public), first.Name())
}

func TestSendDepositsInOwnOutbox(t *testing.T) {
	node := &recordingNode{}
	alice := NewWithSession(testKeys(t, 1), [32]byte{1}, node)
	bob := identity.FromPublicKey(testKeys(t, 2).Public)

	name, err := alice.Send(bob, []byte("subject"), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []identity.ID{name}, alice.Sent())

	require.Len(t, node.requests, 1)
	sent := node.requests[0]
	assert.Equal(t, routing.Put, sent.verb)
	assert.Equal(t, alice.Session(), sent.src)
	assert.Equal(t, routing.NewManagerGroup(alice.Name()), sent.dst)
	assert.Equal(t, name, sent.data.Name)

	w, err := mpid.Decode(sent.data.Value)
	require.NoError(t, err)
	message := w.(mpid.PutMessage).Message
	assert.Equal(t, bob, message.Recipient)
	assert.Equal(t, []byte("hello"), message.Body)
	assert.NoError(t, message.Verify(alice.PublicKey()))
}

func TestSendRejectsEmptyBody(t *testing.T) {
	node := &recordingNode{}
	alice := NewWithSession(testKeys(t, 1), [32]byte{1}, node)

	_, err := alice.Send(identity.ID{2}, nil, nil)
	assert.Error(t, err)
	assert.Empty(t, node.requests)
	assert.Empty(t, alice.Sent())
}

func TestQueriesArePosts(t *testing.T) {
	node := &recordingNode{}
	alice := NewWithSession(testKeys(t, 1), [32]byte{1}, node)

	_, err := alice.Online()
	require.NoError(t, err)
	_, err = alice.OutboxHas([]identity.ID{{9}})
	require.NoError(t, err)
	_, err = alice.GetOutboxHeaders()
	require.NoError(t, err)

	kinds := []mpid.Kind{mpid.KindOnline, mpid.KindOutboxHas, mpid.KindGetOutboxHeaders}
	require.Len(t, node.requests, len(kinds))
	for i, sent := range node.requests {
		assert.Equal(t, routing.Post, sent.verb)
		assert.Equal(t, routing.NewManagerGroup(alice.Name()), sent.dst)
		w, err := mpid.Decode(sent.data.Value)
		require.NoError(t, err)
		assert.Equal(t, kinds[i], w.Kind())
	}
}

func TestReceiveRelayedMessages(t *testing.T) {
	aliceKeys := testKeys(t, 1)
	bob := NewWithSession(testKeys(t, 2), [32]byte{2}, &recordingNode{})

	message, err := mpid.NewMessage(aliceKeys, []byte("subject"), bob.Name(), []byte("hello"))
	require.NoError(t, err)

	bob.HandleRequest(relay(t, bob, message))
	bob.HandleRequest(relay(t, bob, message))

	received := bob.Received()
	require.Len(t, received, 1, "duplicates are dropped")
	assert.False(t, received[0].Verified, "sender key unknown")
	assert.Equal(t, message.Body, received[0].Message.Body)

	// Once the sender is a contact, later messages are verified.
	bob.AddContact(aliceKeys.Public)
	second, err := mpid.NewMessage(aliceKeys, nil, bob.Name(), []byte("again"))
	require.NoError(t, err)
	bob.HandleRequest(relay(t, bob, second))

	received = bob.Received()
	require.Len(t, received, 2)
	assert.True(t, received[1].Verified)
}

func TestReceiveDropsForgedAndMisaddressed(t *testing.T) {
	aliceKeys := testKeys(t, 1)
	bob := NewWithSession(testKeys(t, 2), [32]byte{2}, &recordingNode{})
	bob.AddContact(aliceKeys.Public)

	forged, err := mpid.NewMessage(aliceKeys, nil, bob.Name(), []byte("original"))
	require.NoError(t, err)
	forged.Body = []byte("tampered")
	bob.HandleRequest(relay(t, bob, forged))

	misaddressed, err := mpid.NewMessage(aliceKeys, nil, identity.ID{0x77}, []byte("not for bob"))
	require.NoError(t, err)
	bob.HandleRequest(relay(t, bob, misaddressed))

	bad := relay(t, bob, misaddressed)
	bad.Data.Value = []byte{0xff}
	bob.HandleRequest(bad)

	assert.Empty(t, bob.Received())
}

func TestQueryResponsesAndFailures(t *testing.T) {
	aliceKeys := testKeys(t, 1)
	alice := NewWithSession(aliceKeys, [32]byte{1}, &recordingNode{})
	header, err := mpid.NewHeader(aliceKeys, []byte("subject"))
	require.NoError(t, err)

	for _, w := range []mpid.Wrapper{
		mpid.OutboxHasResponse{Headers: []mpid.Header{header}},
		mpid.GetOutboxHeadersResponse{Headers: []mpid.Header{header, header}},
	} {
		value, err := mpid.Encode(w)
		require.NoError(t, err)
		alice.HandleRequest(routing.Request{Dst: alice.Session(), Verb: routing.Post, Data: routing.Data{Value: value}})
	}
	assert.Equal(t, []mpid.Header{header}, alice.LastOutboxHas())
	assert.Len(t, alice.LastOutboxHeaders(), 2)

	alice.HandleResponse(routing.Response{Kind: routing.PutFailure, ExternalError: []byte("data exists")})
	failures := alice.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, routing.PutFailure, failures[0].Kind)
}
