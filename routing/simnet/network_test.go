package simnet

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/mpid/chunkstore"
	"github.com/opd-ai/mpid/client"
	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/mpid"
	"github.com/opd-ai/mpid/persona"
	"github.com/opd-ai/mpid/routing"
	"github.com/opd-ai/mpid/vault"
)

func newTestNetwork(t *testing.T, vaults int) *Network {
	t.Helper()
	network := New(Options{DeliveryLog: true})
	for i := 0; i < vaults; i++ {
		id := identity.ID{byte(i * 37), byte(i)}
		network.AddVault(vault.New(id, chunkstore.NewMemoryStore(), chunkstore.NewMemoryStore()))
	}
	return network
}

func newConnectedClient(t *testing.T, network *Network, seed byte) *client.Client {
	t.Helper()
	keys, err := crypto.FromSeed([32]byte{seed})
	require.NoError(t, err)
	c, err := client.New(keys, network)
	require.NoError(t, err)
	require.NoError(t, network.Connect(c.Session(), c))
	return c
}

func runIdle(t *testing.T, network *Network) int {
	t.Helper()
	steps, err := network.RunUntilIdle()
	require.NoError(t, err)
	return steps
}

func TestMessageDeliveredWhenRecipientComesOnline(t *testing.T) {
	network := newTestNetwork(t, 5)
	alice := newConnectedClient(t, network, 1)
	bob := newConnectedClient(t, network, 2)
	bob.AddContact(alice.PublicKey())

	name, err := alice.Send(bob.Name(), []byte("subject"), []byte("hello bob"))
	require.NoError(t, err)
	runIdle(t, network)

	senderVault, err := network.VaultFor(alice.Name())
	require.NoError(t, err)
	assert.True(t, senderVault.OutboxStore().Has(name))
	recipientVault, err := network.VaultFor(bob.Name())
	require.NoError(t, err)
	assert.True(t, recipientVault.InboxStore().Has(name))
	assert.Empty(t, bob.Received(), "nothing is pushed before the session is online")

	_, err = bob.Online()
	require.NoError(t, err)
	runIdle(t, network)

	received := bob.Received()
	require.Len(t, received, 1)
	assert.Equal(t, name, received[0].Name)
	assert.Equal(t, []byte("hello bob"), received[0].Message.Body)
	assert.True(t, received[0].Verified)
	assert.Empty(t, alice.Failures())
	assert.Empty(t, bob.Failures())
}

func TestRelayReachesEverySession(t *testing.T) {
	network := newTestNetwork(t, 3)
	alice := newConnectedClient(t, network, 1)
	phone := newConnectedClient(t, network, 2)
	laptop := newConnectedClient(t, network, 2)

	_, err := phone.Online()
	require.NoError(t, err)
	runIdle(t, network)

	_, err = alice.Send(phone.Name(), nil, []byte("to both"))
	require.NoError(t, err)
	runIdle(t, network)

	// The second session's Online fetches the waiting message; the relay goes
	// to every registered session of the account.
	_, err = laptop.Online()
	require.NoError(t, err)
	runIdle(t, network)

	assert.Len(t, phone.Received(), 1)
	assert.Len(t, laptop.Received(), 1)
}

func TestDuplicateDepositReturnsPutFailure(t *testing.T) {
	network := newTestNetwork(t, 2)
	alice := newConnectedClient(t, network, 1)

	keys, err := crypto.FromSeed([32]byte{1})
	require.NoError(t, err)
	message, err := mpid.NewMessage(keys, nil, identity.ID{0x42}, []byte("once"))
	require.NoError(t, err)
	name, err := mpid.MessageName(message)
	require.NoError(t, err)
	value, err := mpid.Encode(mpid.PutMessage{Message: message})
	require.NoError(t, err)

	data := routing.Data{Name: name, Value: value}
	dst := routing.NewManagerGroup(alice.Name())
	require.NoError(t, network.SendPutRequest(alice.Session(), dst, data, routing.NewMessageID()))
	require.NoError(t, network.SendPutRequest(alice.Session(), dst, data, routing.NewMessageID()))
	runIdle(t, network)

	failures := alice.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, routing.PutFailure, failures[0].Kind)
	assert.Equal(t, data, failures[0].Request.Data)
	assert.Contains(t, string(failures[0].ExternalError), persona.ErrDataExists.Error())

	stats := network.Stats()
	assert.Equal(t, 1, stats.HandlerErrors)
	assert.Equal(t, 1, stats.Responses)
}

func TestOutboxQueriesRequireRegistration(t *testing.T) {
	network := newTestNetwork(t, 4)
	alice := newConnectedClient(t, network, 1)
	bob := newConnectedClient(t, network, 2)

	first, err := alice.Send(bob.Name(), nil, []byte("first"))
	require.NoError(t, err)
	second, err := alice.Send(bob.Name(), nil, []byte("second"))
	require.NoError(t, err)
	runIdle(t, network)

	_, err = alice.OutboxHas([]identity.ID{first, second, {0x01}})
	require.NoError(t, err)
	runIdle(t, network)
	assert.Empty(t, alice.LastOutboxHas(), "unregistered session gets no response")
	assert.Empty(t, alice.Failures())

	_, err = alice.Online()
	require.NoError(t, err)
	_, err = alice.OutboxHas([]identity.ID{first, second, {0x01}})
	require.NoError(t, err)
	runIdle(t, network)

	headers := alice.LastOutboxHas()
	require.Len(t, headers, 2)
	for _, header := range headers {
		name, err := mpid.HeaderName(header)
		require.NoError(t, err)
		assert.Contains(t, []identity.ID{first, second}, name)
	}
}

func TestUndeliverableTraffic(t *testing.T) {
	empty := New(Options{DeliveryLog: true})
	require.NoError(t, empty.SendPostRequest(routing.NewClient(identity.ID{1}, [32]byte{1}), routing.NewManagerGroup(identity.ID{2}), routing.Data{}, routing.MessageID{}))
	runIdle(t, empty)

	log := empty.DeliveryLog()
	require.Len(t, log, 1)
	assert.True(t, log[0].Undeliverable)
	assert.ErrorIs(t, log[0].Error, ErrNoVaults)

	network := newTestNetwork(t, 1)
	bob := newConnectedClient(t, network, 2)
	network.Disconnect(bob.Session())
	require.NoError(t, network.SendPostRequest(routing.NewManagerGroup(bob.Name()), bob.Session(), routing.Data{}, routing.MessageID{}))
	runIdle(t, network)

	assert.Equal(t, 1, network.Stats().Undeliverable)
	assert.Error(t, network.Connect(routing.NewManagerGroup(bob.Name()), bob))
}

func TestClosestVaultOwnsName(t *testing.T) {
	network := New(Options{})
	_, err := network.VaultFor(identity.ID{1})
	assert.ErrorIs(t, err, ErrNoVaults)

	near := vault.New(identity.ID{0x80, 0x01}, chunkstore.NewMemoryStore(), chunkstore.NewMemoryStore())
	far := vault.New(identity.ID{0x01}, chunkstore.NewMemoryStore(), chunkstore.NewMemoryStore())
	network.AddVault(far)
	network.AddVault(near)

	got, err := network.VaultFor(identity.ID{0x80})
	require.NoError(t, err)
	assert.Same(t, near, got)
	assert.Len(t, network.Vaults(), 2)
}

func TestStepLimitAndLogCap(t *testing.T) {
	network := New(Options{DeliveryLog: true, MaxDeliveryLog: 2, MaxSteps: 1})
	for i := 0; i < 3; i++ {
		require.NoError(t, network.SendPostRequest(routing.NewManagerGroup(identity.ID{}), routing.NewClient(identity.ID{byte(i)}, [32]byte{}), routing.Data{}, routing.MessageID{}))
	}

	_, err := network.RunUntilIdle()
	assert.ErrorIs(t, err, ErrStepLimit)
	assert.Equal(t, 2, network.Pending())

	assert.True(t, network.Step())
	assert.True(t, network.Step())
	assert.False(t, network.Step())

	log := network.DeliveryLog()
	require.Len(t, log, 2)
	assert.Equal(t, uint64(2), log[0].Seq)
	assert.Equal(t, uint64(3), log[1].Seq)

	network.ClearDeliveryLog()
	assert.Empty(t, network.DeliveryLog())
}

func TestRunDeliversInBackground(t *testing.T) {
	network := newTestNetwork(t, 3)
	alice := newConnectedClient(t, network, 1)
	bob := newConnectedClient(t, network, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- network.Run(ctx) }()

	_, err := alice.Send(bob.Name(), nil, []byte("background"))
	require.NoError(t, err)

	// Each Online resynchronises the inbox, so repeat it until the header
	// notification has landed and the message has been fetched.
	assert.Eventually(t, func() bool {
		if len(bob.Received()) == 1 {
			return true
		}
		_, err := bob.Online()
		return err == nil && len(bob.Received()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
