package main

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opd-ai/mpid/client"
	"github.com/opd-ai/mpid/config"
	"github.com/opd-ai/mpid/crypto"
	"github.com/opd-ai/mpid/identity"
	"github.com/opd-ai/mpid/persona"
	"github.com/opd-ai/mpid/routing/simnet"
	"github.com/opd-ai/mpid/vault"
)

// openLimit bounds concurrent vault construction.
const openLimit = 4

// VaultReport holds the account statistics of one vault.
type VaultReport struct {
	ID       identity.ID
	Accounts []persona.AccountStats
}

// Report is the outcome of one simulation run.
type Report struct {
	Backend   config.Backend
	Sender    identity.ID
	Recipient identity.ID
	Sent      int
	Delivered int
	Received  []client.Received
	// OutboxHeld is the number of deposited messages the sender's outbox
	// reported as still held.
	OutboxHeld int
	// Listing is the size of the sender's GetOutboxHeaders answer.
	Listing  int
	Failures int
	Stats    simnet.DeliveryStats
	Log      []simnet.DeliveryRecord
	Vaults   []VaultReport
}

func vaultID(index int) identity.ID {
	return identity.FromPublicKey([32]byte{'v', 'a', 'u', 'l', 't', byte(index >> 8), byte(index)})
}

// openVaults builds cfg.Network.Vaults vaults concurrently.
func openVaults(ctx context.Context, cfg *config.Config) ([]*vault.Vault, error) {
	vaults := make([]*vault.Vault, cfg.Network.Vaults)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(openLimit)
	for i := range vaults {
		index := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := vault.Open(vaultID(index), cfg.Store)
			if err != nil {
				return fmt.Errorf("opening vault %d: %w", index, err)
			}
			vaults[index] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		closeVaults(vaults)
		return nil, err
	}
	return vaults, nil
}

func closeVaults(vaults []*vault.Vault) {
	for _, v := range vaults {
		if v == nil {
			continue
		}
		if err := v.Close(); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "closeVaults",
				"vault":    v.ID().Short(),
				"error":    err.Error(),
			}).Warn("Failed to close vault")
		}
	}
}

// runSimulation deposits messages from a fresh sender to a fresh recipient
// and drives the network until every phase has settled.
func runSimulation(ctx context.Context, cfg *config.Config, messages int) (*Report, error) {
	vaults, err := openVaults(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeVaults(vaults)

	network := simnet.New(simnet.Options{
		DeliveryLog:    cfg.Network.DeliveryLog,
		MaxDeliveryLog: cfg.Network.MaxDeliveryLog,
	})
	for _, v := range vaults {
		network.AddVault(v)
	}

	alice, err := newSession(network)
	if err != nil {
		return nil, err
	}
	bob, err := newSession(network)
	if err != nil {
		return nil, err
	}
	bob.AddContact(alice.PublicKey())

	settle := func(phase string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		steps, err := network.RunUntilIdle()
		logrus.WithFields(logrus.Fields{
			"function": "runSimulation",
			"phase":    phase,
			"steps":    steps,
		}).Info("Phase settled")
		return err
	}

	for i := 0; i < messages; i++ {
		metadata := []byte(fmt.Sprintf("message %d", i+1))
		body := []byte(fmt.Sprintf("hello from the simulation, #%d", i+1))
		if _, err := alice.Send(bob.Name(), metadata, body); err != nil {
			return nil, fmt.Errorf("sending message %d: %w", i+1, err)
		}
	}
	if err := settle("deposit"); err != nil {
		return nil, err
	}

	if _, err := bob.Online(); err != nil {
		return nil, err
	}
	if err := settle("fetch"); err != nil {
		return nil, err
	}

	if _, err := alice.Online(); err != nil {
		return nil, err
	}
	if _, err := alice.OutboxHas(alice.Sent()); err != nil {
		return nil, err
	}
	if _, err := alice.GetOutboxHeaders(); err != nil {
		return nil, err
	}
	if err := settle("outbox"); err != nil {
		return nil, err
	}

	report := &Report{
		Backend:    cfg.Store.Backend,
		Sender:     alice.Name(),
		Recipient:  bob.Name(),
		Sent:       len(alice.Sent()),
		Received:   bob.Received(),
		OutboxHeld: len(alice.LastOutboxHas()),
		Listing:    len(alice.LastOutboxHeaders()),
		Failures:   len(alice.Failures()) + len(bob.Failures()),
		Stats:      network.Stats(),
		Log:        network.DeliveryLog(),
	}
	report.Delivered = len(report.Received)
	for _, v := range vaults {
		report.Vaults = append(report.Vaults, VaultReport{ID: v.ID(), Accounts: v.Manager().Stats()})
	}
	return report, nil
}

func newSession(network *simnet.Network) (*client.Client, error) {
	keys, err := crypto.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	c, err := client.New(keys, network)
	if err != nil {
		return nil, err
	}
	if err := network.Connect(c.Session(), c); err != nil {
		return nil, err
	}
	return c, nil
}

// Print writes a human-readable summary.
func (r *Report) Print(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "vaults: %d  backend: %s\n", len(r.Vaults), r.Backend)
	fmt.Fprintf(w, "sent %d messages from %s to %s\n", r.Sent, r.Sender.Short(), r.Recipient.Short())
	fmt.Fprintf(w, "delivered %d/%d\n", r.Delivered, r.Sent)
	for _, received := range r.Received {
		fmt.Fprintf(w, "  %s verified=%t %q\n", received.Name.Short(), received.Verified, received.Message.Body)
	}
	fmt.Fprintf(w, "outbox: %d of %d deposited messages still held\n", r.OutboxHeld, r.Sent)
	fmt.Fprintf(w, "outbox listing: %d headers\n", r.Listing)
	fmt.Fprintf(w, "failures: %d\n", r.Failures)
	fmt.Fprintf(w, "deliveries: total=%d requests=%d responses=%d handler_errors=%d undeliverable=%d\n",
		r.Stats.Total, r.Stats.Requests, r.Stats.Responses, r.Stats.HandlerErrors, r.Stats.Undeliverable)

	for _, v := range r.Vaults {
		if len(v.Accounts) == 0 {
			continue
		}
		fmt.Fprintf(w, "vault %s\n", v.ID.Short())
		for _, a := range v.Accounts {
			fmt.Fprintf(w, "  account %s clients=%d inbox=%d (%d/%d bytes) outbox=%d (%d/%d bytes)\n",
				a.Name.Short(), a.Clients,
				a.InboxEntries, a.InboxUsed, a.InboxUsed+a.InboxAvailable,
				a.OutboxEntries, a.OutboxUsed, a.OutboxUsed+a.OutboxAvailable)
		}
	}

	if !verbose {
		return
	}
	fmt.Fprintln(w, "delivery log:")
	for _, record := range r.Log {
		what := record.Verb.String()
		if record.IsResponse() {
			what = record.Response.String()
		}
		status := "ok"
		switch {
		case record.Undeliverable:
			status = "undeliverable"
		case record.Error != nil:
			status = "error: " + record.Error.Error()
		}
		fmt.Fprintf(w, "  #%d %-11s %s -> %s (%d bytes) %s\n",
			record.Seq, what, record.Src, record.Dst, record.PayloadSize, status)
	}
}
