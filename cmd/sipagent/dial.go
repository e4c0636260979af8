package main

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sipagent/core/dialog"
	"github.com/sipagent/core/sdp"
	"github.com/sipagent/core/sip"
	"github.com/sipagent/core/timer"
	"github.com/sipagent/core/transport"
	"github.com/sipagent/core/ua"
)

var (
	dialTo     string
	dialRemote string
	dialListen string
)

var dialCmd = &cobra.Command{
	Use:   "dial",
	Short: "Place a single outbound call and hang up once answered (smoke test)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDial(dialTo, dialRemote, dialListen)
	},
}

func init() {
	dialCmd.Flags().StringVar(&dialTo, "to", "", "sip: URI to call")
	dialCmd.Flags().StringVar(&dialRemote, "remote", "", "peer host:port")
	dialCmd.Flags().StringVar(&dialListen, "listen", "0.0.0.0:0", "local UDP bind address")
	dialCmd.MarkFlagRequired("to")
	dialCmd.MarkFlagRequired("remote")
}

// runDial drives the same single-goroutine transport/timer loop as serve,
// but only long enough to complete one call (spec.md §4.I's Invite/Bye
// operations).
func runDial(to, remote, listen string) error {
	recipient, err := sip.ParseUri(to)
	if err != nil {
		return fmt.Errorf("parse --to: %w", err)
	}

	tp, err := transport.ListenUDP(listen)
	if err != nil {
		return fmt.Errorf("listen udp: %w", err)
	}
	defer tp.Close()

	host, portStr, err := net.SplitHostPort(tp.LocalContact())
	if err != nil {
		return fmt.Errorf("parse local contact: %w", err)
	}
	port, _ := strconv.Atoi(portStr)
	localContact := sip.Uri{User: "sipagent-dial", Host: host, Port: port}
	loop := timer.NewLoop()
	uac := ua.NewUAC(loop, tp, localContact)

	offer := sdp.BuildOffer(localContact.Host, 20000, 0, sdp.SendRecv)
	offerBody, err := sdp.Build(offer)
	if err != nil {
		return fmt.Errorf("build offer: %w", err)
	}

	done := make(chan struct{})
	var established *dialog.Dialog

	tx := uac.Invite(recipient, remote, offerBody, "application/sdp",
		func(d *dialog.Dialog, res *sip.Response) {
			slog.Info("provisional response", "status", res.StatusCode, "reason", res.Reason)
		},
		func(d *dialog.Dialog, res *sip.Response, err error) {
			if err != nil {
				slog.Error("invite failed", "error", err)
				close(done)
				return
			}
			slog.Info("call answered", "status", res.StatusCode)
			established = d
			close(done)
		})
	_ = tx

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(32 * time.Second)

	for {
		select {
		case in := <-tp.Messages():
			uac.HandleInbound(in)
		case <-ticker.C:
			loop.Wheel().Poll(loop.Now())
		case <-done:
			if established == nil {
				return fmt.Errorf("call was not established")
			}
			return hangUp(uac, tp, loop, established, remote)
		case <-timeout:
			return fmt.Errorf("timed out waiting for a final response")
		}
	}
}

// hangUp sends BYE and drains the transport until it completes, then
// returns.
func hangUp(uac *ua.UAC, tp *transport.UDPTransport, loop *timer.Loop, d *dialog.Dialog, remote string) error {
	completion := uac.SendBye(d, remote)
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case in := <-tp.Messages():
			uac.HandleInbound(in)
		case <-ticker.C:
			loop.Wheel().Poll(loop.Now())
			if completion.Done() {
				return completion.Err()
			}
		case <-timeout:
			return fmt.Errorf("bye did not complete before timeout")
		}
	}
}
