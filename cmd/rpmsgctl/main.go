// Command rpmsgctl attaches to a platform descriptor and drives channels
// over it: listing bring-up channels, sending a datagram, or running a
// loopback echo driver for local testing (§6).
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/subingangadharan/rpmsg"
)

var platformPath string

var rootCmd = &cobra.Command{
	Use:   "rpmsgctl",
	Short: "Inspect and drive a shared-memory rpmsg bus",
}

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the transport's live channels",
	RunE: func(_ *cobra.Command, _ []string) error {
		p, err := rpmsg.LoadYAMLPlatform(platformPath)
		if err != nil {
			return err
		}
		t, err := rpmsg.AttachMmap(p, nil)
		if err != nil {
			return err
		}
		defer t.Detach()

		for _, ch := range t.Channels() {
			fmt.Printf("%-32s src=%-5d dst=%d\n", ch.Name, ch.Src, ch.Dst)
		}
		return nil
	},
}

var (
	sendName string
	sendDst  uint32
	sendBody string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Create a channel and send one datagram on it",
	RunE: func(_ *cobra.Command, _ []string) error {
		p, err := rpmsg.LoadYAMLPlatform(platformPath)
		if err != nil {
			return err
		}
		t, err := rpmsg.AttachMmap(p, nil)
		if err != nil {
			return err
		}
		defer t.Detach()

		ch, err := t.CreateChannel(sendName, 0, sendDst)
		if err != nil {
			return fmt.Errorf("create channel: %w", err)
		}
		if err := t.Send(ch, []byte(sendBody)); err != nil {
			return fmt.Errorf("send: %w", err)
		}
		fmt.Printf("sent %d bytes on %q (src=%d dst=%d)\n", len(sendBody), ch.Name, ch.Src, ch.Dst)
		return nil
	},
}

var serveLoopbackCmd = &cobra.Command{
	Use:   "serve-loopback",
	Short: "Register an echo driver and block until interrupted",
	RunE: func(_ *cobra.Command, _ []string) error {
		p, err := rpmsg.LoadYAMLPlatform(platformPath)
		if err != nil {
			return err
		}
		t, err := rpmsg.AttachMmap(p, nil)
		if err != nil {
			return err
		}
		defer t.Detach()

		echo := &rpmsg.Driver{
			IDTable: []string{"echo"},
			Probe: func(ch *rpmsg.Channel) error {
				log.Printf("rpmsgctl: probed %q (src=%d dst=%d)", ch.Name, ch.Src, ch.Dst)
				return nil
			},
			Remove: func(ch *rpmsg.Channel) {
				log.Printf("rpmsgctl: removed %q", ch.Name)
			},
			Callback: func(ch *rpmsg.Channel, data []byte, _ any, src uint32) {
				log.Printf("rpmsgctl: echoing %d bytes from %d", len(data), src)
				if err := t.SendTo(ch, data, src); err != nil {
					log.Printf("rpmsgctl: echo failed: %v", err)
				}
			},
		}
		if err := t.RegisterDriver(echo); err != nil {
			return err
		}

		select {}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&platformPath, "platform", "p", "platform.yaml", "path to the YAML platform descriptor")

	sendCmd.Flags().StringVar(&sendName, "name", "rpmsgctl", "channel name to open")
	sendCmd.Flags().Uint32Var(&sendDst, "dst", rpmsg.AddrAny, "destination address")
	sendCmd.Flags().StringVar(&sendBody, "body", "hello", "datagram payload")

	rootCmd.AddCommand(channelsCmd, sendCmd, serveLoopbackCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
