//go:build linux

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mdlayher/genetlink"
	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"github.com/scitags/genetlinkd/families/ctrl"
	"github.com/scitags/genetlinkd/families/echo"
	"github.com/scitags/genetlinkd/genl"
	"github.com/scitags/genetlinkd/nlmsg"
	"github.com/spf13/cobra"
)

var (
	verbosityFlag string
	dumpFlag      bool

	familiesCmd = &cobra.Command{
		Use:   "families",
		Short: "List the families registered with an in-process dispatcher.",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(false)
			if err != nil {
				return err
			}
			defer c.teardown()
			defer conn.Close()

			infos, err := listFamilies(conn)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			for _, fi := range infos {
				fi.Verbosity = verbosityFlag
				if err := enc.Encode(fi); err != nil {
					return err
				}
			}
			return nil
		},
	}

	echoCmd = &cobra.Command{
		Use:   "echo <words>...",
		Short: "Bounce words off the echo family of an in-process dispatcher.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, conn, err := dial(true)
			if err != nil {
				return err
			}
			defer c.teardown()
			defer conn.Close()

			words, err := echoWords(conn, c.echo.Name, args, dumpFlag)
			if err != nil {
				return err
			}

			for _, w := range words {
				fmt.Println(w)
			}
			return nil
		},
	}
)

func init() {
	familiesCmd.Flags().StringVar(&verbosityFlag, "verbosity", "", "set to lean for a terse listing")
	echoCmd.Flags().BoolVar(&dumpFlag, "dump", false, "get every word back in a message of its own")

	rootCmd.AddCommand(familiesCmd)
	rootCmd.AddCommand(echoCmd)
}

// dial brings up a core and connects a generic netlink client to it. The
// echo family is forced on when withEcho is set.
func dial(withEcho bool) (*core, *genetlink.Conn, error) {
	conf, err := loadConf()
	if err != nil {
		return nil, nil, err
	}

	if withEcho && conf.Families.Echo == nil {
		conf.Families.Echo = &echo.Config{}
		seed(conf.Families.Echo)
	}

	c, err := newCore(conf)
	if err != nil {
		return nil, nil, fmt.Errorf("error setting up the core: %w", err)
	}

	nc, err := c.loopback.Dial(nlmsg.ProtoGeneric)
	if err != nil {
		c.teardown()
		return nil, nil, fmt.Errorf("error dialing the loopback: %w", err)
	}

	return c, genetlink.NewConn(nc), nil
}

// listFamilies dumps the controller, keeping the operations genetlink's
// own ListFamilies drops.
func listFamilies(conn *genetlink.Conn) ([]genl.FamilyInfo, error) {
	req := genetlink.Message{
		Header: genetlink.Header{
			Command: ctrl.CmdGetFamily,
			Version: ctrl.Version,
		},
	}

	msgs, err := conn.Execute(req, genl.IDCtrl, netlink.Request|netlink.Dump)
	if err != nil {
		return nil, fmt.Errorf("error dumping %s: %w", ctrl.Name, err)
	}

	infos := make([]genl.FamilyInfo, 0, len(msgs))
	for _, m := range msgs {
		fi, err := ctrl.ParseFamily(nlmsg.Attributes(m.Data))
		if err != nil {
			return nil, fmt.Errorf("error parsing family: %w", err)
		}
		infos = append(infos, fi)
	}

	return infos, nil
}

func echoWords(conn *genetlink.Conn, family string, words []string, dump bool) ([]string, error) {
	f, err := conn.GetFamily(family)
	if err != nil {
		return nil, fmt.Errorf("error resolving %q: %w", family, err)
	}

	ae := netlink.NewAttributeEncoder()
	for _, w := range words {
		ae.String(echo.AttrMessage, w)
	}

	attrs, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("error encoding attributes: %w", err)
	}

	cookie := uint32(os.Getpid())
	data := make([]byte, echo.HeaderSize, echo.HeaderSize+len(attrs))
	nlenc.PutUint32(data, cookie)
	data = append(data, attrs...)

	flags := netlink.Request
	if dump {
		flags |= netlink.Dump
	}

	msgs, err := conn.Execute(genetlink.Message{
		Header: genetlink.Header{Command: echo.CmdEcho, Version: f.Version},
		Data:   data,
	}, f.ID, flags)
	if err != nil {
		return nil, fmt.Errorf("error echoing: %w", err)
	}

	var out []string
	for _, m := range msgs {
		if len(m.Data) < echo.HeaderSize {
			return nil, fmt.Errorf("reply too short: %d bytes", len(m.Data))
		}
		if got := nlenc.Uint32(m.Data[:echo.HeaderSize]); got != cookie {
			return nil, fmt.Errorf("got cookie %#x; want %#x", got, cookie)
		}

		ad, err := netlink.NewAttributeDecoder(m.Data[echo.HeaderSize:])
		if err != nil {
			return nil, fmt.Errorf("error decoding reply: %w", err)
		}
		for ad.Next() {
			if ad.Type() == echo.AttrMessage {
				out = append(out, ad.String())
			}
		}
		if err := ad.Err(); err != nil {
			return nil, fmt.Errorf("error decoding reply: %w", err)
		}
	}

	return out, nil
}
