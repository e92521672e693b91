package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomluther/anker-solix-api/internal/api"
	"github.com/thomluther/anker-solix-api/internal/cache"
	"github.com/thomluther/anker-solix-api/internal/catalog"
	"github.com/thomluther/anker-solix-api/internal/config"
	"github.com/thomluther/anker-solix-api/internal/hexdata"
	"github.com/thomluther/anker-solix-api/internal/logging"
	"github.com/thomluther/anker-solix-api/internal/poller"
)

var (
	decodeModel string
	configPath  string
)

func init() {
	decodeCmd.Flags().StringVar(&decodeModel, "model", "", "device model the message came from (e.g. A17C1)")
	pollCmd.Flags().StringVar(&configPath, "config", "", "config file path (default: platform config directory)")
}

var decodeCmd = &cobra.Command{
	Use:   "decode <payload>",
	Short: "Decode a device hex message",
	Long: `Decode a binary device message given as hex or base64.

Without --model only the frame and raw fields are shown; with a model
the fields are resolved to named values through the message catalog.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := hexdata.ParsePayload(args[0])
		if err != nil {
			return err
		}
		res, err := hexdata.NewDecoder(catalog.Default(), logging.GetLogger()).Decode(decodeModel, data)
		if err != nil {
			return err
		}

		fmt.Printf("message type: %s  length: %d  command: %v\n",
			res.Header.MsgTypeHex(), res.Header.Length, res.Header.IsCommand())
		if res.Degraded {
			fmt.Println("no catalog layout; raw fields:")
			for _, f := range res.Raw {
				fmt.Printf("  %s: %x\n", f.KeyHex(), f.Value)
			}
			return nil
		}

		fmt.Printf("topic: %s\n", res.Topic)
		names := make([]string, 0, len(res.Fields))
		for name := range res.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %s: %s\n", name, res.Fields[name])
		}
		return nil
	},
}

var encodeCmd = &cobra.Command{
	Use:   "encode <command> [param=value ...]",
	Short: "Compose a device command message",
	Long: `Compose a command message from the command catalog.

Parameters are given as name=value pairs; string aliases such as
off/low/medium/high are accepted where the command declares them.
Run without arguments to list the available commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := catalog.Default()
		if len(args) == 0 {
			names := reg.Commands()
			sort.Strings(names)
			for _, n := range names {
				fmt.Println(n)
			}
			return nil
		}

		params := make(map[string]any, len(args)-1)
		for _, arg := range args[1:] {
			key, value, found := strings.Cut(arg, "=")
			if !found {
				return fmt.Errorf("parameter %q is not in name=value form", arg)
			}
			params[key] = value
		}

		composed, err := hexdata.NewComposer(reg).Compose(args[0], params)
		if err != nil {
			return err
		}
		fmt.Printf("%x\n", composed.Bytes)
		if composed.Binding.Field != "" {
			fmt.Printf("confirmation: %s in message type %s\n",
				composed.Binding.Field, composed.Binding.MsgType)
		}
		return nil
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run a full cloud refresh and print a summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		var cfg *config.Config
		var err error
		if configPath != "" {
			cfg, err = config.LoadFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger := logging.GetLogger()
		client, err := api.NewClient(cfg.Account.Email, cfg.Account.Password, cfg.Account.Country, logger)
		if err != nil {
			return err
		}
		if cfg.Throttle.EndpointLimit > 0 || cfg.Throttle.CooldownSeconds > 0 {
			policy := api.DefaultThrottlePolicy()
			if cfg.Throttle.EndpointLimit > 0 {
				policy.EndpointLimit = cfg.Throttle.EndpointLimit
			}
			if cfg.Throttle.CooldownSeconds > 0 {
				policy.Cooldown = cfg.Throttle.Cooldown()
			}
			client.SetThrottlePolicy(policy)
		}

		ctx := cmd.Context()
		start := time.Now()
		if err := client.Login(ctx); err != nil {
			return err
		}

		store := cache.New()
		partial, err := poller.New(client, store, logger).PollAll(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("account: %s\n", client.Nickname())
		fmt.Printf("sites: %d  devices: %d  vehicles: %d\n",
			len(store.Sites()), len(store.Devices()), len(store.Vehicles()))
		fmt.Printf("requests last minute: %d  elapsed: %s\n",
			client.RequestsLastMinute(), time.Since(start).Round(time.Millisecond))
		if len(partial) > 0 {
			fmt.Printf("partial failures: %d\n", len(partial))
			for _, e := range partial {
				fmt.Printf("  %v\n", e)
			}
		}
		return nil
	},
}
