package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iigoraya/p2p-auction/internal/adapters/broadcaster"
	"github.com/iigoraya/p2p-auction/internal/adapters/discovery"
	"github.com/iigoraya/p2p-auction/internal/adapters/rpc"
)

const callTimeout = 10 * time.Second

var (
	serverAddrArg string
	serverKeyArg  string
	redisAddrArg  string
	rendezvousArg string
	bidderIDArg   string
	clientIDArg   string

	logger zerolog.Logger
)

func main() {
	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	rootCmd := &cobra.Command{
		Use:           "auction-client",
		Short:         "Client for the p2p auction server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverAddrArg, "server-addr", "", "server address (host:port), skips rendezvous resolution")
	rootCmd.PersistentFlags().StringVar(&serverKeyArg, "server-key", "", "expected server public key as hex")
	rootCmd.PersistentFlags().StringVar(&redisAddrArg, "redis-addr", "localhost:6379", "redis address used for rendezvous discovery")
	rootCmd.PersistentFlags().StringVar(&rendezvousArg, "rendezvous", "server", "rendezvous topic the server announces under")

	openCmd := &cobra.Command{
		Use:   "open <itemDesc> <startingPrice>",
		Short: "Open a new auction",
		Args:  cobra.ExactArgs(2),
		RunE:  runOpen,
	}

	bidCmd := &cobra.Command{
		Use:   "bid <auctionId> <amount>",
		Short: "Submit a bid on an open auction",
		Args:  cobra.ExactArgs(2),
		RunE:  runBid,
	}
	bidCmd.Flags().StringVar(&bidderIDArg, "bidder", "", "bidder identity (defaults to a fresh uuid)")

	closeCmd := &cobra.Command{
		Use:   "close <auctionId>",
		Short: "Close an auction and fix the winner",
		Args:  cobra.ExactArgs(1),
		RunE:  runClose,
	}
	closeCmd.Flags().StringVar(&clientIDArg, "client-id", "", "closing client identity")

	getCmd := &cobra.Command{
		Use:   "get <auctionId>",
		Short: "Show one auction",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List all auctions",
		Args:  cobra.NoArgs,
		RunE:  runList,
	}

	watchCmd := &cobra.Command{
		Use:   "watch <auctionId>",
		Short: "Stream events for one auction until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}

	rootCmd.AddCommand(openCmd, bidCmd, closeCmd, getCmd, listCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

// resolveServer turns the flags into a concrete server identity: an explicit
// address wins, otherwise the rendezvous is consulted (and the announced key
// checked against --server-key when provided).
func resolveServer(ctx context.Context) (rpc.ServerIdentity, error) {
	if serverAddrArg != "" {
		return rpc.ServerIdentity{PublicKey: serverKeyArg, Addr: serverAddrArg}, nil
	}

	registry, closeRegistry := newRegistry()
	defer closeRegistry()

	record, err := registry.Resolve(ctx, serverKeyArg)
	if err != nil {
		return rpc.ServerIdentity{}, fmt.Errorf("server discovery failed: %w", err)
	}

	return rpc.ServerIdentity{PublicKey: record.PublicKey, Addr: record.Addr}, nil
}

func newRedisClient() *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:        redisAddrArg,
		DialTimeout: 5 * time.Second,
	})
}

func newRegistry() (*discovery.RedisRegistry, func()) {
	redisClient := newRedisClient()
	registry := discovery.NewRegistry(discovery.RedisRegistryParams{
		RedisClient: redisClient,
		Topic:       rendezvousArg,
		Logger:      logger,
	})
	return registry, func() { redisClient.Close() }
}

// invoke resolves the server, dials it and runs one call
func invoke(fn func(ctx context.Context, inv *rpc.Invoker) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	identity, err := resolveServer(ctx)
	if err != nil {
		return err
	}

	inv, err := rpc.NewInvoker(ctx, rpc.InvokerParams{Identity: identity, Logger: logger})
	if err != nil {
		return err
	}
	defer inv.Close()

	return fn(ctx, inv)
}

func runOpen(cmd *cobra.Command, args []string) error {
	startingPrice, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid starting price %q: %w", args[1], err)
	}

	return invoke(func(ctx context.Context, inv *rpc.Invoker) error {
		resp, err := inv.Call(ctx, rpc.OpOpenAuction, rpc.OpenAuctionPayload{
			ItemDesc:      args[0],
			StartingPrice: startingPrice,
		})
		if err != nil {
			return err
		}
		if !resp.OK {
			fmt.Println(resp.Message)
			return nil
		}

		var result rpc.OpenAuctionResult
		if err := decode(resp, &result); err != nil {
			return err
		}
		fmt.Println("Auction opened:", result.AuctionID)
		return nil
	})
}

func runBid(cmd *cobra.Command, args []string) error {
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid bid amount %q: %w", args[1], err)
	}

	bidderID := bidderIDArg
	if bidderID == "" {
		bidderID = uuid.New().String()
	}

	return invoke(func(ctx context.Context, inv *rpc.Invoker) error {
		resp, err := inv.Call(ctx, rpc.OpSubmitBid, rpc.SubmitBidPayload{
			AuctionID: args[0],
			Amount:    amount,
			BidderID:  bidderID,
		})
		if err != nil {
			return err
		}
		if !resp.OK {
			fmt.Println(resp.Message)
			return nil
		}

		var result rpc.SubmitBidResult
		if err := decode(resp, &result); err != nil {
			return err
		}
		fmt.Println(result.Message)
		return nil
	})
}

func runClose(cmd *cobra.Command, args []string) error {
	return invoke(func(ctx context.Context, inv *rpc.Invoker) error {
		resp, err := inv.Call(ctx, rpc.OpCloseAuction, rpc.CloseAuctionPayload{
			AuctionID: args[0],
			ClientID:  clientIDArg,
		})
		if err != nil {
			return err
		}
		if !resp.OK {
			fmt.Println(resp.Message)
			return nil
		}

		var result rpc.CloseAuctionResult
		if err := decode(resp, &result); err != nil {
			return err
		}
		fmt.Printf("%s, winner: %s\n", result.Message, result.Winner)
		return nil
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	return invoke(func(ctx context.Context, inv *rpc.Invoker) error {
		resp, err := inv.Call(ctx, rpc.OpGetAuction, rpc.GetAuctionPayload{AuctionID: args[0]})
		if err != nil {
			return err
		}
		if !resp.OK {
			fmt.Println(resp.Message)
			return nil
		}

		var view rpc.AuctionView
		if err := decode(resp, &view); err != nil {
			return err
		}
		printAuction(view)
		return nil
	})
}

func runList(cmd *cobra.Command, args []string) error {
	return invoke(func(ctx context.Context, inv *rpc.Invoker) error {
		resp, err := inv.Call(ctx, rpc.OpListAuctions, struct{}{})
		if err != nil {
			return err
		}
		if !resp.OK {
			fmt.Println(resp.Message)
			return nil
		}

		var result rpc.ListAuctionsResult
		if err := decode(resp, &result); err != nil {
			return err
		}
		for _, view := range result.Auctions {
			printAuction(view)
		}
		return nil
	})
}

func runWatch(cmd *cobra.Command, args []string) error {
	redisClient := newRedisClient()
	defer redisClient.Close()

	watcher := broadcaster.NewBroadcaster(broadcaster.RedisBroadcasterParams{
		RedisClient: redisClient,
		Logger:      logger,
	})
	defer watcher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, unsubscribe, err := watcher.Subscribe(ctx, args[0])
	if err != nil {
		return err
	}
	defer unsubscribe()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Watching auction", args[0])
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return nil
			}
			fmt.Printf("[%s] %s %v\n", time.Unix(event.Timestamp, 0).Format(time.RFC3339), event.Type, event.Data)
		case <-sigChan:
			return nil
		}
	}
}

func decode(resp *rpc.Response, out interface{}) error {
	if err := json.Unmarshal(resp.Payload, out); err != nil {
		return fmt.Errorf("failed to decode response payload: %w", err)
	}
	return nil
}

func printAuction(view rpc.AuctionView) {
	fmt.Printf("%s  %-24s  starting=%.2f  highest=%.2f  status=%s", view.AuctionID, view.ItemDesc, view.StartingPrice, view.HighestBid, view.Status)
	if view.Winner != "" {
		fmt.Printf("  winner=%s", view.Winner)
	}
	fmt.Println()
}
