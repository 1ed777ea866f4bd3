package main

import (
	"context"
	"flag"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"github.com/JoeShih716/go-nox-ledger/internal/app/client"
	"github.com/JoeShih716/go-nox-ledger/internal/app/core/domain"
	"github.com/JoeShih716/go-nox-ledger/internal/config"
	"github.com/JoeShih716/go-nox-ledger/internal/logging"
	grpcpool "github.com/JoeShih716/go-nox-ledger/pkg/grpc"
	pb "github.com/JoeShih716/go-nox-ledger/proto"
)

const (
	TotalCount  = 100000
	Concurrency = 1000
)

func main() {
	target := flag.String("target", "localhost:50051", "gRPC address of the core service")
	total := flag.Int("total", TotalCount, "number of transfers in the load phase")
	concurrency := flag.Int("concurrency", Concurrency, "concurrent in-flight transfers")
	pretty := flag.Bool("pretty", true, "console log output")
	flag.Parse()

	logger := logging.New(config.LogConfig{Level: "info", Pretty: *pretty})

	pool := grpcpool.NewPool(
		grpcpool.WithInterceptor(grpcpool.LoggingInterceptor(logger)),
		grpcpool.WithCallOptions(grpc.CallContentSubtype(pb.CodecName)),
	)
	defer pool.Close()
	c, err := client.Connect(pool, *target, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("did not connect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	alice := mustSignup(ctx, c, logger, "alice")
	bob := mustSignup(ctx, c, logger, "bob")

	// 1. 兩邊各存 100.00
	for _, s := range []*client.Session{alice, bob} {
		if _, err := c.Send(ctx, s, client.Transfer{Kind: domain.TransactionKindDeposit, Amount: 10000}); err != nil {
			logger.Fatal().Err(err).Msg("deposit failed")
		}
	}

	// 2. 同時互轉 60%，總額必須守恆
	concurrentCrossTransfers(ctx, c, logger, alice, bob)

	// 3. 壓測：alice 存入足夠的錢後對 bob 大量轉帳
	if _, err := c.Send(ctx, alice, client.Transfer{Kind: domain.TransactionKindDeposit, Amount: domain.Amount(*total)}); err != nil {
		logger.Fatal().Err(err).Msg("load deposit failed")
	}
	runLoad(ctx, c, logger, alice, bob, *total, *concurrency)
}

func mustSignup(ctx context.Context, c *client.Client, logger zerolog.Logger, prefix string) *client.Session {
	username := prefix + "_" + uuid.NewString()[:8]
	s, err := c.Signup(ctx, username, prefix, "load-test-pass")
	if err != nil {
		logger.Fatal().Err(err).Str("username", username).Msg("signup failed")
	}
	logger.Info().Str("username", username).Str("account", s.AccountID().String()).Msg("signed up")
	return s
}

func concurrentCrossTransfers(ctx context.Context, c *client.Client, logger zerolog.Logger, alice, bob *client.Session) {
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, pair := range [][2]*client.Session{{alice, bob}, {bob, alice}} {
		wg.Add(1)
		go func(i int, from, to *client.Session) {
			defer wg.Done()
			_, errs[i] = c.Send(ctx, from, client.Transfer{
				Kind:       domain.TransactionKindTransfer,
				ReceiverID: to.AccountID(),
				Amount:     6000,
			})
		}(i, pair[0], pair[1])
	}
	wg.Wait()

	a, err := c.Balance(ctx, alice)
	if err != nil {
		logger.Fatal().Err(err).Msg("balance failed")
	}
	b, err := c.Balance(ctx, bob)
	if err != nil {
		logger.Fatal().Err(err).Msg("balance failed")
	}
	event := logger.Info()
	if a+b != 20000 {
		event = logger.Error()
	}
	event.AnErr("alice_to_bob", errs[0]).
		AnErr("bob_to_alice", errs[1]).
		Str("alice", a.FormatBRL()).
		Str("bob", b.FormatBRL()).
		Str("total", (a + b).FormatBRL()).
		Msg("concurrent 60% transfers")
}

func runLoad(ctx context.Context, c *client.Client, logger zerolog.Logger, from, to *client.Session, total, concurrency int) {
	var (
		wg     sync.WaitGroup
		failed atomic.Int64
	)
	sem := make(chan struct{}, concurrency)
	start := time.Now()

	for i := 0; i < total; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := c.Send(ctx, from, client.Transfer{
				Kind:       domain.TransactionKindTransfer,
				ReceiverID: to.AccountID(),
				Amount:     1,
			})
			if err != nil {
				failed.Add(1)
				if idx%10000 == 0 {
					logger.Warn().Err(err).Int("index", idx).Msg("transfer failed")
				}
			}
		}(i)
	}
	wg.Wait()

	elapsed := time.Since(start)
	logger.Info().
		Int("requests", total).
		Int64("failed", failed.Load()).
		Dur("elapsed", elapsed).
		Float64("tps", float64(total)/elapsed.Seconds()).
		Msg("load finished")
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
